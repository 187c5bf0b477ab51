package element

import (
	"context"
	"sync"

	apperrors "github.com/docugrid/searchcore/pkg/errors"
)

// MemoryStore is an in-process element store implementing Source and
// Fetcher. It is the default source backend and the test double for the
// external element collaborator.
type MemoryStore struct {
	mu       sync.RWMutex
	elements map[string]Element
	subs     map[int]func(ChangeSet)
	nextSub  int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		elements: make(map[string]Element),
		subs:     make(map[int]func(ChangeSet)),
	}
}

// Put upserts elements and notifies subscribers.
func (m *MemoryStore) Put(elements ...Element) {
	m.mu.Lock()
	upserts := make([]Element, 0, len(elements))
	for _, el := range elements {
		if el.ID == "" {
			continue
		}
		stored := el.Clone()
		m.elements[stored.ID] = stored
		upserts = append(upserts, stored)
	}
	subs := m.snapshotSubs()
	m.mu.Unlock()

	if len(upserts) > 0 {
		notify(subs, ChangeSet{Upserts: upserts})
	}
}

// Delete removes elements by id and notifies subscribers.
func (m *MemoryStore) Delete(ids ...string) {
	m.mu.Lock()
	deletes := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.elements[id]; ok {
			delete(m.elements, id)
			deletes = append(deletes, id)
		}
	}
	subs := m.snapshotSubs()
	m.mu.Unlock()

	if len(deletes) > 0 {
		notify(subs, ChangeSet{Deletes: deletes})
	}
}

// Get implements Fetcher.
func (m *MemoryStore) Get(ctx context.Context, id string) (Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.elements[id]
	if !ok {
		return Element{}, apperrors.Newf(apperrors.ErrElementNotFound, 404, "element %s", id)
	}
	return el.Clone(), nil
}

// Snapshot implements Source.
func (m *MemoryStore) Snapshot(ctx context.Context) (map[string]Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Element, len(m.elements))
	for id, el := range m.elements {
		out[id] = el.Clone()
	}
	return out, nil
}

// Subscribe implements Source. The subscription is removed when ctx ends.
func (m *MemoryStore) Subscribe(ctx context.Context, fn func(ChangeSet)) error {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}()
	return nil
}

// Len returns the number of stored elements.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.elements)
}

func (m *MemoryStore) snapshotSubs() []func(ChangeSet) {
	subs := make([]func(ChangeSet), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(ChangeSet), cs ChangeSet) {
	for _, fn := range subs {
		fn(cs)
	}
}
