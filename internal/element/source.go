package element

import "context"

// ChangeSet is the payload delivered to change subscribers. Upserts replace
// any prior version of the same id; Deletes name ids that no longer exist.
// The deletion signal is explicit here rather than inferred from snapshot
// diffs.
type ChangeSet struct {
	Upserts []Element `json:"upserts,omitempty"`
	Deletes []string  `json:"deletes,omitempty"`
}

// Empty reports whether the change set carries no work.
func (cs ChangeSet) Empty() bool {
	return len(cs.Upserts) == 0 && len(cs.Deletes) == 0
}

// Source is the external element store the index stays synchronized with.
type Source interface {
	// Snapshot returns the full current element set, keyed by id.
	Snapshot(ctx context.Context) (map[string]Element, error)
	// Subscribe registers a change callback. Delivery stops when ctx is
	// cancelled. Callbacks must not block: the index-update worker drains
	// its own queue, so a subscriber only hands the change off.
	Subscribe(ctx context.Context, fn func(ChangeSet)) error
}

// Fetcher resolves a single element by id at result-materialization time.
type Fetcher interface {
	Get(ctx context.Context, id string) (Element, error)
}
