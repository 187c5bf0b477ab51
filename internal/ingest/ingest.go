// Package ingest keeps the search index synchronized with the external
// element source: an initial bulk load from a snapshot, then incremental
// changes drained from a bounded queue by a single worker goroutine. Index
// mutation happens only on the worker (or on the direct add/remove path),
// never inside a source notification callback, so notifications never block
// on index-update cost.
package ingest

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/docugrid/searchcore/internal/element"
	"github.com/docugrid/searchcore/internal/index"
	"github.com/docugrid/searchcore/internal/index/tokenizer"
	apperrors "github.com/docugrid/searchcore/pkg/errors"
	"github.com/docugrid/searchcore/pkg/metrics"
)

// maxFailuresKept bounds the per-element failure list in the report.
const maxFailuresKept = 100

// FailedElement records one element that could not be indexed.
type FailedElement struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchReport aggregates ingestion outcomes. Failures are isolated
// per element and reported here instead of aborting a batch.
type BatchReport struct {
	Indexed int64           `json:"indexed"`
	Removed int64           `json:"removed"`
	Failed  []FailedElement `json:"failed,omitempty"`
}

// Ingestor applies element changes to the index.
type Ingestor struct {
	idx     *index.Index
	tok     *tokenizer.Tokenizer
	source  element.Source
	updates chan element.ChangeSet
	done    chan struct{}
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	report BatchReport
}

// New creates an Ingestor with a change queue of the given size. m may be
// nil.
func New(idx *index.Index, tok *tokenizer.Tokenizer, source element.Source, queueSize int, m *metrics.Metrics) *Ingestor {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Ingestor{
		idx:     idx,
		tok:     tok,
		source:  source,
		updates: make(chan element.ChangeSet, queueSize),
		done:    make(chan struct{}),
		metrics: m,
		logger:  slog.Default().With("component", "ingestor"),
	}
}

// Start bulk-loads the source snapshot, subscribes to changes, and launches
// the apply worker. The worker runs until ctx is cancelled, then drains
// whatever is still queued.
func (in *Ingestor) Start(ctx context.Context) error {
	snapshot, err := in.source.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, el := range snapshot {
		in.applyUpsert(el)
	}
	in.logger.Info("bulk load complete", "elements", len(snapshot))

	if err := in.source.Subscribe(ctx, in.enqueue); err != nil {
		return err
	}
	go in.worker(ctx)
	return nil
}

// Wait blocks until the apply worker has drained and exited.
func (in *Ingestor) Wait() {
	<-in.done
}

// Upsert indexes one element directly, bypassing the queue. Used by the
// engine's manual add path.
func (in *Ingestor) Upsert(el element.Element) error {
	return in.applyUpsert(el)
}

// Remove deletes one element from the index directly.
func (in *Ingestor) Remove(id string) bool {
	removed := in.idx.Remove(id)
	if removed {
		in.mu.Lock()
		in.report.Removed++
		in.mu.Unlock()
		if in.metrics != nil {
			in.metrics.ElementsRemovedTotal.Inc()
			in.metrics.IndexedElements.Set(float64(in.idx.Len()))
		}
	}
	return removed
}

// Report returns a copy of the cumulative batch report.
func (in *Ingestor) Report() BatchReport {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.report
	out.Failed = make([]FailedElement, len(in.report.Failed))
	copy(out.Failed, in.report.Failed)
	return out
}

// QueueDepth returns the number of change sets waiting for the worker.
func (in *Ingestor) QueueDepth() int {
	return len(in.updates)
}

// enqueue hands a change set to the worker. Multiple subscription callbacks
// may produce concurrently; the single worker consumes. Once the worker has
// exited, changes are dropped (the next bulk load reconciles).
func (in *Ingestor) enqueue(cs element.ChangeSet) {
	if cs.Empty() {
		return
	}
	select {
	case in.updates <- cs:
		if in.metrics != nil {
			in.metrics.UpdateQueueDepth.Set(float64(len(in.updates)))
		}
	case <-in.done:
		in.logger.Warn("ingestor stopped, dropping change set",
			"upserts", len(cs.Upserts),
			"deletes", len(cs.Deletes),
		)
	}
}

func (in *Ingestor) worker(ctx context.Context) {
	defer close(in.done)
	for {
		select {
		case cs := <-in.updates:
			in.apply(cs)
		case <-ctx.Done():
			// Drain what is already queued, then stop.
			for {
				select {
				case cs := <-in.updates:
					in.apply(cs)
				default:
					in.logger.Info("ingest worker stopped")
					return
				}
			}
		}
		if in.metrics != nil {
			in.metrics.UpdateQueueDepth.Set(float64(len(in.updates)))
		}
	}
}

func (in *Ingestor) apply(cs element.ChangeSet) {
	for _, el := range cs.Upserts {
		if err := in.applyUpsert(el); err != nil {
			in.logger.Error("skipping element", "id", el.ID, "error", err)
		}
	}
	for _, id := range cs.Deletes {
		in.Remove(id)
	}
}

// applyUpsert derives an index entry from the element and adds it. A
// failure marks this element only.
func (in *Ingestor) applyUpsert(el element.Element) error {
	entry, err := in.buildEntry(el)
	if err != nil {
		in.recordFailure(el.ID, err)
		return err
	}
	in.idx.Add(entry)
	in.mu.Lock()
	in.report.Indexed++
	in.mu.Unlock()
	if in.metrics != nil {
		in.metrics.ElementsIndexedTotal.Inc()
		in.metrics.IndexedElements.Set(float64(in.idx.Len()))
	}
	return nil
}

func (in *Ingestor) buildEntry(el element.Element) (*index.Entry, error) {
	if el.ID == "" {
		return nil, apperrors.New(apperrors.ErrIndexing, 422, "element has no id")
	}
	confidence := el.Confidence
	if math.IsNaN(confidence) || confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	lastModified := el.Modified
	if lastModified.IsZero() {
		lastModified = time.Now()
	}
	return &index.Entry{
		ID:           el.ID,
		Type:         el.Type,
		Terms:        in.tok.ExtractTerms(el),
		RawText:      el.Text,
		Confidence:   confidence,
		Page:         el.Page,
		Languages:    el.Languages,
		LastModified: lastModified,
	}, nil
}

func (in *Ingestor) recordFailure(id string, err error) {
	in.mu.Lock()
	if len(in.report.Failed) < maxFailuresKept {
		in.report.Failed = append(in.report.Failed, FailedElement{ID: id, Reason: err.Error()})
	}
	in.mu.Unlock()
	if in.metrics != nil {
		in.metrics.IndexingErrorsTotal.Inc()
	}
}
