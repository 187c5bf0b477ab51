// Package searcher exposes the search engine facade: synchronous, async,
// and streaming search over the element index, plus suggestions, manual
// index control, statistics, and lifecycle management.
package searcher

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"

	"github.com/docugrid/searchcore/internal/element"
	"github.com/docugrid/searchcore/internal/index"
	"github.com/docugrid/searchcore/internal/index/tokenizer"
	"github.com/docugrid/searchcore/internal/ingest"
	"github.com/docugrid/searchcore/internal/query"
	"github.com/docugrid/searchcore/internal/searcher/cache"
	"github.com/docugrid/searchcore/internal/searcher/executor"
	"github.com/docugrid/searchcore/internal/searcher/ranker"
	"github.com/docugrid/searchcore/pkg/config"
	apperrors "github.com/docugrid/searchcore/pkg/errors"
	"github.com/docugrid/searchcore/pkg/metrics"
)

// Statistics is the aggregate engine state snapshot.
type Statistics struct {
	Index       index.Stats        `json:"index"`
	CacheHits   int64              `json:"cache_hits"`
	CacheMisses int64              `json:"cache_misses"`
	Ingest      ingest.BatchReport `json:"ingest"`
}

// Engine owns the index, parser, executor, ranker, cache, and ingest worker.
type Engine struct {
	cfg      *config.Config
	idx      *index.Index
	tok      *tokenizer.Tokenizer
	parser   *query.Parser
	rnk      *ranker.Ranker
	exec     *executor.Executor
	cache    cache.ResultCache
	ingestor *ingest.Ingestor
	pool     *ants.Pool
	sf       singleflight.Group
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cancel   context.CancelFunc
	closed   atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache installs a result cache. Without one, every search executes.
func WithCache(c cache.ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics installs Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithCustomScorer registers the scoring function used by the custom
// ranking strategy.
func WithCustomScorer(fn ranker.ScoreFunc) Option {
	return func(e *Engine) { e.rnk.RegisterCustom(fn) }
}

// New builds an Engine over the given element source. When the source also
// implements element.Fetcher, results are materialized through it;
// otherwise the index's derived entries serve.
func New(cfg *config.Config, source element.Source, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		cfg: cfg,
		idx: index.New(),
		tok: tokenizer.New(tokenizer.Config{
			MinLength: cfg.Index.MinTermLength,
			MaxLength: cfg.Index.MaxTermLength,
			Stemming:  cfg.Index.EnableStemming,
		}),
		parser: query.NewParser(cfg.Search.CustomFields...),
		rnk:    ranker.New(),
		logger: slog.Default().With("component", "search-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	fetcher, _ := source.(element.Fetcher)
	e.exec = executor.New(e.idx, e.parser, e.rnk, e.tok, fetcher,
		cfg.Search.DefaultLimit, cfg.Search.MaxResults, cfg.Index.MaxFuzzyDistance)
	e.exec.SetMetrics(e.metrics)
	e.ingestor = ingest.New(e.idx, e.tok, source, cfg.Index.UpdateQueueSize, e.metrics)

	poolSize := cfg.Search.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 8
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	return e, nil
}

// Start bulk-loads the source and begins applying its change feed. It must
// be called once before searches observe any data.
func (e *Engine) Start(ctx context.Context) error {
	if e.closed.Load() {
		return apperrors.ErrEngineClosed
	}
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	return e.ingestor.Start(workerCtx)
}

// Search executes a query synchronously. Malformed queries return an empty,
// tagged result set with a nil error; only contract violations (searching
// after shutdown) return an error.
func (e *Engine) Search(ctx context.Context, rawQuery string, opts executor.Options) (*executor.ResultSet, error) {
	if e.closed.Load() {
		return nil, apperrors.ErrEngineClosed
	}
	useCache := e.cache != nil && (opts.UseCache == nil || *opts.UseCache)
	if !useCache {
		rs := e.exec.Search(ctx, rawQuery, opts)
		e.observe(rs, "bypass")
		return rs, nil
	}

	key := cache.BuildKey(rawQuery, opts)
	if rs, ok := e.cache.Get(ctx, key); ok {
		if e.metrics != nil {
			e.metrics.CacheHitsTotal.Inc()
		}
		e.observe(rs, "hit")
		return rs, nil
	}
	if e.metrics != nil {
		e.metrics.CacheMissesTotal.Inc()
	}
	// Identical concurrent misses compute once.
	v, _, _ := e.sf.Do(string(key), func() (any, error) {
		if rs, ok := e.cache.Get(ctx, key); ok {
			return rs, nil
		}
		rs := e.exec.Search(ctx, rawQuery, opts)
		if len(rs.Invalid) == 0 {
			e.cache.Put(ctx, key, rs)
		}
		return rs, nil
	})
	rs := v.(*executor.ResultSet)
	e.observe(rs, "miss")
	return rs, nil
}

// SearchAsync runs the search on the worker pool and invokes cb once with
// the full result set. Cancel ctx to abandon the search; a cancelled fuzzy
// scan stops early.
func (e *Engine) SearchAsync(ctx context.Context, rawQuery string, opts executor.Options, cb func(*executor.ResultSet, error)) error {
	if e.closed.Load() {
		return apperrors.ErrEngineClosed
	}
	return e.pool.Submit(func() {
		cb(e.Search(ctx, rawQuery, opts))
	})
}

// SearchStream runs the search on the worker pool and invokes cb once per
// result in rank order. Delivery stops when cb returns false or ctx ends.
func (e *Engine) SearchStream(ctx context.Context, rawQuery string, opts executor.Options, cb func(ranker.Result) bool) error {
	if e.closed.Load() {
		return apperrors.ErrEngineClosed
	}
	return e.pool.Submit(func() {
		rs, err := e.Search(ctx, rawQuery, opts)
		if err != nil {
			e.logger.Error("streaming search failed", "query", rawQuery, "error", err)
			return
		}
		for _, result := range rs.Results {
			if ctx.Err() != nil || !cb(result) {
				return
			}
		}
	})
}

// Suggest returns indexed terms completing the given prefix.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if e.closed.Load() {
		return nil, apperrors.ErrEngineClosed
	}
	if limit <= 0 {
		limit = 10
	}
	if e.metrics != nil {
		e.metrics.SuggestionsTotal.Inc()
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}
	return e.idx.Suggest(prefix, limit), nil
}

// AddElement indexes an element directly, independent of the subscription
// path.
func (e *Engine) AddElement(ctx context.Context, el element.Element) error {
	if e.closed.Load() {
		return apperrors.ErrEngineClosed
	}
	return e.ingestor.Upsert(el)
}

// RemoveElement removes an element from the index, reporting whether it was
// present.
func (e *Engine) RemoveElement(ctx context.Context, id string) (bool, error) {
	if e.closed.Load() {
		return false, apperrors.ErrEngineClosed
	}
	return e.ingestor.Remove(id), nil
}

// Statistics reports index shape, cache counters, and the ingest batch
// report.
func (e *Engine) Statistics() Statistics {
	stats := Statistics{
		Index:  e.idx.Stats(10),
		Ingest: e.ingestor.Report(),
	}
	if e.cache != nil {
		stats.CacheHits, stats.CacheMisses = e.cache.Stats()
	}
	if e.metrics != nil {
		e.metrics.IndexedTerms.Set(float64(stats.Index.Terms))
	}
	return stats
}

// ClearCache drops all cached result sets.
func (e *Engine) ClearCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Clear(ctx)
}

// Shutdown stops the change subscription, drains the ingest worker, and
// releases the search pool. Engine calls after Shutdown fail with
// ErrEngineClosed.
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return apperrors.ErrEngineClosed
	}
	if e.cancel != nil {
		e.cancel()
		drained := make(chan struct{})
		go func() {
			e.ingestor.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			e.logger.Warn("shutdown deadline hit before ingest drain finished")
		}
	}
	e.pool.Release()
	e.logger.Info("engine shut down")
	return nil
}

func (e *Engine) observe(rs *executor.ResultSet, cacheStatus string) {
	if e.metrics == nil {
		return
	}
	outcome := "hit"
	switch {
	case len(rs.Invalid) > 0:
		outcome = "invalid"
	case rs.TotalCount == 0:
		outcome = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	e.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(rs.Elapsed.Seconds())
	e.metrics.SearchResultsCount.Observe(float64(len(rs.Results)))
}
