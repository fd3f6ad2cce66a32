package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/domain"
	"github.com/kailas-cloud/scholargraph/internal/logger"
	"github.com/kailas-cloud/scholargraph/internal/metrics"
)

// Config tunes the search pipeline.
type Config struct {
	Candidates        int
	Selected          int
	DefaultLimit      int
	MaxLimit          int
	Reward            float64
	CollectionTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Candidates <= 0 {
		c.Candidates = 4
	}
	if c.Selected <= 0 {
		c.Selected = 3
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 15
	}
	if c.MaxLimit < c.DefaultLimit {
		c.MaxLimit = max(100, c.DefaultLimit)
	}
	if c.Reward <= 0 {
		c.Reward = 0.5
	}
	if c.CollectionTimeout <= 0 {
		c.CollectionTimeout = 10 * time.Second
	}
	return c
}

// Deps groups the collaborators of the orchestrator. Expander may be nil.
type Deps struct {
	Expander Expander
	Embedder Embedder
	Router   Router
	Selector Selector
	Papers   Papers
	Rewarder Rewarder
	Pool     Pool
	Catalog  *domain.Catalog
}

// Service runs the routed multi-collection search pipeline.
type Service struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New creates a search service.
func New(deps Deps, cfg Config, logger *zap.Logger) *Service {
	return &Service{deps: deps, cfg: cfg.withDefaults(), logger: logger}
}

var errRejected = errors.New("collection search rejected")

// collectionResult is the outcome of one fan-out task.
type collectionResult struct {
	papers []domain.Paper
	err    error
}

// Search expands and embeds the query once, routes it to the best collections,
// searches them concurrently and merges hits by similarity.
// It never fails: unavailable backends produce an empty page.
func (s *Service) Search(ctx context.Context, query string, page, limit int) domain.Page {
	start := time.Now()
	log := logger.FromContextOr(ctx, s.logger)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.DefaultLimit
	}
	limit = min(limit, s.cfg.MaxLimit)

	out := domain.Page{
		Results: []domain.Paper{},
		Routed:  []domain.Route{},
		Page:    page,
		Query:   query,
	}

	expanded := s.expand(ctx, log, query)
	out.ExpandedQuery = expanded

	selected, vec := s.route(ctx, log, expanded)
	if len(selected) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues("unrouted").Inc()
		return out
	}
	out.Routed = selected

	perCollection, offset := Paginate(limit, page, len(selected))
	results := s.fanOut(ctx, log, selected, vec, perCollection, offset)

	s.reward(ctx, log, selected, results)

	out.Results = merge(results, limit)
	for i := range out.Results {
		out.Results[i].DisplayCollection = s.deps.Catalog.DisplayName(out.Results[i].Collection)
	}
	out.HasNext = len(out.Results) >= limit

	elapsed := time.Since(start)
	out.Latency = math.Round(elapsed.Seconds()*1000) / 1000
	metrics.SearchDuration.Observe(elapsed.Seconds())
	if len(out.Results) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	}

	log.Info("Search completed",
		zap.String("query", query),
		zap.Strings("routed_to", domain.RouteIDs(out.Routed)),
		zap.Int("results", len(out.Results)),
		zap.Int("page", page),
		zap.Duration("latency", elapsed),
	)
	return out
}

// expand falls back to the original query on any failure.
func (s *Service) expand(ctx context.Context, log *zap.Logger, query string) string {
	if s.deps.Expander == nil {
		metrics.QueryExpansionTotal.WithLabelValues("fallback").Inc()
		return query
	}
	expanded, err := s.deps.Expander.Expand(ctx, query)
	expanded = strings.TrimSpace(expanded)
	if err != nil || expanded == "" {
		if err != nil && !errors.Is(err, domain.ErrLLMUnavailable) {
			log.Warn("Query expansion failed, using original query", zap.Error(err))
		}
		metrics.QueryExpansionTotal.WithLabelValues("fallback").Inc()
		return query
	}
	metrics.QueryExpansionTotal.WithLabelValues("expanded").Inc()
	return expanded
}

// route embeds the query once and selects collections for it.
// Returns no routes when routing is unavailable.
func (s *Service) route(ctx context.Context, log *zap.Logger, text string) ([]domain.Route, []float32) {
	if !s.deps.Router.EnsureReady(ctx) {
		log.Warn("Search skipped", zap.Error(domain.ErrRoutingUnavailable))
		return nil, nil
	}

	emb, err := s.deps.Embedder.Embed(ctx, text)
	if err != nil || len(emb.Embedding) == 0 {
		log.Warn("Search skipped: query embedding failed",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrRoutingUnavailable, errOrEmpty(err))))
		return nil, nil
	}

	cands := s.deps.Router.Rank(emb.Embedding, s.cfg.Candidates)
	selected := s.deps.Selector.Select(cands, s.cfg.Selected)
	for _, r := range selected {
		metrics.RoutedTotal.WithLabelValues(r.CollectionID).Inc()
	}
	return selected, emb.Embedding
}

func errOrEmpty(err error) error {
	if err != nil {
		return err
	}
	return errors.New("empty embedding")
}

// fanOut queries every selected collection on the pool and waits for all of them.
// Each task gets its own timeout, started at submission, which also bounds the wait
// for a free worker. A task that outlives its deadline counts as a timeout even if
// the backend ignores cancellation.
func (s *Service) fanOut(
	ctx context.Context, log *zap.Logger,
	selected []domain.Route, vec []float32, perCollection, offset int,
) []collectionResult {
	type pending struct {
		ctx    context.Context
		cancel context.CancelFunc
		done   chan collectionResult
	}

	tasks := make([]pending, len(selected))
	for i, r := range selected {
		collection := r.CollectionID
		taskCtx, cancel := context.WithTimeout(ctx, s.cfg.CollectionTimeout)
		done := make(chan collectionResult, 1)
		tasks[i] = pending{ctx: taskCtx, cancel: cancel, done: done}

		task := func() {
			// Queued past its deadline: the coordinator has already given up.
			if err := taskCtx.Err(); err != nil {
				done <- collectionResult{err: err}
				return
			}
			started := time.Now()
			papers, err := s.deps.Papers.Query(taskCtx, collection, vec, perCollection, offset)
			metrics.CollectionSearchDuration.WithLabelValues(collection).Observe(time.Since(started).Seconds())
			done <- collectionResult{papers: papers, err: err}
		}
		// Submit blocks while the pool is saturated; the wait counts against the task deadline.
		go func() {
			if err := s.deps.Pool.Submit(task); err != nil {
				done <- collectionResult{err: fmt.Errorf("%w: %w", errRejected, err)}
			}
		}()
	}

	results := make([]collectionResult, len(selected))
	for i, t := range tasks {
		select {
		case results[i] = <-t.done:
		case <-t.ctx.Done():
			results[i] = collectionResult{err: fmt.Errorf("collection search: %w", t.ctx.Err())}
		}
		t.cancel()
	}

	for i := range results {
		collection := selected[i].CollectionID
		err := results[i].err
		switch {
		case err == nil:
			metrics.CollectionSearchTotal.WithLabelValues(collection, "ok").Inc()
		case errors.Is(err, errRejected):
			metrics.CollectionSearchTotal.WithLabelValues(collection, "rejected").Inc()
			log.Error("Collection search rejected by pool", zap.String("collection", collection), zap.Error(err))
		case errors.Is(err, context.DeadlineExceeded):
			metrics.CollectionSearchTotal.WithLabelValues(collection, "timeout").Inc()
			log.Warn("Collection search timed out", zap.String("collection", collection), zap.Error(err))
		default:
			metrics.CollectionSearchTotal.WithLabelValues(collection, "error").Inc()
			log.Warn("Collection search failed", zap.String("collection", collection), zap.Error(err))
		}
		if err != nil {
			results[i].papers = nil
		}
		for j := range results[i].papers {
			results[i].papers[j].Collection = collection
		}
	}
	return results
}

// reward reinforces every collection that returned at least one hit.
func (s *Service) reward(ctx context.Context, log *zap.Logger, selected []domain.Route, results []collectionResult) {
	for i, r := range results {
		if len(r.papers) == 0 {
			continue
		}
		id := selected[i].CollectionID
		if _, err := s.deps.Rewarder.ApplyReward(ctx, id, s.cfg.Reward); err != nil {
			log.Error("Reward failed", zap.String("collection", id), zap.Error(err))
		}
	}
}

// merge concatenates results in selection order and sorts them by similarity.
// Equal scores keep per-collection return order.
func merge(results []collectionResult, limit int) []domain.Paper {
	var n int
	for _, r := range results {
		n += len(r.papers)
	}
	merged := make([]domain.Paper, 0, n)
	for _, r := range results {
		merged = append(merged, r.papers...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
