package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/domain"
	weightsrepo "github.com/kailas-cloud/scholargraph/internal/repository/weights"
	"github.com/kailas-cloud/scholargraph/internal/usecase/routing"
	"github.com/kailas-cloud/scholargraph/internal/usecase/weights"
)

var testCollections = []domain.Collection{
	{ID: "cs_ai_full", DisplayName: "All CS & AI", Description: "desc-all"},
	{ID: "ML_collection", DisplayName: "Machine Learning", Description: "desc-ml"},
	{ID: "dl_collection", DisplayName: "Deep Learning", Description: "desc-dl"},
	{ID: "cv_collection", DisplayName: "Computer Vision", Description: "desc-cv"},
	{ID: "nlp_collection", DisplayName: "NLP", Description: "desc-nlp"},
	{ID: "RL_collection", DisplayName: "Reinforcement Learning", Description: "desc-rl"},
	{ID: "other_cs", DisplayName: "Other CS", Description: "desc-other"},
}

func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	cat, err := domain.NewCatalog(testCollections)
	require.NoError(t, err)
	return cat
}

// routingEmbedder maps each description to a one-hot vector and any other text to query.
type routingEmbedder struct {
	query []float32
}

func (e *routingEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	for i, c := range testCollections {
		if c.Description == text {
			v := make([]float32, len(testCollections))
			v[i] = 1
			return domain.EmbeddingResult{Embedding: v}, nil
		}
	}
	return domain.EmbeddingResult{Embedding: e.query}, nil
}

func newFixedService(t *testing.T, papers *fakePapers, rewarder *fakeRewarder, cfg Config) *Service {
	t.Helper()
	router := &fixedRouter{ready: true, routes: []domain.Route{
		{CollectionID: "ML_collection"},
		{CollectionID: "dl_collection"},
		{CollectionID: "nlp_collection"},
		{CollectionID: "cv_collection"},
	}}
	return New(Deps{
		Expander: &fakeExpander{out: "expanded"},
		Embedder: &fakeEmbedder{vec: []float32{1, 0}},
		Router:   router,
		Selector: passSelector{},
		Papers:   papers,
		Rewarder: rewarder,
		Pool:     goPool{},
		Catalog:  testCatalog(t),
	}, cfg, zap.NewNop())
}

func TestSearch_EndToEnd_SevenCollections(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog(t)

	// ML > DL > NLP > CV by similarity, the rest near zero.
	emb := &routingEmbedder{query: []float32{0.05, 0.9, 0.8, 0.2, 0.7, 0.1, 0.0}}
	router := routing.NewRouter(catalog, emb, zap.NewNop())
	require.NoError(t, router.Init(ctx))

	store := weights.New(weightsrepo.NewMemoryStore(nil), zap.NewNop())
	store.Load(ctx)
	before := store.Snapshot()

	pool, err := ants.NewPool(3)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	fp := &fakePapers{results: map[string][]domain.Paper{
		"ML_collection":  papers("ml", 0.95, 0.80, 0.65, 0.50, 0.35),
		"dl_collection":  papers("dl", 0.90, 0.75, 0.60, 0.45, 0.30),
		"nlp_collection": papers("nlp", 0.85, 0.70, 0.55, 0.40, 0.25),
		"cv_collection":  papers("cv", 0.99),
	}}

	svc := New(Deps{
		Expander: &fakeExpander{err: domain.ErrLLMUnavailable},
		Embedder: emb,
		Router:   router,
		Selector: routing.NewHybridRanker(store, catalog, 0.2),
		Papers:   fp,
		Rewarder: store,
		Pool:     pool,
		Catalog:  catalog,
	}, Config{}, zap.NewNop())

	page := svc.Search(ctx, "transformer attention models", 1, 15)

	require.Len(t, page.Routed, 3)
	assert.Equal(t, []string{"ML_collection", "dl_collection", "nlp_collection"}, domain.RouteIDs(page.Routed))
	assert.Equal(t, "Machine Learning", page.Routed[0].DisplayName)

	require.Len(t, page.Results, 15)
	assert.True(t, sort.SliceIsSorted(page.Results, func(i, j int) bool {
		return page.Results[i].Score > page.Results[j].Score
	}))
	assert.InDelta(t, 0.95, page.Results[0].Score, 1e-9)
	assert.InDelta(t, 0.25, page.Results[14].Score, 1e-9)
	for _, p := range page.Results {
		assert.NotEqual(t, "cv_collection", p.Collection)
		assert.NotEmpty(t, p.DisplayCollection)
	}

	for _, c := range fp.recorded() {
		assert.Equal(t, 5, c.limit)
		assert.Equal(t, 0, c.offset)
	}

	for _, id := range []string{"ML_collection", "dl_collection", "nlp_collection"} {
		_, seen := before[id]
		assert.False(t, seen)
		assert.InDelta(t, 1.5, store.Weight(id), 1e-12, id)
	}
	assert.InDelta(t, 1.0, store.Weight("cv_collection"), 1e-12)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, "transformer attention models", page.Query)
	assert.Equal(t, "transformer attention models", page.ExpandedQuery)
	assert.True(t, page.HasNext)
	assert.GreaterOrEqual(t, page.Latency, 0.0)
}

func TestSearch_PaginationPassedToEveryCollection(t *testing.T) {
	fp := &fakePapers{}
	svc := newFixedService(t, fp, &fakeRewarder{}, Config{})

	svc.Search(context.Background(), "graph neural networks", 2, 15)

	calls := fp.recorded()
	require.Len(t, calls, 3)
	for _, c := range calls {
		assert.Equal(t, 5, c.limit)
		assert.Equal(t, 5, c.offset)
	}
}

func TestSearch_SingleCollectionPagination(t *testing.T) {
	fp := &fakePapers{}
	svc := newFixedService(t, fp, &fakeRewarder{}, Config{Selected: 1})

	svc.Search(context.Background(), "graph neural networks", 1, 10)

	calls := fp.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, queryCall{collection: "ML_collection", limit: 10, offset: 0}, calls[0])
}

func TestSearch_ClampsPageAndLimit(t *testing.T) {
	fp := &fakePapers{}
	svc := newFixedService(t, fp, &fakeRewarder{}, Config{Selected: 1, DefaultLimit: 15, MaxLimit: 50})

	page := svc.Search(context.Background(), "query", 0, 0)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 15, fp.recorded()[0].limit)

	svc.Search(context.Background(), "query", 1, 1000)
	assert.Equal(t, 50, fp.recorded()[1].limit)
}

func TestSearch_ExpansionFailureUsesOriginalQuery(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	svc := New(Deps{
		Expander: &fakeExpander{err: errors.New("llm timeout")},
		Embedder: embedder,
		Router:   &fixedRouter{ready: true, routes: []domain.Route{{CollectionID: "ML_collection"}}},
		Selector: passSelector{},
		Papers:   &fakePapers{},
		Rewarder: &fakeRewarder{},
		Pool:     goPool{},
		Catalog:  testCatalog(t),
	}, Config{}, zap.NewNop())

	page := svc.Search(context.Background(), "attention is all you need", 1, 10)

	assert.Equal(t, []string{"attention is all you need"}, embedder.embedded())
	assert.Equal(t, "attention is all you need", page.ExpandedQuery)
}

func TestSearch_EmptyExpansionUsesOriginalQuery(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	svc := New(Deps{
		Expander: &fakeExpander{out: "   "},
		Embedder: embedder,
		Router:   &fixedRouter{ready: true},
		Selector: passSelector{},
		Papers:   &fakePapers{},
		Rewarder: &fakeRewarder{},
		Pool:     goPool{},
		Catalog:  testCatalog(t),
	}, Config{}, zap.NewNop())

	svc.Search(context.Background(), "original", 1, 10)

	assert.Equal(t, []string{"original"}, embedder.embedded())
}

func TestSearch_EmbedsExpandedQueryOnce(t *testing.T) {
	fp := &fakePapers{}
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	router := &fixedRouter{ready: true, routes: []domain.Route{
		{CollectionID: "ML_collection"}, {CollectionID: "dl_collection"},
	}}
	svc := New(Deps{
		Expander: &fakeExpander{out: "neural attention transformer"},
		Embedder: embedder,
		Router:   router,
		Selector: passSelector{},
		Papers:   fp,
		Rewarder: &fakeRewarder{},
		Pool:     goPool{},
		Catalog:  testCatalog(t),
	}, Config{Candidates: 4}, zap.NewNop())

	page := svc.Search(context.Background(), "transformers", 1, 10)

	assert.Equal(t, []string{"neural attention transformer"}, embedder.embedded())
	assert.Equal(t, "neural attention transformer", page.ExpandedQuery)
	assert.Equal(t, 4, router.topK)
	assert.Len(t, fp.recorded(), 2)
}

func TestSearch_FailedCollectionIsIsolated(t *testing.T) {
	fp := &fakePapers{
		results: map[string][]domain.Paper{
			"ML_collection":  papers("ml", 0.9, 0.8),
			"nlp_collection": papers("nlp", 0.85),
		},
		errs: map[string]error{"dl_collection": errors.New("index missing")},
	}
	rewarder := &fakeRewarder{}
	svc := newFixedService(t, fp, rewarder, Config{})

	page := svc.Search(context.Background(), "query", 1, 15)

	require.Len(t, page.Results, 3)
	assert.Len(t, page.Routed, 3)
	assert.GreaterOrEqual(t, page.Latency, 0.0)
	assert.False(t, page.HasNext)
	assert.Equal(t, map[string]float64{"ML_collection": 0.5, "nlp_collection": 0.5}, rewarder.snapshot())
}

func TestSearch_SlowCollectionTimesOut(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	fp := &fakePapers{
		results: map[string][]domain.Paper{
			"ML_collection":  papers("ml", 0.9),
			"dl_collection":  papers("dl", 0.8),
			"nlp_collection": papers("nlp", 0.7),
		},
		block: map[string]chan struct{}{"dl_collection": release},
	}
	rewarder := &fakeRewarder{}
	svc := newFixedService(t, fp, rewarder, Config{CollectionTimeout: 50 * time.Millisecond})

	started := time.Now()
	page := svc.Search(context.Background(), "query", 1, 15)

	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, []string{"ML_collection", "nlp_collection"}, collectionsOf(page.Results))
	assert.NotContains(t, rewarder.snapshot(), "dl_collection")
}

func TestSearch_ZeroHitsNoReward(t *testing.T) {
	rewarder := &fakeRewarder{}
	svc := newFixedService(t, &fakePapers{}, rewarder, Config{})

	page := svc.Search(context.Background(), "query", 1, 15)

	assert.Empty(t, page.Results)
	assert.Len(t, page.Routed, 3)
	assert.Empty(t, rewarder.snapshot())
}

func TestSearch_RewardFailureDoesNotFailSearch(t *testing.T) {
	fp := &fakePapers{results: map[string][]domain.Paper{"ML_collection": papers("ml", 0.9)}}
	svc := newFixedService(t, fp, &fakeRewarder{err: errors.New("disk full")}, Config{})

	page := svc.Search(context.Background(), "query", 1, 15)

	assert.Len(t, page.Results, 1)
}

func TestSearch_RouterNotReady(t *testing.T) {
	fp := &fakePapers{}
	embedder := &fakeEmbedder{vec: []float32{1}}
	svc := New(Deps{
		Embedder: embedder,
		Router:   &fixedRouter{ready: false},
		Selector: passSelector{},
		Papers:   fp,
		Rewarder: &fakeRewarder{},
		Pool:     goPool{},
		Catalog:  testCatalog(t),
	}, Config{}, zap.NewNop())

	page := svc.Search(context.Background(), "query", 3, 15)

	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
	assert.NotNil(t, page.Routed)
	assert.Empty(t, page.Routed)
	assert.Zero(t, page.Latency)
	assert.Equal(t, 3, page.Page)
	assert.Empty(t, embedder.embedded())
	assert.Empty(t, fp.recorded())
}

func TestSearch_EmbeddingFailureSkipsSearch(t *testing.T) {
	fp := &fakePapers{}
	svc := New(Deps{
		Embedder: &fakeEmbedder{err: domain.ErrEmbeddingProviderError},
		Router:   &fixedRouter{ready: true, routes: []domain.Route{{CollectionID: "ML_collection"}}},
		Selector: passSelector{},
		Papers:   fp,
		Rewarder: &fakeRewarder{},
		Pool:     goPool{},
		Catalog:  testCatalog(t),
	}, Config{}, zap.NewNop())

	page := svc.Search(context.Background(), "query", 1, 15)

	assert.Empty(t, page.Routed)
	assert.Zero(t, page.Latency)
	assert.Empty(t, fp.recorded())
}

func TestSearch_PoolRejectionYieldsNoResults(t *testing.T) {
	fp := &fakePapers{results: map[string][]domain.Paper{"ML_collection": papers("ml", 0.9)}}
	rewarder := &fakeRewarder{}
	svc := New(Deps{
		Embedder: &fakeEmbedder{vec: []float32{1}},
		Router:   &fixedRouter{ready: true, routes: []domain.Route{{CollectionID: "ML_collection"}}},
		Selector: passSelector{},
		Papers:   fp,
		Rewarder: rewarder,
		Pool:     closedPool{},
		Catalog:  testCatalog(t),
	}, Config{}, zap.NewNop())

	page := svc.Search(context.Background(), "query", 1, 15)

	assert.Empty(t, page.Results)
	assert.Len(t, page.Routed, 1)
	assert.Empty(t, rewarder.snapshot())
}

func TestSearch_ConcurrentRequestsShareSaturatedPool(t *testing.T) {
	const requests = 4

	// Fewer workers than one request's fan-out: tasks must queue, not drop.
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	fp := &fakePapers{
		results: map[string][]domain.Paper{
			"ML_collection":  papers("ml", 0.9),
			"dl_collection":  papers("dl", 0.8),
			"nlp_collection": papers("nlp", 0.7),
		},
		delay: 50 * time.Millisecond,
	}
	svc := New(Deps{
		Embedder: &fakeEmbedder{vec: []float32{1}},
		Router: &fixedRouter{ready: true, routes: []domain.Route{
			{CollectionID: "ML_collection"},
			{CollectionID: "dl_collection"},
			{CollectionID: "nlp_collection"},
		}},
		Selector: passSelector{},
		Papers:   fp,
		Rewarder: &fakeRewarder{},
		Pool:     pool,
		Catalog:  testCatalog(t),
	}, Config{CollectionTimeout: 10 * time.Second}, zap.NewNop())

	counts := make([]int, requests)
	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counts[i] = len(svc.Search(context.Background(), "query", 1, 15).Results)
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{3, 3, 3, 3}, counts)
	assert.Len(t, fp.recorded(), requests*3)
}

func TestSearch_QueuedPastDeadlineSkipsBackend(t *testing.T) {
	pool, err := ants.NewPool(1)
	require.NoError(t, err)

	release := make(chan struct{})
	fp := &fakePapers{
		results: map[string][]domain.Paper{
			"ML_collection": papers("ml", 0.9),
			"dl_collection": papers("dl", 0.8),
		},
		block: map[string]chan struct{}{"ML_collection": release, "dl_collection": release},
	}
	svc := New(Deps{
		Embedder: &fakeEmbedder{vec: []float32{1}},
		Router: &fixedRouter{ready: true, routes: []domain.Route{
			{CollectionID: "ML_collection"},
			{CollectionID: "dl_collection"},
		}},
		Selector: passSelector{},
		Papers:   fp,
		Rewarder: &fakeRewarder{},
		Pool:     pool,
		Catalog:  testCatalog(t),
	}, Config{CollectionTimeout: 50 * time.Millisecond}, zap.NewNop())

	page := svc.Search(context.Background(), "query", 1, 15)
	assert.Empty(t, page.Results)

	// One collection holds the only worker; the other is still queued.
	require.Eventually(t, func() bool { return pool.Waiting() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	require.Eventually(t, func() bool { return pool.Waiting() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, pool.ReleaseTimeout(time.Second))

	assert.Len(t, fp.recorded(), 1, "the queued collection expired before it reached a worker")
}

func TestSearch_MergeTruncatesAndKeepsCollectionOrderOnTies(t *testing.T) {
	fp := &fakePapers{results: map[string][]domain.Paper{
		"ML_collection":  papers("ml", 0.5, 0.4),
		"dl_collection":  papers("dl", 0.5, 0.4),
		"nlp_collection": papers("nlp", 0.5, 0.4),
	}}
	svc := newFixedService(t, fp, &fakeRewarder{}, Config{})

	page := svc.Search(context.Background(), "query", 1, 4)

	require.Len(t, page.Results, 4)
	assert.Equal(t, []string{"ML_collection", "dl_collection", "nlp_collection", "ML_collection"},
		collectionsOf(page.Results))
	assert.True(t, strings.HasPrefix(page.Results[3].ID.String(), "ml-"))
	assert.Equal(t, "Machine Learning", page.Results[0].DisplayCollection)
	assert.True(t, page.HasNext)
}

func collectionsOf(results []domain.Paper) []string {
	out := make([]string, len(results))
	for i, p := range results {
		out[i] = p.Collection
	}
	return out
}
