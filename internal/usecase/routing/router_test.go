package routing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// mapEmbedder returns a fixed vector per text.
type mapEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   atomic.Int32
}

func (m *mapEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	v, ok := m.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, errors.New("unknown text: " + text)
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func (m *mapEmbedder) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// batchMapEmbedder adds a batch endpoint on top of mapEmbedder.
type batchMapEmbedder struct {
	*mapEmbedder
	batchCalls atomic.Int32
}

func (b *batchMapEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	b.batchCalls.Add(1)
	return domain.BatchFallback(ctx, b.mapEmbedder, texts)
}

func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	cat, err := domain.NewCatalog([]domain.Collection{
		{ID: "alpha", DisplayName: "Alpha", Description: "desc-alpha"},
		{ID: "beta", DisplayName: "Beta", Description: "desc-beta"},
		{ID: "gamma", Description: "desc-gamma"},
	})
	require.NoError(t, err)
	return cat
}

func testVectors() map[string][]float32 {
	return map[string][]float32{
		"desc-alpha": {1, 0, 0},
		"desc-beta":  {0, 1, 0},
		"desc-gamma": {0, 0, 1},
		"query":      {0.2, 0.9, 0.1},
	}
}

func newReadyRouter(t *testing.T) *Router {
	t.Helper()
	r := NewRouter(testCatalog(t), &mapEmbedder{vectors: testVectors()}, zap.NewNop())
	require.NoError(t, r.Init(context.Background()))
	return r
}

func TestRouter_NotReadyBeforeInit(t *testing.T) {
	r := NewRouter(testCatalog(t), &mapEmbedder{vectors: testVectors()}, zap.NewNop())

	assert.False(t, r.Ready())
	assert.Empty(t, r.Rank([]float32{1, 0, 0}, 3))
}

func TestRouter_Init_UsesBatchEndpoint(t *testing.T) {
	emb := &batchMapEmbedder{mapEmbedder: &mapEmbedder{vectors: testVectors()}}
	r := NewRouter(testCatalog(t), emb, zap.NewNop())

	require.NoError(t, r.Init(context.Background()))
	assert.True(t, r.Ready())
	assert.Equal(t, int32(1), emb.batchCalls.Load())
}

func TestRouter_Init_Idempotent(t *testing.T) {
	emb := &mapEmbedder{vectors: testVectors()}
	r := NewRouter(testCatalog(t), emb, zap.NewNop())

	require.NoError(t, r.Init(context.Background()))
	require.NoError(t, r.Init(context.Background()))
	assert.Equal(t, int32(3), emb.calls.Load())
}

func TestRouter_Init_FailureIsRetryable(t *testing.T) {
	emb := &mapEmbedder{vectors: testVectors(), err: errors.New("provider down")}
	r := NewRouter(testCatalog(t), emb, zap.NewNop())

	err := r.Init(context.Background())
	require.Error(t, err)
	assert.False(t, r.Ready())

	emb.setErr(nil)
	require.NoError(t, r.Init(context.Background()))
	assert.True(t, r.Ready())
}

func TestRouter_Init_DimensionMismatch(t *testing.T) {
	vecs := testVectors()
	vecs["desc-gamma"] = []float32{0, 1}
	r := NewRouter(testCatalog(t), &mapEmbedder{vectors: vecs}, zap.NewNop())

	err := r.Init(context.Background())
	require.ErrorIs(t, err, domain.ErrVectorDimMismatch)
	assert.False(t, r.Ready())
}

func TestRouter_Rank_OrdersBySimilarity(t *testing.T) {
	r := newReadyRouter(t)

	routes := r.Rank([]float32{0.2, 0.9, 0.1}, 3)

	require.Len(t, routes, 3)
	assert.Equal(t, []string{"beta", "alpha", "gamma"}, domain.RouteIDs(routes))
	assert.Equal(t, "Beta", routes[0].DisplayName)
	assert.Equal(t, "gamma", routes[2].DisplayName)
	for i := 1; i < len(routes); i++ {
		assert.GreaterOrEqual(t, routes[i-1].Semantic, routes[i].Semantic)
	}
}

func TestRouter_Rank_TruncatesToTopK(t *testing.T) {
	r := newReadyRouter(t)

	routes := r.Rank([]float32{1, 0, 0}, 1)
	require.Len(t, routes, 1)
	assert.Equal(t, "alpha", routes[0].CollectionID)
	assert.InDelta(t, 1.0, routes[0].Semantic, 1e-9)

	assert.Len(t, r.Rank([]float32{1, 0, 0}, 10), 3)
	assert.Empty(t, r.Rank([]float32{1, 0, 0}, 0))
}

func TestRouter_Rank_TiesKeepCatalogOrder(t *testing.T) {
	r := newReadyRouter(t)

	routes := r.Rank([]float32{1, 1, 1}, 3)

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, domain.RouteIDs(routes))
}

func TestRouter_Rank_InvalidVectors(t *testing.T) {
	r := newReadyRouter(t)

	assert.Empty(t, r.Rank(nil, 3))
	assert.Empty(t, r.Rank([]float32{1, 0}, 3))
}

func TestRouter_Rank_ZeroVectorScoresZero(t *testing.T) {
	r := newReadyRouter(t)

	routes := r.Rank([]float32{0, 0, 0}, 3)

	require.Len(t, routes, 3)
	for _, rt := range routes {
		assert.Zero(t, rt.Semantic)
	}
}

func TestRouter_RankText(t *testing.T) {
	r := newReadyRouter(t)

	routes := r.RankText(context.Background(), "query", 1)

	require.Len(t, routes, 1)
	assert.Equal(t, "beta", routes[0].CollectionID)
}

func TestRouter_RankText_EmbeddingFailure(t *testing.T) {
	r := newReadyRouter(t)

	assert.Empty(t, r.RankText(context.Background(), "not-in-map", 3))
}

func TestRouter_RankText_LazyInit(t *testing.T) {
	emb := &mapEmbedder{vectors: testVectors(), err: errors.New("down")}
	r := NewRouter(testCatalog(t), emb, zap.NewNop())
	require.Error(t, r.Init(context.Background()))

	emb.setErr(nil)
	routes := r.RankText(context.Background(), "query", 3)

	assert.True(t, r.Ready())
	assert.Len(t, routes, 3)
}

func TestRouter_ConcurrentRank(t *testing.T) {
	r := newReadyRouter(t)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			routes := r.Rank([]float32{0.2, 0.9, 0.1}, 2)
			assert.Equal(t, []string{"beta", "alpha"}, domain.RouteIDs(routes))
		}()
	}
	wg.Wait()
}
