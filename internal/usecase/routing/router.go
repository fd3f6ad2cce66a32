package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// initConcurrency bounds description embeddings when the provider has no batch endpoint.
const initConcurrency = 4

// routeVectors is the immutable per-collection embedding table, in catalog order.
type routeVectors struct {
	vecs  [][]float32
	norms []float64
	dim   int
}

// Router ranks collections by cosine similarity between a query embedding and
// each collection description's embedding.
type Router struct {
	catalog  *domain.Catalog
	embedder domain.Embedder
	vectors  atomic.Pointer[routeVectors]
	initMu   sync.Mutex
	logger   *zap.Logger
}

// NewRouter creates a router. It is not ready until Init succeeds.
func NewRouter(catalog *domain.Catalog, embedder domain.Embedder, logger *zap.Logger) *Router {
	return &Router{catalog: catalog, embedder: embedder, logger: logger}
}

// Ready reports whether collection vectors are available.
func (r *Router) Ready() bool {
	return r.vectors.Load() != nil
}

// Init embeds every collection description once. Safe to call again after a failure;
// a ready router returns immediately.
func (r *Router) Init(ctx context.Context) error {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	if r.Ready() {
		return nil
	}

	descriptions := r.catalog.Descriptions()
	vecs, err := r.embedDescriptions(domain.WithoutUsage(ctx), descriptions)
	if err != nil {
		return fmt.Errorf("embed collection descriptions: %w", err)
	}

	rv, err := buildRouteVectors(vecs)
	if err != nil {
		return err
	}

	r.vectors.Store(rv)
	r.logger.Info("Router initialized",
		zap.Int("collections", len(vecs)),
		zap.Int("dimensions", rv.dim),
	)
	return nil
}

// EnsureReady retries Init when the router is not ready yet.
func (r *Router) EnsureReady(ctx context.Context) bool {
	if r.Ready() {
		return true
	}
	if err := r.Init(ctx); err != nil {
		r.logger.Warn("Router initialization retry failed", zap.Error(err))
		return false
	}
	return true
}

func (r *Router) embedDescriptions(ctx context.Context, texts []string) ([][]float32, error) {
	if be, ok := r.embedder.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("batch embed: %w", err)
		}
		if len(res.Embeddings) != len(texts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d descriptions",
				domain.ErrEmbeddingProviderError, len(res.Embeddings), len(texts))
		}
		return res.Embeddings, nil
	}

	vecs := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(initConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			res, err := r.embedder.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("description %d: %w", i, err)
			}
			vecs[i] = res.Embedding
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped per description
	}
	return vecs, nil
}

func buildRouteVectors(vecs [][]float32) (*routeVectors, error) {
	if len(vecs) == 0 {
		return nil, errors.New("no collection vectors")
	}
	dim := len(vecs[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty collection vector", domain.ErrEmbeddingProviderError)
	}

	rv := &routeVectors{
		vecs:  make([][]float32, len(vecs)),
		norms: make([]float64, len(vecs)),
		dim:   dim,
	}
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: collection %d has %d dimensions, expected %d",
				domain.ErrVectorDimMismatch, i, len(v), dim)
		}
		rv.vecs[i] = append([]float32(nil), v...)
		rv.norms[i] = norm(v)
	}
	return rv, nil
}

// Rank scores every collection against the query vector and returns the topK,
// best first. Exact ties keep catalog order. Returns an empty ranking when the
// router is not ready, the vector is empty or its dimension differs.
func (r *Router) Rank(queryVec []float32, topK int) []domain.Route {
	rv := r.vectors.Load()
	switch {
	case rv == nil:
		r.logger.Warn("Routing skipped: router not initialized")
		return []domain.Route{}
	case len(queryVec) == 0:
		r.logger.Warn("Routing skipped: empty query vector")
		return []domain.Route{}
	case len(queryVec) != rv.dim:
		r.logger.Warn("Routing skipped: query vector dimension mismatch",
			zap.Int("got", len(queryVec)), zap.Int("expected", rv.dim))
		return []domain.Route{}
	case topK <= 0:
		return []domain.Route{}
	}

	qNorm := norm(queryVec)
	collections := r.catalog.All()
	routes := make([]domain.Route, len(collections))
	for i, col := range collections {
		routes[i] = domain.Route{
			CollectionID: col.ID,
			DisplayName:  r.catalog.DisplayName(col.ID),
			Semantic:     cosine(queryVec, qNorm, rv.vecs[i], rv.norms[i]),
		}
	}

	sort.SliceStable(routes, func(i, j int) bool { return routes[i].Semantic > routes[j].Semantic })

	if topK < len(routes) {
		routes = routes[:topK]
	}
	return routes
}

// RankText embeds text and ranks collections against it.
// Embedding failures yield an empty ranking.
func (r *Router) RankText(ctx context.Context, text string, topK int) []domain.Route {
	if !r.EnsureReady(ctx) {
		return []domain.Route{}
	}
	res, err := r.embedder.Embed(ctx, text)
	if err != nil {
		r.logger.Warn("Routing skipped: query embedding failed", zap.Error(err))
		return []domain.Route{}
	}
	return r.Rank(res.Embedding, topK)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero norm.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
