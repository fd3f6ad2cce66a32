package search

import (
	"context"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// Expander rewrites a query into search-friendly keywords.
type Expander interface {
	Expand(ctx context.Context, query string) (string, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Router ranks collections against a precomputed query embedding.
type Router interface {
	EnsureReady(ctx context.Context) bool
	Rank(queryVec []float32, topK int) []domain.Route
}

// Selector reranks routed candidates and keeps the best n.
type Selector interface {
	Select(cands []domain.Route, n int) []domain.Route
}

// Papers runs a similarity query against one collection.
type Papers interface {
	Query(ctx context.Context, collection string, vector []float32, limit, offset int) ([]domain.Paper, error)
}

// Rewarder reinforces collections that produced hits.
type Rewarder interface {
	ApplyReward(ctx context.Context, id string, amount float64) (float64, error)
}

// Pool executes fan-out tasks. *ants.Pool satisfies it.
type Pool interface {
	Submit(task func()) error
}
