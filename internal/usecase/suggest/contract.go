package suggest

import (
	"context"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// Router ranks collections for raw text.
type Router interface {
	RankText(ctx context.Context, text string, topK int) []domain.Route
}

// WeightReader exposes learned collection weights.
type WeightReader interface {
	Weight(id string) float64
}
