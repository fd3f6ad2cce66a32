package paper

import (
	"context"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// Retriever fetches a single paper by id.
type Retriever interface {
	Retrieve(ctx context.Context, collection string, id domain.PointID) (domain.Paper, error)
}

// Analyzer produces a Markdown analysis of a paper.
type Analyzer interface {
	Analyze(ctx context.Context, title, abstract string) (string, error)
}
