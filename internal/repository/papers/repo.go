package papers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/scholargraph/internal/db"
	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// store is the consumer interface for paper lookups (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo is the vector search backend over per-collection FT indexes.
type Repo struct {
	store store
}

// New creates a papers repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Query returns the [offset, offset+limit) window of nearest papers in a collection.
// Concepts are capped for listings.
func (r *Repo) Query(
	ctx context.Context, collection string, vector []float32, limit, offset int,
) ([]domain.Paper, error) {
	q := &db.KNNQuery{
		IndexName:    domain.IndexName(collection),
		Vector:       vector,
		Offset:       offset,
		Limit:        limit,
		ReturnFields: payloadFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", collection, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	prefix := domain.DocumentKeyPrefix(collection)
	out := make([]domain.Paper, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id, err := domain.ParsePointID(strings.TrimPrefix(entry.Key, prefix))
		if err != nil {
			continue
		}
		p := parsePaper(id, collection, entry.Fields)
		p.Score = entry.Score
		p.TruncateConcepts(domain.SearchConceptLimit)
		out = append(out, p)
	}
	return out, nil
}

// Retrieve loads one paper with its full payload.
// A missing hash is reported as domain.ErrNotFound.
func (r *Repo) Retrieve(ctx context.Context, collection string, id domain.PointID) (domain.Paper, error) {
	key := domain.DocumentKeyPrefix(collection) + id.String()

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Paper{}, fmt.Errorf("paper %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		return domain.Paper{}, fmt.Errorf("retrieve %s/%s: %w", collection, id, err)
	}
	if len(fields) == 0 {
		return domain.Paper{}, fmt.Errorf("paper %s/%s: %w", collection, id, domain.ErrNotFound)
	}

	delete(fields, fieldVector)
	return parsePaper(id, collection, fields), nil
}
