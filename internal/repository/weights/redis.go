package weights

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// ErrCorrupt signals a stored weight table that cannot be decoded.
var ErrCorrupt = errors.New("corrupt weight table")

// hashStore is the consumer interface for Redis-backed weights (ISP).
type hashStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HReplace(ctx context.Context, key string, fields map[string]string) error
}

// RedisStore keeps the whole weight table in a single Redis hash.
type RedisStore struct {
	store hashStore
	key   string
}

// NewRedisStore creates a Redis-hash weight persister.
func NewRedisStore(s hashStore) *RedisStore {
	return &RedisStore{store: s, key: domain.KeyPrefix + "weights"}
}

// LoadAll reads the table. A missing hash is an empty table.
func (r *RedisStore) LoadAll(ctx context.Context) (map[string]float64, error) {
	raw, err := r.store.HGetAll(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("weights HGETALL %s: %w", r.key, err)
	}

	out := make(map[string]float64, len(raw))
	for id, s := range raw {
		w, err := parseWeight(s)
		if err != nil {
			return nil, fmt.Errorf("weights %s field %s: %w", r.key, id, err)
		}
		out[id] = w
	}
	return out, nil
}

// SaveAll atomically replaces the hash with table, dropping fields it no longer holds.
func (r *RedisStore) SaveAll(ctx context.Context, table map[string]float64) error {
	fields := make(map[string]string, len(table))
	for id, w := range table {
		fields[id] = formatWeight(w)
	}
	if err := r.store.HReplace(ctx, r.key, fields); err != nil {
		return fmt.Errorf("weights replace %s: %w", r.key, err)
	}
	return nil
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'g', -1, 64)
}

// parseWeight accepts finite non-negative floats only.
func parseWeight(s string) (float64, error) {
	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrCorrupt, s)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0, fmt.Errorf("%w: %q is out of range", ErrCorrupt, s)
	}
	return w, nil
}
