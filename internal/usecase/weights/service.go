package weights

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/domain"
	"github.com/kailas-cloud/scholargraph/internal/metrics"
)

// DefaultWeight is the implicit weight of a collection that was never rewarded or decayed.
const DefaultWeight = 1.0

// Store is the in-memory learned weight table with write-through persistence.
// Reads take a read lock only and never wait on persistence.
// Mutations are serialized end to end: read-modify-write-persist runs under mutMu.
type Store struct {
	mutMu     sync.Mutex
	mu        sync.RWMutex
	table     map[string]float64
	persister Persister
	logger    *zap.Logger
}

// New creates an empty weight store. Call Load to restore persisted state.
func New(p Persister, logger *zap.Logger) *Store {
	return &Store{
		table:     make(map[string]float64),
		persister: p,
		logger:    logger,
	}
}

// Load replaces the table with persisted state. Unreadable or corrupt state is
// logged and leaves the table empty, so startup continues with default weights.
func (s *Store) Load(ctx context.Context) {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()

	loaded, err := s.persister.LoadAll(ctx)
	if err != nil {
		metrics.WeightsPersistErrorsTotal.WithLabelValues("load").Inc()
		s.logger.Error("Failed to load collection weights, starting from defaults", zap.Error(err))
		loaded = nil
	}

	table := make(map[string]float64, len(loaded))
	maps.Copy(table, loaded)

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()

	for id, w := range table {
		metrics.CollectionWeight.WithLabelValues(id).Set(w)
	}
	s.logger.Info("Collection weights loaded", zap.Int("collections", len(table)))
}

// Weight returns the current weight of a collection, DefaultWeight if unseen.
func (s *Store) Weight(id string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.table[id]; ok {
		return w
	}
	return DefaultWeight
}

// Snapshot returns a copy of the stored weights. Unseen collections are absent.
func (s *Store) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.table)
}

// ApplyReward adds amount to the collection's weight and persists the table.
// Returns the new weight. Persistence failures are logged, not returned.
func (s *Store) ApplyReward(ctx context.Context, id string, amount float64) (float64, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidReward, amount)
	}

	s.mutMu.Lock()
	defer s.mutMu.Unlock()

	s.mu.Lock()
	w, ok := s.table[id]
	if !ok {
		w = DefaultWeight
	}
	w += amount
	s.table[id] = w
	snapshot := maps.Clone(s.table)
	s.mu.Unlock()

	metrics.CollectionWeight.WithLabelValues(id).Set(w)
	metrics.WeightRewardsTotal.WithLabelValues(id).Inc()

	s.persist(ctx, snapshot)
	return w, nil
}

// DecayAll multiplies every stored weight by rate, 0 < rate < 1, and persists the table.
// Collections that were never stored stay at the implicit default.
func (s *Store) DecayAll(ctx context.Context, rate float64) error {
	if !(rate > 0 && rate < 1) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidDecayRate, rate)
	}

	s.mutMu.Lock()
	defer s.mutMu.Unlock()

	s.mu.Lock()
	for id := range s.table {
		s.table[id] *= rate
	}
	snapshot := maps.Clone(s.table)
	s.mu.Unlock()

	for id, w := range snapshot {
		metrics.CollectionWeight.WithLabelValues(id).Set(w)
	}
	metrics.WeightDecaysTotal.Inc()

	s.persist(ctx, snapshot)
	s.logger.Info("Collection weights decayed", zap.Float64("rate", rate), zap.Int("collections", len(snapshot)))
	return nil
}

// persist writes the table through. A cancelled request must not drop the write.
func (s *Store) persist(ctx context.Context, snapshot map[string]float64) {
	if err := s.persister.SaveAll(context.WithoutCancel(ctx), snapshot); err != nil {
		metrics.WeightsPersistErrorsTotal.WithLabelValues("save").Inc()
		s.logger.Error("Failed to persist collection weights", zap.Error(err))
	}
}
