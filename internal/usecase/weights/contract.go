package weights

import "context"

// Persister loads and saves the full weight table.
type Persister interface {
	LoadAll(ctx context.Context) (map[string]float64, error)
	SaveAll(ctx context.Context, table map[string]float64) error
}
