package weights

import (
	"context"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/logger"
)

const badgerKeyPrefix = "weight:"

// BadgerStore keeps one key per collection in an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger directory. An empty path opens an in-memory instance.
func OpenBadger(path string, l *zap.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = logger.NewBadgerLogger(l)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// LoadAll reads every weight key.
func (b *BadgerStore) LoadAll(_ context.Context) (map[string]float64, error) {
	out := make(map[string]float64)
	prefix := []byte(badgerKeyPrefix)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", item.Key(), err)
			}
			w, err := parseWeight(string(val))
			if err != nil {
				return fmt.Errorf("weight %s: %w", id, err)
			}
			out[id] = w
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger load weights: %w", err)
	}
	return out, nil
}

// SaveAll replaces the stored table in one transaction. Keys for ids missing
// from table, including undecodable ones, are deleted.
func (b *BadgerStore) SaveAll(_ context.Context, table map[string]float64) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, key := range staleKeys(txn, table) {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		for id, w := range table {
			if err := txn.Set([]byte(badgerKeyPrefix+id), []byte(formatWeight(w))); err != nil {
				return fmt.Errorf("set %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger save weights: %w", err)
	}
	return nil
}

func staleKeys(txn *badger.Txn, table map[string]float64) [][]byte {
	prefix := []byte(badgerKeyPrefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var stale [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		if _, ok := table[string(key[len(prefix):])]; !ok {
			stale = append(stale, key)
		}
	}
	return stale
}

// Close releases the Badger directory lock.
func (b *BadgerStore) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}
