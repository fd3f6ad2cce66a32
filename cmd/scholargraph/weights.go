package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/config"
	dbRedis "github.com/kailas-cloud/scholargraph/internal/db/redis"
	weightsuc "github.com/kailas-cloud/scholargraph/internal/usecase/weights"
)

// weightRow is one line of the weights table.
type weightRow struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

func decayCommand(c *cli.Context) error {
	if c.IsSet("rate") {
		if rate := c.Float64("rate"); !(rate > 0 && rate < 1) {
			return fmt.Errorf("--rate must be in (0, 1), got %g", rate)
		}
	}

	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	if rt.cfg.Weights.Driver == config.WeightsDriverMemory {
		return errors.New("decay needs a persistent weights driver, got memory")
	}

	rate := rt.cfg.Weights.DecayRate
	if c.IsSet("rate") {
		rate = c.Float64("rate")
	}

	return withWeights(c.Context, rt, func(ctx context.Context, w *weightsuc.Store) error {
		if err := w.DecayAll(ctx, rate); err != nil {
			return fmt.Errorf("decay weights: %w", err)
		}
		return printWeights(c, rt.cfg.Collections, w)
	})
}

func weightsCommand(c *cli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	return withWeights(c.Context, rt, func(_ context.Context, w *weightsuc.Store) error {
		return printWeights(c, rt.cfg.Collections, w)
	})
}

// withWeights opens the configured persister, loads the weight table and runs fn.
func withWeights(ctx context.Context, rt runtimeEnv, fn func(context.Context, *weightsuc.Store) error) error {
	var store *dbRedis.Store
	if rt.cfg.Weights.Driver == config.WeightsDriverRedis {
		s, err := openStore(ctx, rt.cfg.Database)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	persister, closePersister, err := openPersister(rt.cfg.Weights, store, rt.logger)
	if err != nil {
		return err
	}
	defer closePersister()

	w := weightsuc.New(persister, rt.logger.Named("weights"))
	w.Load(ctx)
	return fn(ctx, w)
}

// printWeights writes the catalog in configuration order with current weights.
func printWeights(c *cli.Context, cols []config.CollectionConfig, w *weightsuc.Store) error {
	rows := make([]weightRow, len(cols))
	for i, col := range cols {
		rows[i] = weightRow{ID: col.ID, Name: col.Name, Weight: w.Weight(col.ID)}
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	return nil
}

// decayLoop applies DecayAll every interval until ctx is done.
func decayLoop(ctx context.Context, w *weightsuc.Store, cfg config.WeightsConfig, logger *zap.Logger) {
	interval := cfg.DecayInterval()
	if interval <= 0 {
		return
	}
	logger.Info("Scheduled weight decay enabled",
		zap.Duration("interval", interval),
		zap.Float64("rate", cfg.DecayRate),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.DecayAll(ctx, cfg.DecayRate); err != nil {
				logger.Error("Scheduled weight decay failed", zap.Error(err))
			}
		}
	}
}
