package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/config"
	dbRedis "github.com/kailas-cloud/scholargraph/internal/db/redis"
	"github.com/kailas-cloud/scholargraph/internal/domain"
	logpkg "github.com/kailas-cloud/scholargraph/internal/logger"
	weightsrepo "github.com/kailas-cloud/scholargraph/internal/repository/weights"
	"github.com/kailas-cloud/scholargraph/internal/version"
	weightsuc "github.com/kailas-cloud/scholargraph/internal/usecase/weights"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "scholargraph",
		Usage:   "Routed semantic search over topic-partitioned paper collections",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Configuration environment (local, dev, prod, test)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
		},
		Action: serveCommand,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serveCommand,
			},
			{
				Name:   "decay",
				Usage:  "Multiply every stored collection weight by a decay rate",
				Action: decayCommand,
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "rate",
						Usage: "Decay rate in (0, 1), defaults to weights.decay_rate",
					},
				},
			},
			{
				Name:   "weights",
				Usage:  "Print the learned weight of every collection as JSON",
				Action: weightsCommand,
			},
		},
	}
}

// runtimeEnv is the configuration and logger shared by all commands.
type runtimeEnv struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
}

func bootstrap(c *cli.Context) (runtimeEnv, error) {
	env := c.String("env")

	cfg, err := config.Load(env)
	if err != nil {
		return runtimeEnv{}, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return runtimeEnv{}, fmt.Errorf("create logger: %w", err)
	}

	return runtimeEnv{env: env, cfg: cfg, logger: logger}, nil
}

func newCatalog(cols []config.CollectionConfig) (*domain.Catalog, error) {
	out := make([]domain.Collection, len(cols))
	for i, c := range cols {
		out[i] = domain.Collection{
			ID:          c.ID,
			DisplayName: c.Name,
			Description: c.Description,
			Keywords:    c.Keywords,
		}
	}
	catalog, err := domain.NewCatalog(out)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return catalog, nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	return store, nil
}

// openPersister selects the weight persistence driver. store may be nil unless
// the driver is redis. The returned closer is never nil.
func openPersister(
	cfg config.WeightsConfig,
	store *dbRedis.Store,
	logger *zap.Logger,
) (weightsuc.Persister, func(), error) {
	switch cfg.Driver {
	case config.WeightsDriverRedis:
		if store == nil {
			return nil, nil, errors.New("redis weights driver requires a database store")
		}
		return weightsrepo.NewRedisStore(store), func() {}, nil
	case config.WeightsDriverBadger:
		b, err := weightsrepo.OpenBadger(cfg.BadgerPath, logger.Named("badger"))
		if err != nil {
			return nil, nil, fmt.Errorf("open weights: %w", err)
		}
		return b, func() {
			if err := b.Close(); err != nil {
				logger.Error("Failed to close weights database", zap.Error(err))
			}
		}, nil
	case config.WeightsDriverMemory:
		return weightsrepo.NewMemoryStore(nil), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown weights driver %q", cfg.Driver)
	}
}
