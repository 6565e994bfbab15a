package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"socialsim/pkg/cache"
	"socialsim/pkg/cerebras"
	"socialsim/pkg/config"
	"socialsim/pkg/gemini"
	"socialsim/pkg/logger"
	"socialsim/pkg/persona"
	"socialsim/pkg/safety"
	"socialsim/pkg/sim"
	"socialsim/pkg/store"
	"socialsim/pkg/surreal"
)

const (
	defaultSQLitePath = "socialsim.db"
	cachePrefix       = "socialsim"
)

// app holds everything a command needs. Commands that only read the catalog
// never build the engine.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	catalog *persona.Catalog
	engine  *sim.Engine
	now     func() time.Time
	closers []func()
}

func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.log.Sync()
}

// loadApp reads .env and the config file and builds the catalog.
func loadApp(opts *rootOptions) (*app, error) {
	// .env is optional; the environment may already carry everything.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	catalog := persona.DefaultCatalog()
	if cfg.PersonasFile != "" {
		catalog, err = persona.LoadCatalog(cfg.PersonasFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load personas: %w", err)
		}
	}

	return &app{cfg: cfg, log: log, catalog: catalog, now: time.Now}, nil
}

// openEngine loads the app and wires providers and storage into an engine.
func openEngine(ctx context.Context, opts *rootOptions) (*app, error) {
	a, err := loadApp(opts)
	if err != nil {
		return nil, err
	}

	st, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps, err := a.providers(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	deps.Config = a.cfg
	deps.Catalog = a.catalog
	deps.Store = st
	deps.Log = a.log.With("component", "engine")

	a.engine, err = sim.NewEngine(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// providers picks the generation backend. Gemini also serves images when a
// key is present, whichever provider generates text.
func (a *app) providers(ctx context.Context) (sim.Deps, error) {
	var (
		deps       sim.Deps
		classifier safety.Classifier
	)
	ms := a.cfg.ModelSettings

	var geminiClient *gemini.Client
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c, err := gemini.NewClient(ctx, key, ms, a.log.With("component", "gemini"))
		if err != nil {
			return deps, fmt.Errorf("failed to create gemini client: %w", err)
		}
		geminiClient = c
	}

	switch ms.Provider {
	case "cerebras":
		keys := os.Getenv("CEREBRAS_API_KEY")
		if keys == "" {
			return deps, errors.New("missing required environment variable: CEREBRAS_API_KEY")
		}
		c := cerebras.NewClient(keys, ms.Temperature, ms.TopP, cerebras.PrioritizedModels, a.log.With("component", "cerebras"))
		deps.Generator = c
		classifier = c
	default:
		if geminiClient == nil {
			return deps, errors.New("missing required environment variable: GEMINI_API_KEY")
		}
		deps.Generator = geminiClient
		classifier = geminiClient
	}

	if geminiClient != nil {
		deps.Images = geminiClient
	} else {
		a.log.Info("GEMINI_API_KEY not set, photos disabled")
	}

	deps.Classifier = safety.NewCachedClassifier(classifier, a.cfg.Safety.ClassifierCacheSize, ms.ClassifierModel, a.log.With("component", "classifier"))
	return deps, nil
}

// openStore prefers SurrealDB when configured and falls back to a local
// SQLite file. Redis, when reachable, fronts either.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	var st store.Store

	if host := os.Getenv("SURREAL_DB_HOST"); host != "" {
		ns := os.Getenv("SURREAL_DB_NAMESPACE")
		if ns == "" {
			ns = "socialsim"
		}
		db := os.Getenv("SURREAL_DB_DATABASE")
		if db == "" {
			db = "world"
		}
		host = surreal.NormalizeHost(host)

		a.log.Info("Connecting to SurrealDB", "host", host, "namespace", ns, "database", db)
		client, err := surreal.NewClient(ctx, host, os.Getenv("SURREAL_DB_USER"), os.Getenv("SURREAL_DB_PASS"), ns, db)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close(context.Background()) })
		st = store.NewSurrealStore(client)
	} else {
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = defaultSQLitePath
		}
		s, err := store.OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { s.Close() })
		st = s
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		c, err := cache.NewRedisCache(url, cachePrefix)
		if err != nil {
			a.log.Warn("Redis unavailable, continuing without cache", "error", err)
			return st, nil
		}
		a.closers = append(a.closers, func() { c.Close() })
		st = store.NewCachedStore(st, c, a.log.With("component", "cache"))
	}
	return st, nil
}
