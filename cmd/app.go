package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/cache"
	"github.com/spigell/helper-matcher/internal/locks"
	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/matching"
	"github.com/spigell/helper-matcher/internal/secrets"
	"github.com/spigell/helper-matcher/internal/storage/graph"
	"github.com/spigell/helper-matcher/internal/storage/memory"
	"github.com/spigell/helper-matcher/internal/storage/postgres"
)

// application holds what every command needs. close releases connections in
// reverse order of opening.
type application struct {
	logger  *zap.Logger
	config  *Config
	stores  matching.Stores
	service *matching.Service
	closers []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// setup builds the logger, reads the config and wires the service. Any
// failure is fatal, the same way for every command.
func setup(ctx context.Context) *application {
	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	lg.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	a := &application{logger: lg, config: config}
	stores, err := a.openStores(ctx)
	if err != nil {
		a.close()
		lg.Fatal("opening stores", zap.Error(err))
	}

	a.stores = stores
	a.service = matching.New(stores, config.Matching, lg)
	return a
}

func (a *application) openStores(ctx context.Context) (matching.Stores, error) {
	var stores matching.Stores
	cfg := a.config.Storage

	var pg *postgres.Store
	if cfg.Profiles == "postgres" || cfg.History == "postgres" {
		store, err := a.openPostgres(ctx)
		if err != nil {
			return stores, err
		}
		pg = store
	}

	switch cfg.Profiles {
	case "", "memory":
		candidates, jobs := memory.NewCandidates(), memory.NewJobs()
		if cfg.Fixtures != "" {
			fixtures, err := memory.LoadFixtures(cfg.Fixtures, a.logger)
			if err != nil {
				return stores, err
			}
			candidates, jobs = fixtures.Candidates, fixtures.Jobs
			a.logger.Info("fixtures loaded",
				zap.String("path", cfg.Fixtures),
				zap.Int("candidates", candidates.Len()),
				zap.Int("jobs", jobs.Len()),
			)
		}
		stores.Candidates, stores.Jobs = candidates, jobs
	case "postgres":
		stores.Candidates, stores.Jobs = pg.Candidates(), pg.Jobs()
	case "graph":
		store, err := a.openGraph(ctx)
		if err != nil {
			return stores, err
		}
		stores.Candidates, stores.Jobs = store.Candidates(), store.Jobs()
	default:
		return stores, fmt.Errorf("unknown profiles storage %q", cfg.Profiles)
	}

	switch cfg.History {
	case "", "memory":
		stores.Decisions, stores.Models = memory.NewDecisions(), memory.NewModels()
	case "postgres":
		stores.Decisions, stores.Models = pg, pg
	default:
		return stores, fmt.Errorf("unknown history storage %q", cfg.History)
	}

	if err := a.openRedis(ctx, &stores); err != nil {
		return stores, err
	}
	return stores, nil
}

func (a *application) openPostgres(ctx context.Context) (*postgres.Store, error) {
	dsn, err := secrets.Load(secrets.Source{
		Name:  "postgres dsn",
		Value: a.config.Postgres.DSN,
		File:  a.config.Postgres.DSNFile,
	})
	if err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, dsn, a.config.Postgres)
	if err != nil {
		return nil, err
	}
	store := postgres.New(pool, a.logger)
	a.closers = append(a.closers, store.Close)

	if a.config.Storage.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
	}
	a.logger.Info("connected to postgres")
	return store, nil
}

func (a *application) openGraph(ctx context.Context) (*graph.Store, error) {
	opts := a.config.Neo4j
	if opts.Username != "" {
		password, err := secrets.Load(secrets.Source{
			Name:  "neo4j password",
			Value: opts.Password,
			File:  opts.PasswordFile,
		})
		if err != nil {
			return nil, err
		}
		opts.Password = password
	}

	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(context.Background()); err != nil {
			a.logger.Warn("closing neo4j client", zap.Error(err))
		}
	})
	a.logger.Info("connected to neo4j", zap.String("uri", opts.URI))
	return graph.New(client, a.logger), nil
}

// openRedis switches the cache and the training locks to Redis when a URL is
// configured. Otherwise both stay in process.
func (a *application) openRedis(ctx context.Context, stores *matching.Stores) error {
	cfg := a.config.Redis
	src := secrets.Source{Name: "redis url", Value: cfg.URL, File: cfg.URLFile}
	if !src.Configured() {
		stores.Cache, stores.Locker = cache.NewMemory(), locks.NewLocal()
		return nil
	}

	url, err := secrets.Load(src)
	if err != nil {
		return err
	}
	rdb, err := cache.NewRedisClient(ctx, url)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	stores.Cache = cache.NewRedis(rdb, cfg.Prefix)
	stores.Locker = locks.NewRedis(rdb, cfg.Prefix+"lock:")
	a.logger.Info("using redis for cache and locks")
	return nil
}

// redacted returns a copy of config without inline secrets, for logging.
func redacted(config *Config) Config {
	out := *config
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	out.Postgres.DSN = mask(out.Postgres.DSN)
	out.Neo4j.Password = mask(out.Neo4j.Password)
	out.Redis.URL = mask(out.Redis.URL)
	if out.AI != nil {
		ai := *out.AI
		ai.Gemini.APIKey = mask(ai.Gemini.APIKey)
		out.AI = &ai
	}
	return out
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
