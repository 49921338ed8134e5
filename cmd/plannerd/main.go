// Command plannerd serves the housing plan tools over MCP (streamable HTTP at /mcp) and REST.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/config"
	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/embedding"
	"github.com/skosovsky/plantool/httpapi"
	"github.com/skosovsky/plantool/loancalc"
	"github.com/skosovsky/plantool/logger"
	"github.com/skosovsky/plantool/mcpserver"
	"github.com/skosovsky/plantool/normalize"
	"github.com/skosovsky/plantool/plan"
	"github.com/skosovsky/plantool/plan/pgstore"
	"github.com/skosovsky/plantool/ratestore"
	"github.com/skosovsky/plantool/retrieval"
	"github.com/skosovsky/plantool/tools"
	"github.com/skosovsky/plantool/vectorindex"
)

const (
	serviceName     = "plannerd"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("plannerd stopped", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

// run builds every collaborator once, serves until ctx is cancelled and then drains in-flight calls.
func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()
	ready := map[string]httpapi.ReadyCheck{}

	store, err := planStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if pg, ok := store.(*pgstore.Store); ok {
		closers = append(closers, pg.Close)
		ready["postgres"] = pg.Ping
	}
	plans := plan.NewAggregator(store, log)

	rates, rateClose, err := rateSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	if rateClose != nil {
		closers = append(closers, rateClose)
	}
	calc := loancalc.NewCalculator(rates, loancalc.Policy{MaxDSR: cfg.MaxDSR, DefaultRate: cfg.DefaultRate}, log)

	norm, err := normalizer(cfg)
	if err != nil {
		return err
	}

	deps := tools.Deps{
		Normalizer: norm,
		Calculator: calc,
		Plans:      plans,
		// one embedding call plus one round of concurrent index calls
		SearchTimeout: 2 * cfg.CollaboratorTimeout,
		LLMModel:      cfg.LLMModel,
		Log:           log,
	}
	search, err := searchPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	if search != nil {
		deps.Search = search.pipeline
		ready["qdrant"] = search.index.Ready
	}

	reg := plantool.NewRegistry(
		plantool.WithDefaultTimeout(cfg.ToolTimeout),
		plantool.WithMaxConcurrency(cfg.MaxConcurrency),
	)
	reg.Use(plantool.WithRecovery(), plantool.WithLogging(log))
	names, err := tools.Register(reg, deps)
	if err != nil {
		return err
	}
	log.Info("tools registered", "count", len(names), "tools", names)

	mcpSrv, err := mcpserver.New(reg, serviceName, tools.Version, log)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.NewRouter(reg, httpapi.Options{
			MCP:     mcpSrv.Handler(),
			MCPPath: mcpserver.EndpointPath,
			Ready:   ready,
			Log:     log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       65 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "mcp", mcpserver.EndpointPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if err := reg.Shutdown(shutdownCtx); err != nil {
		log.Warn("registry shutdown", "error", err)
	}
	log.Info("plannerd exited")
	return nil
}

// planStore returns the Postgres store when DATABASE_URL is set, otherwise an in-process store.
func planStore(ctx context.Context, cfg config.Config, log *logger.Logger) (plan.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set; plans are kept in memory")
		return plan.NewMemStore(), nil
	}
	pg, err := pgstore.Open(ctx, pgstore.Config{
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.DBMaxConns,
		AcquireTimeout: cfg.DBAcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open plan store: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("migrate plan store: %w", err)
	}
	return pg, nil
}

// rateSource returns the loan rate table: the gorm catalog, cached in Redis when REDIS_ADDR is set.
// Without a rate database every loan type falls back to the policy default rate.
func rateSource(ctx context.Context, cfg config.Config, log *logger.Logger) (loancalc.RateSource, func(), error) {
	if cfg.RateDatabaseURL == "" {
		log.Warn("no rate database configured; using the default rate for every loan type",
			"default_rate", cfg.DefaultRate)
		return nil, nil, nil
	}
	db, err := ratestore.OpenPostgres(cfg.RateDatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open rate catalog: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	catalog := ratestore.NewCatalog(db)
	if err := catalog.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("migrate rate catalog: %w", err)
	}
	if cfg.RedisAddr == "" {
		return catalog, closeDB, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable; rate cache will retry per lookup", "addr", cfg.RedisAddr, "error", err)
	}
	cached := ratestore.NewCachedRates(catalog, ratestore.NewRedisCache(rdb), cfg.RateCacheTTL, log)
	return cached, func() {
		_ = rdb.Close()
		closeDB()
	}, nil
}

func normalizer(cfg config.Config) (*normalize.Normalizer, error) {
	if cfg.LocationAliases == "" {
		return normalize.New(normalize.NewLocations(nil)), nil
	}
	f, err := os.Open(cfg.LocationAliases)
	if err != nil {
		return nil, fmt.Errorf("open location aliases: %w", err)
	}
	defer f.Close()
	extra, err := normalize.LoadAliases(f)
	if err != nil {
		return nil, err
	}
	return normalize.New(normalize.NewLocations(extra)), nil
}

type searchStack struct {
	pipeline *retrieval.Pipeline
	index    *vectorindex.Client
}

// searchPipeline wires Gemini embeddings to the Qdrant collections. search_products is not
// offered when either side is unconfigured.
func searchPipeline(ctx context.Context, cfg config.Config, log *logger.Logger) (*searchStack, error) {
	if cfg.QdrantURL == "" || cfg.GeminiAPIKey == "" {
		log.Warn("QDRANT_URL or GEMINI_API_KEY not set; search_products disabled")
		return nil, nil
	}
	index, err := vectorindex.New(vectorindex.Config{
		URL:              cfg.QdrantURL,
		APIKey:           cfg.QdrantAPIKey,
		CollectionPrefix: cfg.QdrantPrefix,
		VectorDim:        cfg.QdrantVectorDim,
		HTTPTimeout:      cfg.CollaboratorTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("vector index: %w", err)
	}
	if err := index.EnsureCollections(ctx); err != nil {
		// Categories whose collection is missing degrade per search instead of failing startup.
		log.Warn("ensure collections", "error", err)
	}
	embedder, err := embedding.NewGemini(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.QdrantVectorDim)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	pipeline := retrieval.NewPipeline(embedder, index, log,
		retrieval.WithTimeout(cfg.CollaboratorTimeout),
		retrieval.WithOnDegraded(func(c domain.Category, err error) {
			log.Warn("category degraded", "category", c, "error", err)
		}),
	)
	return &searchStack{pipeline: pipeline, index: index}, nil
}
