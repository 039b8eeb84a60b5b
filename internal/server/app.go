// Package server provides the core application server and dependency wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/agents"
	"github.com/chromara/hq/internal/api"
	"github.com/chromara/hq/internal/clock/system"
	"github.com/chromara/hq/internal/config"
	"github.com/chromara/hq/internal/dispatcher"
	collyfetcher "github.com/chromara/hq/internal/fetcher/colly"
	headlessfetcher "github.com/chromara/hq/internal/fetcher/headless"
	"github.com/chromara/hq/internal/hash/sha256"
	"github.com/chromara/hq/internal/headless/detector"
	"github.com/chromara/hq/internal/id/uuid"
	"github.com/chromara/hq/internal/llm"
	"github.com/chromara/hq/internal/logging"
	"github.com/chromara/hq/internal/metrics"
	"github.com/chromara/hq/internal/provider"
	"github.com/chromara/hq/internal/provider/apollo"
	"github.com/chromara/hq/internal/provider/firecrawl"
	"github.com/chromara/hq/internal/provider/patents"
	memorypublisher "github.com/chromara/hq/internal/publisher/memory"
	gcppublisher "github.com/chromara/hq/internal/publisher/pubsub"
	queuememory "github.com/chromara/hq/internal/queue/memory"
	"github.com/chromara/hq/internal/ratelimit"
	"github.com/chromara/hq/internal/scrape"
	gcsstorage "github.com/chromara/hq/internal/storage/gcs"
	localstorage "github.com/chromara/hq/internal/storage/local"
	memorystorage "github.com/chromara/hq/internal/storage/memory"
	pgstore "github.com/chromara/hq/internal/storage/postgres"
	"github.com/chromara/hq/internal/telemetry"
	"github.com/chromara/hq/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg            *config.Config
	logger         *zap.Logger
	apiServer      *api.Server
	dispatch       *dispatcher.Dispatcher
	queue          *queuememory.Queue
	db             *pgstore.Store
	gcs            *gcsstorage.BlobStore
	pubsub         *gcppublisher.Publisher
	headless       *headlessfetcher.Fetcher
	tracerShutdown func(context.Context) error
}

type stores struct {
	runs     agent.RunStore
	lookups  agent.LookupStore
	insights agent.InsightStore
	patents  agent.PatentStore
	content  agent.ContentStore
}

// Handler exposes the HTTP router.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the application and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Runs.Concurrency))
		a.dispatch.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	select {
	case <-dispatchDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("workers did not stop before shutdown deadline")
	}

	return a.Close(shutdownCtx)
}

// Close releases infrastructure clients and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return nil
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return build(ctx, cfg, logger)
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (app *App, err error) {
	app = &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	metrics.Init()
	app.tracerShutdown, err = telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.TracingEnabled,
		ProjectID:      cfg.Telemetry.ProjectID,
	})
	if err != nil {
		return app, fmt.Errorf("telemetry init failed: %w", err)
	}

	app.logger.Info("building application dependencies")
	st, err := setupStores(ctx, app)
	if err != nil {
		return app, err
	}
	blobs, err := setupBlobs(ctx, app)
	if err != nil {
		return app, err
	}
	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		return app, err
	}

	clock := system.New()
	ids := uuid.NewUUIDGenerator()
	scraper, err := setupScraper(app, blobs, clock)
	if err != nil {
		return app, err
	}
	deps, handlers, err := setupAgents(app, st, scraper, ids, clock)
	if err != nil {
		return app, err
	}

	app.queue = queuememory.NewQueue(cfg.Runs.QueueDepth)
	workerCfg := worker.Config{Event: worker.DefaultEvent, RunBudget: cfg.RunBudget()}
	workers := make([]*worker.Worker, 0, cfg.Runs.Concurrency)
	for i := 0; i < cfg.Runs.Concurrency; i++ {
		workers = append(workers, worker.New(
			app.queue,
			st.runs,
			handlers,
			publisher,
			clock,
			workerCfg,
			app.logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	app.dispatch = dispatcher.New(app.queue, workers, app.logger.Named("dispatcher"))

	deps.Runs = st.runs
	deps.Lookups = st.lookups
	deps.Insights = st.insights
	deps.Patents = st.patents
	deps.Queue = app.dispatch
	deps.IDs = ids
	deps.Clock = clock
	if app.db != nil {
		deps.Ready = app.db.Ping
	}
	app.apiServer = api.NewServer(deps, *cfg, app.logger.Named("api"))
	return app, nil
}

func setupStores(ctx context.Context, app *App) (stores, error) {
	if app.cfg.DB.DSN == "" {
		app.logger.Warn("no DSN specified for database, using in-memory stores")
		return stores{
			runs:     memorystorage.NewRunStore(),
			lookups:  memorystorage.NewLookupStore(),
			insights: memorystorage.NewInsightStore(),
			patents:  memorystorage.NewPatentStore(),
			content:  memorystorage.NewContentStore(),
		}, nil
	}
	db, err := pgstore.Open(ctx, pgstore.Config{
		DSN:             app.cfg.DB.DSN,
		MaxConns:        app.cfg.DB.MaxConns,
		MinConns:        app.cfg.DB.MinConns,
		MaxConnLifetime: app.cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return stores{}, fmt.Errorf("postgres init failed: %w", err)
	}
	app.db = db
	if err := db.Migrate(ctx); err != nil {
		return stores{}, fmt.Errorf("postgres migrate failed: %w", err)
	}
	app.logger.Info("postgres stores initialized")
	return stores{runs: db, lookups: db, insights: db, patents: db, content: db}, nil
}

func setupBlobs(ctx context.Context, app *App) (agent.BlobStore, error) {
	switch app.cfg.Storage.Backend {
	case "gcs":
		blobs, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: app.cfg.Storage.Bucket}, app.logger.Named("gcs"))
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.gcs = blobs
		app.logger.Info("using GCS storage backend", zap.String("bucket", app.cfg.Storage.Bucket))
		return blobs, nil
	case "local":
		blobs, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Storage.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		app.logger.Info("using local storage backend", zap.String("path", app.cfg.Storage.Local.BaseDir))
		return blobs, nil
	default:
		app.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func setupPublisher(ctx context.Context, app *App) (agent.Publisher, error) {
	if app.cfg.PubSub.TopicName == "" || app.cfg.PubSub.ProjectID == "" {
		app.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	pub, err := gcppublisher.Open(ctx, app.cfg.PubSub.ProjectID, app.cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	app.pubsub = pub
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return pub, nil
}

func setupScraper(app *App, blobs agent.BlobStore, clock agent.Clock) (*scrape.Scraper, error) {
	cfg := app.cfg
	opts := scrape.Options{
		Blobs:       blobs,
		Hasher:      sha256.New(),
		Clock:       clock,
		Logger:      app.logger.Named("scrape"),
		Prefix:      cfg.Storage.Prefix,
		ContentType: cfg.Storage.ContentType,
		Detector:    detector.NewHeuristic(cfg.Headless.PromotionThresh),
		Probe: collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.HTTP.UserAgent,
			RespectRobots: cfg.HTTP.RespectRobots,
			Timeout:       cfg.FetchTimeout(),
			Limiter:       ratelimit.New(ratelimit.Config{RPS: cfg.HTTP.HostRPS, Burst: cfg.HTTP.HostBurst}),
		}),
	}
	if cfg.Firecrawl.Enabled() {
		remote, err := firecrawl.New(providerOptions(cfg.Firecrawl, cfg), clock)
		if err != nil {
			return nil, fmt.Errorf("firecrawl init failed: %w", err)
		}
		opts.Remote = remote
		app.logger.Info("using Firecrawl for page scraping")
	}
	if cfg.Headless.Enabled {
		headless, err := headlessfetcher.New(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			Logger:            app.logger.Named("headless"),
		})
		if err != nil {
			app.logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			app.headless = headless
			opts.Headless = headless
			app.logger.Info("using headless fetcher", zap.Int("max_parallel", cfg.Headless.MaxParallel))
		}
	}
	scraper, err := scrape.New(opts)
	if err != nil {
		return nil, fmt.Errorf("scraper init failed: %w", err)
	}
	return scraper, nil
}

func setupAgents(
	app *App,
	st stores,
	scraper agent.PageScraper,
	ids agent.IDGenerator,
	clock agent.Clock,
) (api.Deps, map[agent.Kind]agent.UnitHandler, error) {
	cfg := app.cfg
	var deps api.Deps

	var gen agents.TextGenerator
	if cfg.LLM.Enabled() {
		g, err := llm.New(providerOptions(cfg.LLM.ProviderConfig, cfg), llm.Options{
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			RPS:       cfg.LLM.RPS,
		})
		if err != nil {
			return deps, nil, fmt.Errorf("llm init failed: %w", err)
		}
		gen = g
		app.logger.Info("language model configured", zap.String("model", g.Model()))
	}

	contactOpts := agents.ContactOptions{Titles: cfg.Apollo.Titles, Limit: cfg.Apollo.Limit}
	if cfg.Apollo.Enabled() {
		people, err := apollo.New(providerOptions(cfg.Apollo.ProviderConfig, cfg))
		if err != nil {
			return deps, nil, fmt.Errorf("apollo init failed: %w", err)
		}
		contactOpts.People = people
		app.logger.Info("Apollo people search enabled")
	}
	deps.Contacts = agents.NewContactAgent(scraper, st.lookups, ids, clock, contactOpts, app.logger.Named("contacts"))
	deps.Content = agents.NewContentAgent(gen, st.content, ids, clock, app.logger.Named("content"))

	var summary agents.TextGenerator
	if cfg.LLM.Summarize {
		summary = gen
	}
	handlers := map[agent.Kind]agent.UnitHandler{
		agent.KindCompetitorScrape: agents.NewCompetitorAgent(
			scraper, st.insights, summary, ids, clock, app.logger.Named("competitors")),
	}
	if cfg.Patents.Enabled() {
		search, err := patents.New(providerOptions(cfg.Patents, cfg), clock)
		if err != nil {
			return deps, nil, fmt.Errorf("patents init failed: %w", err)
		}
		handlers[agent.KindPatentSearch] = agents.NewPatentAgent(search, st.patents, cfg.Patents.Limit, app.logger.Named("patents"))
	} else {
		app.logger.Warn("no patents API key configured, patent runs disabled")
	}
	for kind := range handlers {
		deps.Kinds = append(deps.Kinds, kind)
	}
	return deps, handlers, nil
}

func providerOptions(p config.ProviderConfig, cfg *config.Config) provider.Options {
	return provider.Options{
		APIKey:    p.APIKey,
		BaseURL:   p.BaseURL,
		Timeout:   cfg.FetchTimeout(),
		RPS:       p.RPS,
		UserAgent: cfg.HTTP.UserAgent,
	}
}
