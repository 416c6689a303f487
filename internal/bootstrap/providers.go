package bootstrap

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"tradecouncil/internal/adapters/ai"
	chclient "tradecouncil/internal/adapters/clickhouse"
	"tradecouncil/internal/adapters/config"
	errnoop "tradecouncil/internal/adapters/errors/noop"
	"tradecouncil/internal/adapters/errors/sentry"
	"tradecouncil/internal/adapters/kafka"
	pgclient "tradecouncil/internal/adapters/postgres"
	redisclient "tradecouncil/internal/adapters/redis"
	"tradecouncil/internal/agents"
	"tradecouncil/internal/api"
	"tradecouncil/internal/api/health"
	"tradecouncil/internal/consumers"
	"tradecouncil/internal/datasource"
	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/events"
	"tradecouncil/internal/metrics"
	"tradecouncil/internal/pipeline"
	chrepo "tradecouncil/internal/repository/clickhouse"
	memrepo "tradecouncil/internal/repository/memory"
	pgrepo "tradecouncil/internal/repository/postgres"
	redisrepo "tradecouncil/internal/repository/redis"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
	"tradecouncil/pkg/templates"
)

const (
	connectTimeout = 15 * time.Second
	migrateTimeout = time.Minute
	// runTimeout bounds one pipeline run started from a Kafka request
	runTimeout = 5 * time.Minute
	// cachePurgeInterval paces eviction of expired in-process reports
	cachePurgeInterval = time.Minute
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	metrics.Init()
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects the configured stores and migrates their schemas.
// A store without a host is skipped. An unreachable store is logged and left
// nil so the in-memory and fixed fallbacks take over; a failed migration of a
// reachable store is fatal.
func (c *Container) MustInitInfrastructure() {
	var err error

	if c.Config.Postgres.Enabled() {
		c.Log.Info("Connecting to PostgreSQL...")
		ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
		c.PG, err = pgclient.NewClient(ctx, c.Config.Postgres)
		cancel()
		if err != nil {
			c.Log.Warnw("PostgreSQL unreachable, falling back to in-memory stores", "error", err)
			c.PG = nil
		}
	}

	if c.PG != nil {
		ctx, cancel := context.WithTimeout(c.Context, migrateTimeout)
		err = pgrepo.Migrate(ctx, c.PG.DB())
		cancel()
		if err != nil {
			c.Log.Fatalf("failed to migrate postgres: %v", err)
		}
		c.Log.Info("✓ PostgreSQL connected")
	}

	if c.Config.ClickHouse.Enabled() {
		c.Log.Info("Connecting to ClickHouse...")
		ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
		c.CH, err = chclient.NewClient(ctx, c.Config.ClickHouse)
		cancel()
		if err != nil {
			c.Log.Warnw("ClickHouse unreachable, using fixed market data without analytics", "error", err)
			c.CH = nil
		}
	}

	if c.CH != nil {
		ctx, cancel := context.WithTimeout(c.Context, migrateTimeout)
		err = chrepo.Migrate(ctx, c.CH.Conn())
		cancel()
		if err != nil {
			c.Log.Fatalf("failed to migrate clickhouse: %v", err)
		}
		c.Log.Info("✓ ClickHouse connected")
	}

	if c.Config.Redis.Enabled() {
		c.Log.Info("Connecting to Redis...")
		ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
		c.Redis, err = redisclient.NewClient(ctx, c.Config.Redis)
		cancel()
		if err != nil {
			c.Log.Warnw("Redis unreachable, using in-memory cache and local rate limits", "error", err)
			c.Redis = nil
		} else {
			c.Log.Info("✓ Redis connected")
		}
	}

	if c.PG != nil || c.CH != nil {
		collector := metrics.NewStorageCollector(c.Log, provideStorageDB(c.PG), provideStorageConn(c.CH))
		metrics.RegisterStorageCollector(collector)
	}
}

// ========================================
// Phase 3: Stores
// ========================================

// MustInitStores selects the cache, data source and optional repositories
func (c *Container) MustInitStores() {
	cfg := c.Config.Pipeline

	c.Stores.Cache = provideReportCache(cfg.CacheBackend, c.PG, c.Redis, c.Log)
	c.Log.Infow("✓ Report cache ready", "backend", cfg.CacheBackend)

	c.Stores.Source = provideDataSource(cfg, c.CH, c.Log)
	c.Log.Infow("✓ Data source ready", "source", cfg.DataSource, "instrument", cfg.DefaultInstrument)

	if c.PG != nil {
		c.Stores.Psychology = pgrepo.NewPsychologyRepository(c.PG.DB())
	} else {
		c.Stores.Psychology = memrepo.NewPsychologyRepository()
	}

	if c.CH != nil && cfg.AnalyticsEnabled {
		c.Stores.Analytics = chrepo.NewPipelineRunRepository(c.CH.Conn(), c.Log)
		c.Log.Info("✓ Pipeline analytics enabled")
	}
}

// ========================================
// Phase 4: Adapters
// ========================================

// MustInitAdapters creates the Kafka producer and completion publisher
func (c *Container) MustInitAdapters() {
	if !c.Config.Kafka.Enabled() {
		c.Log.Info("Kafka not configured, completion events disabled")
		return
	}

	c.Adapters.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers: c.Config.Kafka.Brokers,
	}, c.Log)
	c.Adapters.Publisher = events.NewPublisher(c.Adapters.KafkaProducer, c.Log).
		WithTopic(c.Config.Kafka.CompletedTopic)
	c.Log.Infow("✓ Kafka producer ready", "topic", c.Config.Kafka.CompletedTopic)
}

// ========================================
// Phase 5: Pipeline
// ========================================

// MustInitPipeline builds the inference router, the stage runner and the orchestrator
func (c *Container) MustInitPipeline() {
	router, err := provideRouter(c.Config.AI, c.Redis, c.Log)
	if err != nil {
		c.Log.Fatalf("failed to init AI router: %v", err)
	}
	c.Pipeline.Router = router
	c.Log.Infow("✓ AI providers registered", "providers", router.Providers())

	prompts := templates.Get()
	if dir := c.Config.Pipeline.PromptsDir; dir != "" {
		prompts, err = templates.NewRegistry(dir)
		if err != nil {
			c.Log.Fatalf("failed to load prompts: %v", err)
		}
		c.Log.Infow("✓ Prompts loaded from directory", "dir", dir)
	}

	c.Pipeline.Runner, err = agents.NewRunner(agents.Deps{
		Inferencer:     router,
		Cache:          c.Stores.Cache,
		Prompts:        prompts,
		Log:            c.Log,
		DedupeInFlight: c.Config.Pipeline.DedupeInFlight,
	})
	if err != nil {
		c.Log.Fatalf("failed to init stage runner: %v", err)
	}

	deps := pipeline.Deps{
		Runner:             c.Pipeline.Runner,
		Source:             c.Stores.Source,
		Psychology:         c.Stores.Psychology,
		Log:                c.Log,
		Instrument:         c.Config.Pipeline.DefaultInstrument,
		DefaultAccountSize: decimal.NewFromFloat(c.Config.Pipeline.DefaultAccountSize),
	}
	// typed nils must not reach the interface fields
	if c.Stores.Analytics != nil {
		deps.Analytics = c.Stores.Analytics
	}
	if c.Adapters.Publisher != nil {
		deps.Notifier = c.Adapters.Publisher
	}

	c.Pipeline.Orchestrator, err = pipeline.New(deps)
	if err != nil {
		c.Log.Fatalf("failed to init orchestrator: %v", err)
	}
	c.Log.Info("✓ Orchestrator ready")
}

// ========================================
// Phase 6: Application
// ========================================

// MustInitApplication builds the health handler and HTTP server
func (c *Container) MustInitApplication() {
	c.Serving.HealthHandler = health.New(c.Log, c.Config.App.Name, c.Config.App.Version, provideHealthChecks(c))

	c.Serving.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        c.Config.App.HTTPPort,
		ServiceName: c.Config.App.Name,
		Version:     c.Config.App.Version,
	}, c.Serving.HealthHandler, c.Log)
}

// ========================================
// Phase 7: Background
// ========================================

// MustInitBackground creates the Kafka request consumer when brokers are configured
func (c *Container) MustInitBackground() {
	if !c.Config.Kafka.Enabled() {
		c.Log.Info("Kafka not configured, pipeline requests are CLI-only")
		return
	}

	c.Serving.RequestReader = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: c.Config.Kafka.Brokers,
		GroupID: c.Config.Kafka.GroupID,
		Topic:   c.Config.Kafka.RequestsTopic,
	}, c.Log)

	c.Serving.RequestConsumer = consumers.NewPipelineRequestConsumer(
		c.Serving.RequestReader,
		c.Pipeline.Orchestrator,
		runTimeout,
		c.Log,
	)
}

// ========================================
// Providers
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled {
		return errnoop.New()
	}

	tracker, err := sentry.New(
		cfg.ErrorTracking.SentryDSN,
		cfg.ErrorTracking.Environment,
		cfg.App.Version,
		cfg.ErrorTracking.SampleRate,
	)
	if err != nil {
		log.Warnw("Sentry init failed, falling back to noop tracker", "error", err)
		return errnoop.New()
	}

	log.Info("✓ Sentry error tracking enabled")
	return tracker
}

// provideReportCache maps the configured backend to a cache.
// config.Validate guarantees the backing client exists.
func provideReportCache(backend string, pg *pgclient.Client, rdb *redisclient.Client, log *logger.Logger) report.Cache {
	switch {
	case backend == "redis" && rdb != nil:
		return redisrepo.NewReportCache(rdb.Client(), time.Now)
	case backend == "postgres" && pg != nil:
		return report.NewStoreCache(pgrepo.NewReportStore(pg.DB(), time.Now))
	case backend == "postgres":
		log.Warn("Report store running in memory, history is lost on restart")
		return report.NewStoreCache(memrepo.NewReportStore(time.Now))
	case backend == "redis":
		log.Warn("Report cache running in memory instead of Redis")
	}
	return memrepo.NewReportCache(time.Now)
}

// provideDataSource returns the live warehouse source backed by the fixed
// snapshot, or the fixed snapshot alone
func provideDataSource(cfg config.PipelineConfig, ch *chclient.Client, log *logger.Logger) marketdata.DataSource {
	fixed := datasource.NewFixed(cfg.DefaultInstrument, time.Now)
	if cfg.DataSource != "clickhouse" || ch == nil {
		return fixed
	}

	live := datasource.NewClickHouse(
		chrepo.NewMarketDataRepository(ch.Conn()),
		chrepo.NewSentimentRepository(ch.Conn()),
		chrepo.NewMacroRepository(ch.Conn()),
		datasource.LiveConfig{Instrument: cfg.DefaultInstrument},
		time.Now,
	)
	return datasource.WithFallback(live, fixed, log)
}

// provideRouter registers every provider with a key. Limiters are shared
// through Redis when distributed limiting is on.
func provideRouter(cfg config.AIConfig, rdb *redisclient.Client, log *logger.Logger) (*ai.Router, error) {
	routes := ai.DefaultRoutingTable()
	if cfg.RoutesFile != "" {
		loaded, err := ai.LoadRoutingTable(cfg.RoutesFile)
		if err != nil {
			return nil, err
		}
		routes = loaded
	}

	router := ai.NewRouter(ai.RouterConfig{
		Routes:          routes,
		DefaultProvider: ai.ProviderName(cfg.DefaultProvider),
		Timeout:         cfg.RequestTimeout,
	}, log)

	var limiters *ai.RateLimiterFactory
	if cfg.DistributedRateLimit && rdb != nil {
		limiters = ai.NewRateLimiterFactory(rdb.Client())
	} else {
		limiters = ai.NewRateLimiterFactory(nil)
	}
	limits := ai.DefaultRateLimits()
	limitFor := func(name ai.ProviderName) ai.RateLimiter {
		limit := limits[name]
		if cfg.RequestsPerMin > 0 && limit.Enabled {
			limit.ReqPerMinute = float64(cfg.RequestsPerMin)
		}
		return limiters.Create(name, limit)
	}

	opts := ai.OpenAIOptions{MaxRetries: cfg.MaxRetries, Timeout: cfg.RequestTimeout}

	if cfg.OpenAIKey != "" {
		o := opts
		o.APIKey = cfg.OpenAIKey
		p, err := ai.NewOpenAIProvider(o)
		if err != nil {
			return nil, err
		}
		if err := router.Register(p, limitFor(ai.ProviderNameOpenAI)); err != nil {
			return nil, err
		}
	}

	if cfg.DeepSeekKey != "" {
		o := opts
		o.APIKey = cfg.DeepSeekKey
		o.BaseURL = cfg.DeepSeekBaseURL
		p, err := ai.NewDeepSeekProvider(o)
		if err != nil {
			return nil, err
		}
		if err := router.Register(p, limitFor(ai.ProviderNameDeepSeek)); err != nil {
			return nil, err
		}
	}

	if cfg.GeminiKey != "" {
		p, err := ai.NewGeminiProvider(cfg.GeminiKey)
		if err != nil {
			return nil, err
		}
		if err := router.Register(p, limitFor(ai.ProviderNameGoogle)); err != nil {
			return nil, err
		}
	}

	return router, nil
}

// provideHealthChecks lists only the backends that are configured
func provideHealthChecks(c *Container) map[string]health.Check {
	checks := make(map[string]health.Check)
	if c.PG != nil {
		checks["postgres"] = c.PG.Health
	}
	if c.CH != nil {
		checks["clickhouse"] = c.CH.Health
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.Health
	}
	return checks
}

func provideStorageDB(pg *pgclient.Client) *sqlx.DB {
	if pg == nil {
		return nil
	}
	return pg.DB()
}

func provideStorageConn(ch *chclient.Client) driver.Conn {
	if ch == nil {
		return nil
	}
	return ch.Conn()
}
