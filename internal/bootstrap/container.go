package bootstrap

import (
	"context"
	"sync"
	"time"

	"tradecouncil/internal/adapters/ai"
	chclient "tradecouncil/internal/adapters/clickhouse"
	"tradecouncil/internal/adapters/config"
	"tradecouncil/internal/adapters/kafka"
	pgclient "tradecouncil/internal/adapters/postgres"
	redisclient "tradecouncil/internal/adapters/redis"
	"tradecouncil/internal/agents"
	"tradecouncil/internal/api"
	"tradecouncil/internal/api/health"
	"tradecouncil/internal/consumers"
	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/internal/domain/psychology"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/events"
	"tradecouncil/internal/pipeline"
	chrepo "tradecouncil/internal/repository/clickhouse"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	// Core
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure, nil when the backend is not configured
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	Stores   *Stores
	Pipeline *Pipeline
	Adapters *Adapters
	Serving  *Serving

	// Lifecycle
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Stores groups the data-facing collaborators of the pipeline
type Stores struct {
	Cache      report.Cache
	Source     marketdata.DataSource
	Psychology psychology.Repository         // nil disables psychology context
	Analytics  *chrepo.PipelineRunRepository // nil without ClickHouse
}

// Pipeline groups inference and orchestration
type Pipeline struct {
	Router       *ai.Router
	Runner       *agents.Runner
	Orchestrator *pipeline.Orchestrator
}

// Adapters groups Kafka producers and publishers
type Adapters struct {
	KafkaProducer *kafka.Producer
	Publisher     *events.Publisher
}

// Serving groups the long-running entry points used by the serve command
type Serving struct {
	HTTPServer      *api.Server
	HealthHandler   *health.Handler
	RequestReader   *kafka.Consumer
	RequestConsumer *consumers.PipelineRequestConsumer
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Stores:    &Stores{},
		Pipeline:  &Pipeline{},
		Adapters:  &Adapters{},
		Serving:   &Serving{},
		Lifecycle: NewLifecycle(),
		WG:        &sync.WaitGroup{},
		Context:   ctx,
		Cancel:    cancel,
	}
}

// MustInit initializes everything a one-shot run needs.
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitStores()
	c.MustInitAdapters()
	c.MustInitPipeline()
}

// MustInitServing adds the HTTP server and the Kafka request consumer
func (c *Container) MustInitServing() {
	c.MustInitApplication()
	c.MustInitBackground()
}

// Start starts the HTTP server, the analytics writer and the request consumer
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if c.Stores.Analytics != nil {
		c.Stores.Analytics.Start(c.Context)
	}

	if p, ok := c.Stores.Cache.(purger); ok {
		c.WG.Add(1)
		go func() {
			defer c.WG.Done()
			purgeLoop(c.Context, p, cachePurgeInterval, c.Log)
		}()
	}

	if c.Serving.RequestConsumer != nil {
		c.WG.Add(1)
		go func() {
			defer c.WG.Done()
			if err := c.Serving.RequestConsumer.Start(c.Context); err != nil && c.Context.Err() == nil {
				c.Log.Errorw("Pipeline request consumer failed", "error", err)
			}
		}()
		c.Log.Info("✓ Pipeline request consumer started")
	}

	if c.Serving.HTTPServer == nil {
		return errors.NewConfigurationError("http server", nil)
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Serving.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Info("✓ All systems operational")
	return nil
}

// StartAnalytics enables timed flushing for one-shot commands
func (c *Container) StartAnalytics() {
	if c.Stores.Analytics != nil {
		c.Stores.Analytics.Start(c.Context)
	}
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Serving.HTTPServer,
		c.Serving.RequestReader,
		c.Stores.Analytics,
		c.Adapters.KafkaProducer,
		c.PG,
		c.CH,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}

// purger is implemented by caches that hold expired entries until evicted
type purger interface {
	Purge() int
}

// purgeLoop evicts expired cache entries every interval until ctx is done
func purgeLoop(ctx context.Context, p purger, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.Purge(); n > 0 {
				log.Debugf("Purged %d expired cached reports", n)
			}
		}
	}
}
