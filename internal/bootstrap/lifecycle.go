package bootstrap

import (
	"context"
	"sync"
	"time"

	chclient "tradecouncil/internal/adapters/clickhouse"
	"tradecouncil/internal/adapters/kafka"
	pgclient "tradecouncil/internal/adapters/postgres"
	redisclient "tradecouncil/internal/adapters/redis"
	"tradecouncil/internal/api"
	chrepo "tradecouncil/internal/repository/clickhouse"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
)

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
	goroutineWait   time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		// a pipeline run can take a few minutes of inference
		shutdownTimeout: 150 * time.Second,
		goroutineWait:   120 * time.Second,
	}
}

// Shutdown performs coordinated cleanup in order:
// 1. No new HTTP requests accepted
// 2. Request reader closed so the consumer loop stops fetching
// 3. In-flight runs finish
// 4. Buffered analytics rows flushed
// 5. Producer closes after the last completion event
// 6. Errors and logs flushed
// 7. Database connections last
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	requestReader *kafka.Consumer,
	analytics *chrepo.PipelineRunRepository,
	kafkaProducer *kafka.Producer,
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer cancel()

	log.Info("[1/8] Stopping HTTP server...")
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		} else {
			log.Info("✓ HTTP server stopped")
		}
	}

	log.Info("[2/8] Closing pipeline request reader...")
	if requestReader != nil {
		if err := requestReader.Close(); err != nil {
			log.Errorw("Kafka consumer close failed", "error", err)
		} else {
			log.Info("✓ Request reader closed")
		}
	}

	log.Info("[3/8] Waiting for in-flight runs...")
	l.waitForGoroutines(wg, l.goroutineWait, log)

	log.Info("[4/8] Flushing analytics...")
	if analytics != nil {
		if err := analytics.Stop(shutdownCtx); err != nil {
			log.Errorw("Analytics flush failed", "error", err)
		} else {
			log.Info("✓ Analytics flushed")
		}
	}

	log.Info("[5/8] Closing Kafka producer...")
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	log.Info("[6/8] Flushing error tracker...")
	l.flushErrorTracker(shutdownCtx, errorTracker, log)

	log.Info("[7/8] Syncing logs...")
	if err := logger.Sync(); err != nil {
		log.Warn("Log sync completed with warnings")
	} else {
		log.Info("✓ Logs synced")
	}

	log.Info("[8/8] Closing database connections...")
	l.closeDatabases(pgClient, chClient, redisClient, log)

	log.Info("✅ Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}

// closeDatabases closes every connected store and reports failures together
func (l *Lifecycle) closeDatabases(
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	log *logger.Logger,
) {
	var dbErrors []error

	if pgClient != nil {
		if err := pgClient.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "postgres"))
		}
	}

	if chClient != nil {
		if err := chClient.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "clickhouse"))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "redis"))
		}
	}

	if len(dbErrors) > 0 {
		log.Errorw("Database close errors", "errors", dbErrors)
	} else {
		log.Info("✓ Database connections closed")
	}
}
