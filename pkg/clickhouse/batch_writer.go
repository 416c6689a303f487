package clickhouse

import (
	"context"
	"sync"
	"time"

	"tradecouncil/pkg/logger"
)

// FlushFunc writes one batch, typically through driver.Conn.PrepareBatch
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// BatchWriter buffers rows and writes them in batches, on size or on a timer.
// Single-row inserts are slow in ClickHouse.
type BatchWriter[T any] struct {
	flush  FlushFunc[T]
	log    *logger.Logger
	table  string
	size   int
	maxAge time.Duration

	mu        sync.Mutex
	buffer    []T
	lastFlush time.Time
	running   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// BatchWriterConfig configures a BatchWriter
type BatchWriterConfig[T any] struct {
	FlushFunc    FlushFunc[T]
	TableName    string
	MaxBatchSize int           // default 500
	MaxAge       time.Duration // default 5s
	Logger       *logger.Logger
}

func NewBatchWriter[T any](cfg BatchWriterConfig[T]) *BatchWriter[T] {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 500
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Get()
	}

	return &BatchWriter[T]{
		flush:     cfg.FlushFunc,
		log:       cfg.Logger.With("component", "batch_writer", "table", cfg.TableName),
		table:     cfg.TableName,
		size:      cfg.MaxBatchSize,
		maxAge:    cfg.MaxAge,
		buffer:    make([]T, 0, cfg.MaxBatchSize),
		lastFlush: time.Now(),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the periodic flush loop. It stops on ctx cancellation or Stop.
func (bw *BatchWriter[T]) Start(ctx context.Context) {
	bw.mu.Lock()
	if bw.running {
		bw.mu.Unlock()
		return
	}
	bw.running = true
	bw.mu.Unlock()

	bw.wg.Add(1)
	go bw.loop(ctx)

	bw.log.Infof("BatchWriter started (maxBatchSize=%d, maxAge=%v)", bw.size, bw.maxAge)
}

// Add buffers one row and flushes when the buffer is full
func (bw *BatchWriter[T]) Add(ctx context.Context, item T) error {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, item)
	full := len(bw.buffer) >= bw.size
	bw.mu.Unlock()

	if full {
		return bw.Flush(ctx)
	}
	return nil
}

// Flush writes everything buffered so far
func (bw *BatchWriter[T]) Flush(ctx context.Context) error {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return nil
	}
	batch := bw.buffer
	bw.buffer = make([]T, 0, bw.size)
	bw.lastFlush = time.Now()
	bw.mu.Unlock()

	start := time.Now()
	if err := bw.flush(ctx, batch); err != nil {
		bw.log.Errorf("Failed to flush %d rows to %s: %v (took %v)", len(batch), bw.table, err, time.Since(start))
		return err
	}

	bw.log.Debugf("Flushed %d rows to %s (took %v)", len(batch), bw.table, time.Since(start))
	return nil
}

func (bw *BatchWriter[T]) loop(ctx context.Context) {
	defer bw.wg.Done()

	ticker := time.NewTicker(bw.maxAge)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bw.finalFlush()
			return
		case <-bw.stopCh:
			bw.finalFlush()
			return
		case <-ticker.C:
			if bw.BufferSize() == 0 {
				continue
			}
			if err := bw.Flush(ctx); err != nil {
				bw.log.Errorf("Periodic flush failed: %v", err)
			}
		}
	}
}

func (bw *BatchWriter[T]) finalFlush() {
	if err := bw.Flush(context.Background()); err != nil {
		bw.log.Errorf("Final flush failed: %v", err)
	}
}

// Stop flushes remaining rows and waits for the loop to exit or ctx to expire
func (bw *BatchWriter[T]) Stop(ctx context.Context) error {
	bw.mu.Lock()
	if !bw.running {
		bw.mu.Unlock()
		return bw.Flush(ctx)
	}
	bw.running = false
	bw.mu.Unlock()

	close(bw.stopCh)

	done := make(chan struct{})
	go func() {
		bw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		bw.log.Info("BatchWriter stopped")
		return nil
	case <-ctx.Done():
		bw.log.Warn("BatchWriter stop timed out")
		return ctx.Err()
	}
}

// BufferSize returns the number of rows waiting to be written
func (bw *BatchWriter[T]) BufferSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}
