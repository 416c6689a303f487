package clickhouse

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/pkg/logger"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) flush(_ context.Context, batch []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func newWriter(rec *recorder, size int, age time.Duration) *BatchWriter[string] {
	return NewBatchWriter(BatchWriterConfig[string]{
		FlushFunc:    rec.flush,
		TableName:    "pipeline_runs",
		MaxBatchSize: size,
		MaxAge:       age,
		Logger:       logger.NewNop(),
	})
}

func TestBatchWriter_FlushOnMaxSize(t *testing.T) {
	rec := &recorder{}
	bw := newWriter(rec, 3, time.Hour)
	ctx := context.Background()

	require.NoError(t, bw.Add(ctx, "a"))
	require.NoError(t, bw.Add(ctx, "b"))
	assert.Equal(t, 0, rec.count())

	require.NoError(t, bw.Add(ctx, "c"))
	require.Equal(t, 1, rec.count())
	assert.Equal(t, []string{"a", "b", "c"}, rec.batches[0])
	assert.Equal(t, 0, bw.BufferSize())
}

func TestBatchWriter_FlushOnTimer(t *testing.T) {
	rec := &recorder{}
	bw := newWriter(rec, 100, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bw.Start(ctx)

	require.NoError(t, bw.Add(ctx, "a"))

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, bw.Stop(context.Background()))
}

func TestBatchWriter_StopFlushesRemaining(t *testing.T) {
	rec := &recorder{}
	bw := newWriter(rec, 100, time.Hour)
	ctx := context.Background()

	bw.Start(ctx)
	require.NoError(t, bw.Add(ctx, "a"))
	require.NoError(t, bw.Add(ctx, "b"))

	require.NoError(t, bw.Stop(ctx))
	require.Equal(t, 1, rec.count())
	assert.Len(t, rec.batches[0], 2)
}

func TestBatchWriter_FlushErrorIsReturned(t *testing.T) {
	boom := errors.New("clickhouse down")
	bw := NewBatchWriter(BatchWriterConfig[int]{
		FlushFunc:    func(context.Context, []int) error { return boom },
		MaxBatchSize: 1,
		Logger:       logger.NewNop(),
	})

	err := bw.Add(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, bw.BufferSize())
}
