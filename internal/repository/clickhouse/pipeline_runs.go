package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tradecouncil/internal/domain/analytics"
	chbatch "tradecouncil/pkg/clickhouse"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
)

var _ analytics.Sink = (*PipelineRunRepository)(nil)

// PipelineRunRepository buffers finished runs into the pipeline_runs table
type PipelineRunRepository struct {
	conn   driver.Conn
	writer *chbatch.BatchWriter[analytics.Run]
}

// NewPipelineRunRepository creates the repository; call Start to enable
// timed flushing and Stop to drain on shutdown
func NewPipelineRunRepository(conn driver.Conn, log *logger.Logger) *PipelineRunRepository {
	r := &PipelineRunRepository{conn: conn}
	r.writer = chbatch.NewBatchWriter(chbatch.BatchWriterConfig[analytics.Run]{
		FlushFunc:    r.insert,
		TableName:    "pipeline_runs",
		MaxBatchSize: 200,
		MaxAge:       10 * time.Second,
		Logger:       log,
	})
	return r
}

func (r *PipelineRunRepository) Start(ctx context.Context) {
	r.writer.Start(ctx)
}

func (r *PipelineRunRepository) Stop(ctx context.Context) error {
	return r.writer.Stop(ctx)
}

// Record buffers one run
func (r *PipelineRunRepository) Record(ctx context.Context, run analytics.Run) error {
	return r.writer.Add(ctx, run)
}

func (r *PipelineRunRepository) insert(ctx context.Context, runs []analytics.Run) error {
	batch, err := r.conn.PrepareBatch(ctx, `INSERT INTO pipeline_runs`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for i := range runs {
		if err := batch.AppendStruct(&runs[i]); err != nil {
			return errors.Wrap(err, "failed to append pipeline run")
		}
	}

	return batch.Send()
}
