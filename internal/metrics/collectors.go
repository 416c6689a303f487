package metrics

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"tradecouncil/pkg/logger"
)

// StorageCollector reports row counts from the durable stores on scrape.
// Either connection may be nil when the backend is disabled.
type StorageCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn

	reportsByCategory *prometheus.Desc
	pipelineRuns24h   *prometheus.Desc
}

// NewStorageCollector creates a new storage collector
func NewStorageCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn) *StorageCollector {
	return &StorageCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,

		reportsByCategory: prometheus.NewDesc(
			"tradecouncil_reports_24h",
			"Agent reports stored in the last 24h by category",
			[]string{"category"}, nil,
		),
		pipelineRuns24h: prometheus.NewDesc(
			"tradecouncil_pipeline_runs_recorded_24h",
			"Pipeline runs recorded in analytics in the last 24h by action",
			[]string{"action"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StorageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reportsByCategory
	ch <- c.pipelineRuns24h
}

// Collect implements prometheus.Collector
func (c *StorageCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.postgres != nil {
		c.collectReports(ctx, ch)
	}
	if c.clickhouse != nil {
		c.collectPipelineRuns(ctx, ch)
	}
}

func (c *StorageCollector) collectReports(ctx context.Context, ch chan<- prometheus.Metric) {
	var rows []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	err := c.postgres.SelectContext(ctx, &rows, `
		SELECT category, COUNT(*) AS count
		FROM agent_reports
		WHERE created_at > NOW() - INTERVAL '24 hours'
		GROUP BY category`)
	if err != nil {
		c.log.Debugw("collect report counts failed", "error", err)
		return
	}

	for _, r := range rows {
		ch <- prometheus.MustNewConstMetric(c.reportsByCategory, prometheus.GaugeValue, float64(r.Count), r.Category)
	}
}

func (c *StorageCollector) collectPipelineRuns(ctx context.Context, ch chan<- prometheus.Metric) {
	rows, err := c.clickhouse.Query(ctx, `
		SELECT action, count() AS cnt
		FROM pipeline_runs
		WHERE completed_at > now() - INTERVAL 1 DAY
		GROUP BY action`)
	if err != nil {
		c.log.Debugw("collect pipeline runs failed", "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var (
			action string
			count  uint64
		)
		if err := rows.Scan(&action, &count); err != nil {
			c.log.Debugw("scan pipeline runs failed", "error", err)
			return
		}
		ch <- prometheus.MustNewConstMetric(c.pipelineRuns24h, prometheus.GaugeValue, float64(count), action)
	}
}

// RegisterStorageCollector registers the storage collector
func RegisterStorageCollector(collector *StorageCollector) {
	prometheus.MustRegister(collector)
}
