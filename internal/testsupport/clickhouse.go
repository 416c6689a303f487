package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/adapters/clickhouse"
	"tradecouncil/internal/adapters/config"
)

// ClickHouseTestHelper gives integration tests a connection to the shared
// analytics database. Market data tables are shared across runs, so tests
// scope their rows by a unique symbol or subject and delete them afterwards.
type ClickHouseTestHelper struct {
	client *clickhouse.Client
}

func NewClickHouseTestHelper(t *testing.T, cfg config.ClickHouseConfig) *ClickHouseTestHelper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := clickhouse.NewClient(ctx, cfg)
	require.NoError(t, err, "connect clickhouse")
	t.Cleanup(func() { _ = client.Close() })

	return &ClickHouseTestHelper{client: client}
}

func (h *ClickHouseTestHelper) Client() *clickhouse.Client {
	return h.client
}

func (h *ClickHouseTestHelper) Conn() driver.Conn {
	return h.client.Conn()
}

// RegisterTableCleanup deletes the rows of table where column equals value
// once the test finishes
func (h *ClickHouseTestHelper) RegisterTableCleanup(t *testing.T, table, column string, value any) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		query := fmt.Sprintf("ALTER TABLE %s DELETE WHERE %s = ? SETTINGS mutations_sync = 1", table, column)
		_ = h.client.Exec(ctx, query, value)
	})
}

// Count returns the number of rows in table where column equals value
func (h *ClickHouseTestHelper) Count(t *testing.T, table, column string, value any) uint64 {
	t.Helper()

	var n uint64
	query := fmt.Sprintf("SELECT count() FROM %s WHERE %s = ?", table, column)
	require.NoError(t, h.Conn().QueryRow(context.Background(), query, value).Scan(&n), "count %s", table)
	return n
}

// ScratchTable creates a throwaway MergeTree table dropped after the test
func (h *ClickHouseTestHelper) ScratchTable(t *testing.T, columns string) string {
	t.Helper()

	table := UniqueName("scratch")
	query := fmt.Sprintf("CREATE TABLE %s (%s) ENGINE = MergeTree() ORDER BY tuple()", table, columns)
	require.NoError(t, h.client.Exec(context.Background(), query), "create %s", table)

	t.Cleanup(func() {
		_ = h.client.Exec(context.Background(), "DROP TABLE IF EXISTS "+table)
	})
	return table
}
