package testsupport

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/adapters/postgres"
)

// Postgres is one integration test's view of the database: a transaction
// that is rolled back when the test ends, so report and profile rows never
// leak between tests
type Postgres struct {
	client   *postgres.Client
	tx       *sqlx.Tx
	rollback sync.Once
}

// NewTestPostgres connects using POSTGRES_* variables and opens the test
// transaction. The test is skipped when Postgres is not configured.
func NewTestPostgres(t *testing.T) *Postgres {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := postgres.NewClient(ctx, LoadPostgresConfigFromEnv(t))
	require.NoError(t, err, "connect postgres")
	t.Cleanup(func() { _ = client.Close() })

	tx, err := client.DB().BeginTxx(ctx, nil)
	require.NoError(t, err, "begin test transaction")

	pg := &Postgres{client: client, tx: tx}
	t.Cleanup(pg.Rollback)
	return pg
}

// Tx is the transaction repositories under test should run on
func (p *Postgres) Tx() *sqlx.Tx {
	return p.tx
}

// DB bypasses the transaction, for assertions about what was committed
func (p *Postgres) DB() *sqlx.DB {
	return p.client.DB()
}

// Rollback discards everything written through Tx. Safe to call twice.
func (p *Postgres) Rollback() {
	p.rollback.Do(func() { _ = p.tx.Rollback() })
}

// CountSubjectRows counts rows of table owned by subject inside the transaction
func (p *Postgres) CountSubjectRows(t *testing.T, table, subject string) int {
	t.Helper()

	var n int
	err := p.tx.QueryRowx("SELECT COUNT(*) FROM "+table+" WHERE subject_id = $1", subject).Scan(&n)
	require.NoError(t, err, "count %s rows", table)
	return n
}
