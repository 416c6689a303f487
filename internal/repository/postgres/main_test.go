package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tradecouncil/internal/testsupport"
)

// newTx opens a rolled-back transaction with the schema applied
func newTx(t *testing.T) DBTX {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	helper := testsupport.NewTestPostgres(t)
	tx := helper.Tx()
	require.NoError(t, Migrate(context.Background(), tx))
	return tx
}
