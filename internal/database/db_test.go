package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mechanic-shop/internal/logging"
)

func TestOpen_SQLiteMemoryCreatesSchema(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, DriverSQLite, d.Driver)
	assert.NoError(t, d.Ping(ctx))

	diag := d.Diagnose(ctx)
	assert.True(t, diag.SelectOne)
	assert.NotEmpty(t, diag.ServerVersion)
	assert.Nil(t, diag.SchemaVersion)
	for _, tbl := range []string{"customers", "mechanics", "vehicles", "service_tickets", "service_assignments", "inventory", "ticket_parts"} {
		assert.Contains(t, diag.Tables, tbl)
	}
}

func TestOpen_SQLiteSkipsMigrations(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	defer d.Close()

	b := NewBackend(d, time.Second, logging.Discard())
	assert.False(t, b.Managed())
	assert.Equal(t, OutcomeSkipped, NewGuard(b, true).Run(ctx).Outcome)
}

func TestOpen_SQLiteForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	defer d.Close()

	_, err = d.ExecContext(ctx, "INSERT INTO vehicles (vin, customer_id) VALUES ('X', 999)")
	assert.Error(t, err)
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), "postgres://localhost/db")
	assert.Error(t, err)

	_, err = Open(context.Background(), "no-scheme")
	assert.Error(t, err)
}

func TestOpenMySQL_RedactsPassword(t *testing.T) {
	d, err := openMySQL("app:s3cret@tcp(db:3306)/shop")
	require.NoError(t, err)
	defer d.Close()

	assert.NotContains(t, d.Redacted, "s3cret")
	assert.Contains(t, d.Redacted, "app:***@tcp(db:3306)/shop")
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := files.ReadDir(migrationDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
