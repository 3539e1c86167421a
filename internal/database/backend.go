package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/iliyamo/mechanic-shop/internal/logging"
)

const (
	// LockName is the MySQL named lock serialising migrations across
	// processes.
	LockName = "mechanic_shop_migrations"

	versionTable = "goose_db_version"
	migrationDir = "migrations"
)

// coreTables decide whether a schema exists at all.
var coreTables = []string{"customers", "mechanics", "service_tickets"}

// ErrLockTimeout is returned when the migration lock is still held by
// another process after the configured wait.
var ErrLockTimeout = errors.New("timed out waiting for migration lock")

// NewBackend picks the migration backend for d. SQLite datastores are
// unmanaged.
func NewBackend(d *DB, lockTimeout time.Duration, log logging.Logger) Backend {
	if d.Driver != DriverMySQL {
		return unmanaged{}
	}
	return &mysqlBackend{db: d.DB, lockTimeout: lockTimeout, log: log}
}

type unmanaged struct{}

func (unmanaged) Managed() bool                               { return false }
func (unmanaged) Lock(context.Context) (func(), error)        { return func() {}, ErrUnmanaged }
func (unmanaged) Upgrade(context.Context) error               { return ErrUnmanaged }
func (unmanaged) ResetVersionTable(context.Context) error     { return ErrUnmanaged }
func (unmanaged) HasCoreTables(context.Context) (bool, error) { return false, ErrUnmanaged }
func (unmanaged) Bootstrap(context.Context) error             { return ErrUnmanaged }

// mysqlBackend applies the embedded goose migrations.
type mysqlBackend struct {
	db          *sql.DB
	lockTimeout time.Duration
	log         logging.Logger
}

// seams for tests
var (
	gooseUp           = goose.UpContext
	gooseDBVersion    = goose.GetDBVersionContext
	gooseCollect      = goose.CollectMigrations
	gooseSetDialect   = goose.SetDialect
	gooseSetBaseFS    = goose.SetBaseFS
	gooseSetLogger    = goose.SetLogger
	gooseSetTableName = goose.SetTableName
)

func (b *mysqlBackend) Managed() bool { return true }

func (b *mysqlBackend) prepare() error {
	gooseSetBaseFS(files)
	gooseSetTableName(versionTable)
	if b.log != nil {
		gooseSetLogger(gooseLogger{b.log})
	}
	return gooseSetDialect("mysql")
}

// Lock takes GET_LOCK on a dedicated connection. Named locks belong to the
// session, so the same connection must release it.
func (b *mysqlBackend) Lock(ctx context.Context) (func(), error) {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	secs := int(math.Ceil(b.lockTimeout.Seconds()))
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", LockName, secs).Scan(&got); err != nil {
		conn.Close()
		return nil, err
	}
	if !got.Valid || got.Int64 != 1 {
		conn.Close()
		return nil, ErrLockTimeout
	}
	return func() {
		var released sql.NullInt64
		_ = conn.QueryRowContext(context.Background(), "SELECT RELEASE_LOCK(?)", LockName).Scan(&released)
		conn.Close()
	}, nil
}

func (b *mysqlBackend) knownVersions() ([]int64, error) {
	ms, err := gooseCollect(migrationDir, 0, math.MaxInt64)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Version)
	}
	return out, nil
}

func (b *mysqlBackend) Upgrade(ctx context.Context) error {
	if err := b.prepare(); err != nil {
		return err
	}
	known, err := b.knownVersions()
	if err != nil {
		return err
	}
	current, err := gooseDBVersion(ctx, b.db)
	if err != nil {
		return err
	}
	if current != 0 && !slices.Contains(known, current) {
		return fmt.Errorf("%w: %d", ErrUnknownRevision, current)
	}
	return gooseUp(ctx, b.db, migrationDir)
}

func (b *mysqlBackend) ResetVersionTable(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+versionTable)
	return err
}

func (b *mysqlBackend) HasCoreTables(ctx context.Context) (bool, error) {
	var n int
	err := b.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name IN (?, ?, ?)",
		coreTables[0], coreTables[1], coreTables[2]).Scan(&n)
	return n > 0, err
}

// Bootstrap runs the full schema and records the newest migration as
// applied so later upgrades start from there.
func (b *mysqlBackend) Bootstrap(ctx context.Context) error {
	if err := b.prepare(); err != nil {
		return err
	}
	if err := execScript(ctx, b.db, "schema/mysql.sql"); err != nil {
		return err
	}
	known, err := b.knownVersions()
	if err != nil {
		return err
	}
	if len(known) == 0 {
		return nil
	}
	latest := known[len(known)-1]
	current, err := gooseDBVersion(ctx, b.db)
	if err != nil {
		return err
	}
	if current >= latest {
		return nil
	}
	_, err = b.db.ExecContext(ctx, "INSERT INTO "+versionTable+" (version_id, is_applied) VALUES (?, ?)", latest, true)
	return err
}

// gooseLogger routes goose output through the application logger.
type gooseLogger struct{ log logging.Logger }

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(context.Background(), "migrate: "+fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(context.Background(), "migrate: "+fmt.Sprintf(format, v...))
}
