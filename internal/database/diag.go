package database

import (
	"context"
	"database/sql"
	"errors"
)

// Diagnostics is a point-in-time view of the datastore for operators.
type Diagnostics struct {
	Driver        string   `json:"driver"`
	DSN           string   `json:"dsn"`
	SelectOne     bool     `json:"select_one"`
	ServerVersion string   `json:"server_version,omitempty"`
	SchemaVersion *int64   `json:"schema_version,omitempty"`
	Tables        []string `json:"tables"`
	Errors        []string `json:"errors,omitempty"`
}

// Ping reports whether a trivial query succeeds.
func (d *DB) Ping(ctx context.Context) error {
	var one int
	return d.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Diagnose collects what it can; individual failures are listed in Errors
// rather than aborting.
func (d *DB) Diagnose(ctx context.Context) Diagnostics {
	out := Diagnostics{Driver: d.Driver, DSN: d.Redacted, Tables: []string{}}
	note := func(err error) { out.Errors = append(out.Errors, err.Error()) }

	if err := d.Ping(ctx); err != nil {
		note(err)
		return out
	}
	out.SelectOne = true

	versionQ, tablesQ := "SELECT VERSION()",
		"SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name"
	if d.Driver == DriverSQLite {
		versionQ, tablesQ = "SELECT sqlite_version()",
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	}
	if err := d.QueryRowContext(ctx, versionQ).Scan(&out.ServerVersion); err != nil {
		note(err)
	}

	rows, err := d.QueryContext(ctx, tablesQ)
	if err != nil {
		note(err)
	} else {
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				note(err)
				break
			}
			out.Tables = append(out.Tables, name)
		}
		rows.Close()
	}

	if d.Driver == DriverMySQL {
		var v sql.NullInt64
		err := d.QueryRowContext(ctx, "SELECT MAX(version_id) FROM "+versionTable+" WHERE is_applied").Scan(&v)
		switch {
		case err == nil && v.Valid:
			out.SchemaVersion = &v.Int64
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			note(err)
		}
	}
	return out
}
