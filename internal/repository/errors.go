// Package repository holds the SQL data access for the shop. Queries use
// "?" placeholders and portable SQL so the same code runs against MySQL and
// SQLite.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by key matches no row. Handlers
// translate it into a 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with existing state, such as
// a duplicate VIN. Handlers translate it into a 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is a conflict on the unique email of a customer or mechanic.
var ErrEmailExists = errors.New("email already exists")

// isDuplicate recognises unique-key violations from both drivers.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isMissingReference recognises foreign-key violations on insert/update.
func isMissingReference(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1452
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
