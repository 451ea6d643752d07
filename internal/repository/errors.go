// Package repository defines the SQL stores and the error values they
// share. Driver specific failures are translated here so that higher
// layers only ever see these sentinels or an opaque store error.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness
// constraint, e.g. a second user with the same email. Handlers
// translate this into a 400/409 depending on the route.
var ErrConflict = errors.New("conflict")

// ErrUnknownRole is returned when a roles row carries a name that is
// not one of the known roles.
var ErrUnknownRole = errors.New("unknown role in store")

const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique/primary key violation
// from either supported driver.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
