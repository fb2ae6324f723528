package store

import (
	"errors"
	"strings"

	sqlite "modernc.org/sqlite"
)

// sqliteConstraint is the primary SQLITE_CONSTRAINT result code.
const sqliteConstraint = 19

var (
	// ErrNotFound is returned by updates and deletes that match no row.
	ErrNotFound = errors.New("not found")
	// ErrStaleVersion is returned when an optimistic update lost the race.
	ErrStaleVersion = errors.New("stale version")
)

// IsConstraint reports whether err is a SQLite constraint violation
// (foreign key, unique, not null or check).
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqliteConstraint
	}
	return strings.Contains(err.Error(), "constraint failed")
}

// IsUniqueConstraint reports whether err is a UNIQUE violation.
func IsUniqueConstraint(err error) bool {
	return IsConstraint(err) && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
