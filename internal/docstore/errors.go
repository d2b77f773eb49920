package docstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vmunix/anitrack/internal/library"
)

// mapSQLiteError converts SQLite errors to library error kinds.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return library.ErrNotFound
	}
	// modernc.org/sqlite wraps errors; check error message for constraint violations
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed") {
		return library.ErrDuplicate
	}
	if strings.Contains(errStr, "CHECK constraint failed") ||
		strings.Contains(errStr, "NOT NULL constraint failed") {
		return fmt.Errorf("%w: %s", library.ErrValidation, errStr)
	}
	return err
}
