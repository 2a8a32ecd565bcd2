package db

import (
	"strings"

	"github.com/teranos/hmdraft/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database,
// typically a background writer racing shutdown.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// database/sql returns its own unwrapped error for this, so the message is matched too.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
