// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/learnspace-ai/learnspace/internal/domain"
)

// ErrNotFound is returned when no record exists for the requested username.
var ErrNotFound = errors.New("record not found")

// Repository persists whole user records keyed by username, plus a single
// "current user" pointer. Record writes are synchronous full overwrites; the
// pointer and the record are written independently, with no transaction
// spanning the two.
type Repository interface {
	// LoadUser retrieves the full record for a username.
	// Returns ErrNotFound if the user does not exist.
	LoadUser(ctx context.Context, username string) (*domain.UserRecord, error)

	// SaveUser overwrites the full record for record.Username.
	SaveUser(ctx context.Context, record *domain.UserRecord) error

	// CurrentUser returns the logged-in username, or "" when logged out.
	CurrentUser(ctx context.Context) (string, error)

	// SetCurrentUser stores the logged-in username.
	SetCurrentUser(ctx context.Context, username string) error

	// ClearCurrentUser removes the logged-in username.
	ClearCurrentUser(ctx context.Context) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
