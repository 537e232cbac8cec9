// Package storage persists interview records. Three backends are
// provided: an in-process map, SQLite and MongoDB. All writes are full
// upserts; the interview service owns the record and saves it whole.
package storage

import (
	"context"
	"errors"

	"github.com/anishjha12309/itero/internal/models"
)

// ErrNotFound is returned when no interview exists for a session id.
var ErrNotFound = errors.New("interview not found")

// Store is the interview persistence interface.
type Store interface {
	// Save upserts the record keyed by its SessionID.
	Save(ctx context.Context, interview *models.Interview) error

	// Get returns the record for a session id, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*models.Interview, error)

	// List returns every stored interview, newest first.
	List(ctx context.Context) ([]*models.Interview, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
