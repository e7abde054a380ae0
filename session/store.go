package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record matches a lookup or update.
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable wraps backend failures (I/O, network, decode).
	ErrUnavailable = errors.New("session store unavailable")
	// ErrInvalidRecord rejects records missing their identifying fields.
	ErrInvalidRecord = errors.New("invalid session record")
)

// Query selects a record by its current token and owning user.
type Query struct {
	Token  string
	UserID string
}

// Store is the durable session collection.
//
// Implementations must report missing records with ErrNotFound, treat
// Delete of a missing record as success, and wrap backend failures with
// ErrUnavailable. None of them retry.
type Store interface {
	FindOne(ctx context.Context, q Query) (*Record, error)
	FindByID(ctx context.Context, id string) (*Record, error)
	Create(ctx context.Context, rec Record) (*Record, error)
	Update(ctx context.Context, id string, patch Patch) (*Record, error)
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]Record, error)
}

// UserLister is implemented by stores that index records by user.
// Callers fall back to FindAll when a store does not provide it.
type UserLister interface {
	FindByUser(ctx context.Context, userID string) ([]Record, error)
}

// ListByUser returns every record owned by userID, using the store's user
// index when it has one.
func ListByUser(ctx context.Context, store Store, userID string) ([]Record, error) {
	if lister, ok := store.(UserLister); ok {
		return lister.FindByUser(ctx, userID)
	}
	all, err := store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, 4)
	for _, rec := range all {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Validate checks the fields every stored record needs.
func (r *Record) Validate() error {
	if r.ID == "" || r.UserID == "" || r.Token == "" {
		return ErrInvalidRecord
	}
	return nil
}
