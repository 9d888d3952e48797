package ports

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// StateStore defines the interface for persisting booking state.
// Persistence is an external responsibility of the host; the core only
// computes what is known, how sure we are, and what to ask next.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.BookingState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.BookingState, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
