// Package interfaces defines service contracts for b3notifier
package interfaces

import (
	"context"

	"github.com/bobmcallan/b3notifier/internal/models"
)

// TokenSource yields the access token to attach to an outgoing request.
// An empty string with a nil error means no token is stored.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenStore is the durable, process-shared home of the session tokens.
type TokenStore interface {
	TokenSource

	// LoadTokens returns the stored pair; missing halves are empty strings.
	LoadTokens(ctx context.Context) (models.Tokens, error)

	// SaveTokens persists both tokens atomically. Incomplete pairs are rejected
	// without touching the stored state.
	SaveTokens(ctx context.Context, tokens models.Tokens) error

	// ClearTokens removes both tokens. Clearing an empty store is not an error.
	ClearTokens(ctx context.Context) error

	// Watch emits after the store was written, by this or any other process
	// sharing it. The channel closes when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)

	Close() error
}
