package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned by ISessionStore.Get for unknown or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// -----------------------------------------------------------------------------
// ISessionStore keeps the client-side session marker: token -> user id.
// -----------------------------------------------------------------------------

type ISessionStore interface {
	Put(ctx context.Context, token string, userID string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}
