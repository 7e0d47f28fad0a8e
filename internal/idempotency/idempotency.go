// Package idempotency remembers which order a client-supplied key produced,
// so a retried checkout returns the original order instead of placing another.
package idempotency

import (
	"context"
	"errors"
)

// ErrInProgress is returned by Reserve while another request holds the key.
var ErrInProgress = errors.New("idempotency key in use")

// pending is the value held while a reservation has not completed.
const pending = "pending"

// Store tracks idempotency keys.
type Store interface {
	// Reserve claims key. It returns "" when the caller now owns the key,
	// the stored order id when the key already completed, and
	// ErrInProgress when another request owns it.
	Reserve(ctx context.Context, key string) (string, error)
	// Complete records the order id produced under key.
	Complete(ctx context.Context, key, orderID string) error
	// Release frees key after a failed attempt so it can be retried.
	Release(ctx context.Context, key string) error
}

// Key scopes a client key to a user.
func Key(userID, clientKey string) string {
	return "idempotency:checkout:" + userID + ":" + clientKey
}
