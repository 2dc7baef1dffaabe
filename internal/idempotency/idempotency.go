// Package idempotency carries the webhook delivery key through the
// pipeline so redelivered events deduplicate downstream.
package idempotency

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, key)
}

// GetKey returns the delivery key, or a fresh one when the caller did
// not come through the webhook path.
func GetKey(ctx context.Context) string {
	key, ok := ctx.Value(ctxKey{}).(string)
	if !ok {
		return uuid.NewString()
	}
	return key
}
