// Package revocation tracks access tokens denied ahead of their natural
// expiry. The auth backend keeps issued tokens valid until they expire; this
// denylist is how an operator cuts a session off early. The gate consults it
// after the backend accepts a token, keyed by the token's jti claim.
package revocation

import (
	"context"
	"fmt"
	"time"

	"sessiongate/pkg/platform/sentinel"
)

// Denylist is a TTL-scoped set of revoked token IDs. Callers pass the
// token's residual lifetime as the TTL so entries expire with the tokens
// they block and the set stays bounded.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
