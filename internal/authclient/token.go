package authclient

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenInfo is what the gateway reads out of an access token without
// verifying it. All cryptographic trust stays with the auth backend; the
// gateway only needs the expiry to schedule refreshes, the token ID for
// denylist lookups, and the subject for the audit trail.
type tokenInfo struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

// peekToken decodes the claims of a JWT without checking its signature.
func peekToken(raw string) (*tokenInfo, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	info := &tokenInfo{
		Subject: claims.Subject,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// freshAt reports whether the token can still be presented at instant t.
// Tokens without an expiry claim are treated as stale so they get exchanged
// rather than forwarded.
func (i *tokenInfo) freshAt(t time.Time) bool {
	return !i.ExpiresAt.IsZero() && i.ExpiresAt.After(t)
}
