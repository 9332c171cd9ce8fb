// Package jwtclaims reads expiry information from the payload segment of
// server-issued JWTs.
//
// Signature verification is intentionally absent: the tokens are opaque
// credentials minted and verified by the server, and the client only needs
// the exp claim for refresh scheduling. Anything that fails to decode is
// treated as expired so a malformed token can never be presented as valid.
package jwtclaims

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultBuffer absorbs the latency between an expiry check and the request
// actually reaching the server. A token that would expire mid-flight is
// reported as expired up front.
const DefaultBuffer = 30 * time.Second

// Claims is the subset of token claims the client reads.
type Claims struct {
	// ExpiresAt is the exp claim. Nil when the token carries no exp.
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
	// UserID is the account ID SimpleJWT stamps on both token types.
	UserID int64 `json:"user_id,omitempty"`
	// TokenType is "access" or "refresh" on tokens minted by SimpleJWT.
	TokenType string `json:"token_type,omitempty"`
}

// parser handles base64url segment decoding, including padded variants.
var parser = jwt.NewParser()

// Decode extracts the claims from the payload segment of token.
//
// It splits on "." and requires at least two segments, then decodes the
// second as base64url-encoded JSON. Any failure at any step returns nil;
// Decode never panics and never returns an error.
func Decode(token string) *Claims {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}

// Policy decides whether a credential is usable right now for a request
// that still has to travel to the server.
type Policy struct {
	// Buffer is the safety margin subtracted from the token's stated
	// lifetime. Zero means no margin.
	Buffer time.Duration

	// Now reports the current time. Defaults to time.Now when nil.
	Now func() time.Time
}

// Expired reports whether token is unusable for an outbound request.
//
// Empty or malformed tokens are expired. A token whose exp claim is within
// Buffer of the current time is expired. A token without an exp claim never
// expires; SimpleJWT always stamps exp, so against the real backend this
// branch is unreachable rather than a policy decision.
func (p Policy) Expired(token string) bool {
	claims := Decode(token)
	if claims == nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !p.now().Add(p.Buffer).Before(claims.ExpiresAt.Time)
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
