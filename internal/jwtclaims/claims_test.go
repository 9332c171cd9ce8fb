package jwtclaims

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

// mint builds an unsigned JWT with the given claims. The signature segment
// is a placeholder; nothing in this package verifies it.
func mint(t *testing.T, claims map[string]any) string {
	t.Helper()

	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshaling claims: %v", err)
	}

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".signature"
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"single segment", "justonesegment"},
		{"invalid base64 payload", "header.%%%.sig"},
		{"payload is not JSON", "header." + base64.RawURLEncoding.EncodeToString([]byte("{")) + ".sig"},
		{"payload is a JSON array", "header." + base64.RawURLEncoding.EncodeToString([]byte("[1,2]")) + ".sig"},
		{"exp is not a number", "header." + base64.RawURLEncoding.EncodeToString([]byte(`{"exp":"soon"}`)) + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.token); got != nil {
				t.Errorf("Decode(%q) = %+v, want nil", tt.token, got)
			}
		})
	}
}

func TestDecodeValid(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	token := mint(t, map[string]any{"exp": exp, "token_type": "access", "user_id": 42})

	claims := Decode(token)
	if claims == nil {
		t.Fatal("Decode returned nil for a well-formed token")
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Unix() != exp {
		t.Errorf("ExpiresAt = %v, want unix %d", claims.ExpiresAt, exp)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.TokenType != "access" {
		t.Errorf("TokenType = %q, want %q", claims.TokenType, "access")
	}
}

// Two-segment tokens (no signature) still decode; the payload is all the
// client reads.
func TestDecodeTwoSegments(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":123}`))
	claims := Decode("header." + payload)
	if claims == nil {
		t.Fatal("Decode returned nil for a two-segment token")
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Unix() != 123 {
		t.Errorf("ExpiresAt = %v, want unix 123", claims.ExpiresAt)
	}
}

func TestPolicyExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	policy := Policy{Buffer: 30 * time.Second, Now: func() time.Time { return now }}

	mk := func(offset time.Duration) string {
		return mint(t, map[string]any{"exp": now.Add(offset).Unix()})
	}

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty token", "", true},
		{"malformed token", "not-a-token", true},
		{"already expired", mk(-100 * time.Second), true},
		{"inside the buffer", mk(29 * time.Second), true},
		{"exactly at the buffer boundary", mk(30 * time.Second), true},
		{"just past the buffer", mk(31 * time.Second), false},
		{"safely in the future", mk(90 * time.Second), false},
		{"no exp claim", mint(t, map[string]any{"sub": "42"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Expired(tt.token); got != tt.want {
				t.Errorf("Expired(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestPolicyZeroValueUsesWallClock(t *testing.T) {
	var policy Policy
	future := mint(t, map[string]any{"exp": time.Now().Add(time.Hour).Unix()})
	if policy.Expired(future) {
		t.Error("zero-value policy reported a one-hour token as expired")
	}
	past := mint(t, map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})
	if !policy.Expired(past) {
		t.Error("zero-value policy accepted an expired token")
	}
}
