package auth

import (
	"errors"
	"testing"
	"time"
)

func testSignConfig(ttl time.Duration) *SignConfig {
	return &SignConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "wirechat",
		Audience: "wirechat-client",
		TTL:      ttl,
	}
}

func TestInspectRoundTrip(t *testing.T) {
	token, err := Sign(testSignConfig(time.Hour), 42, "alice", false)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, err := Inspect(token, time.Now())
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if id.UserID != 42 || id.Username != "alice" || id.IsGuest {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.ExpiresAt.Before(time.Now()) {
		t.Fatalf("expiry in the past: %v", id.ExpiresAt)
	}
}

func TestInspectGuestFlag(t *testing.T) {
	token, err := Sign(testSignConfig(time.Hour), 7, "guest-7", true)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, err := Inspect(token, time.Now())
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !id.IsGuest {
		t.Fatalf("guest flag lost: %+v", id)
	}
}

func TestInspectExpiredToken(t *testing.T) {
	token, err := Sign(testSignConfig(time.Minute), 42, "alice", false)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, err := Inspect(token, time.Now().Add(2*time.Minute))
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if id == nil || id.Username != "alice" {
		t.Fatalf("identity must still be reported for expired tokens: %+v", id)
	}
}

func TestInspectGarbage(t *testing.T) {
	if _, err := Inspect("not-a-token", time.Now()); err == nil {
		t.Fatalf("expected parse error")
	}
}
