package token

import (
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		TTL:    3 * time.Hour,
		Secret: testSecret,
		Now:    now,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssueParseRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, func() time.Time { return at })

	raw, err := m.Issue(42, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UID != 42 || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.IssuedAt.Time.Equal(at) {
		t.Fatalf("expected iat %v, got %v", at, claims.IssuedAt.Time)
	}
	if !claims.ExpiresAt.Time.Equal(at.Add(3 * time.Hour)) {
		t.Fatalf("expected exp %v, got %v", at.Add(3*time.Hour), claims.ExpiresAt.Time)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti")
	}
}

func TestParseExpired(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := at
	m := newTestManager(t, func() time.Time { return now })

	raw, err := m.Issue(42, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	now = at.Add(3*time.Hour + time.Second)
	if _, err := m.Parse(raw); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseForeignSecret(t *testing.T) {
	m := newTestManager(t, nil)

	other, err := NewManager(Config{
		TTL:    time.Hour,
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	raw, err := other.Issue(42, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Parse(raw); err == nil {
		t.Fatal("expected foreign signature to be rejected")
	}
}

func TestParseUnsignedRejected(t *testing.T) {
	m := newTestManager(t, nil)

	// alg=none with an empty signature must never pass.
	const unsigned = "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJ1aWQiOjQyLCJ1c2VybmFtZSI6ImFsaWNlIn0."
	if _, err := m.Parse(unsigned); err == nil {
		t.Fatal("expected unsigned token to be rejected")
	}
}

func TestIssuerEnforcedWhenConfigured(t *testing.T) {
	withIssuer, err := NewManager(Config{TTL: time.Hour, Secret: testSecret, Issuer: "eauth"})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	withoutIssuer, err := NewManager(Config{TTL: time.Hour, Secret: testSecret})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	raw, err := withoutIssuer.Issue(42, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := withIssuer.Parse(raw); err == nil {
		t.Fatal("expected missing issuer to be rejected")
	}

	raw, err = withIssuer.Issue(42, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := withIssuer.Parse(raw); err != nil {
		t.Fatalf("expected matching issuer to parse: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{TTL: 0, Secret: testSecret}); err == nil {
		t.Error("expected zero TTL to be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Hour}); err == nil {
		t.Error("expected empty secret to be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Hour, Secret: testSecret, Leeway: 5 * time.Minute}); err == nil {
		t.Error("expected oversized leeway to be rejected")
	}
}
