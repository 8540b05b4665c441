package eauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestVerifyTokenRoundTrip(t *testing.T) {
	store := newMockStore()
	store.putUser(Identity{ID: 1, Username: "alice"})

	engine := newTestEngine(t, testConfig(), store, newFakeClock())

	token, err := engine.IssueToken(store.user(1))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	identity, err := engine.VerifyToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if identity.ID != 1 || identity.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestVerifyTokenGarbage(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(t, testConfig(), store, newFakeClock())

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := engine.VerifyToken(context.Background(), raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("raw %q: expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestVerifyTokenExpires(t *testing.T) {
	cfg := testConfig()
	clock := newFakeClock()
	store := newMockStore()
	store.putUser(Identity{ID: 1, Username: "alice"})

	engine := newTestEngine(t, cfg, store, clock)

	token, err := engine.IssueToken(store.user(1))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	clock.Advance(cfg.Token.TTL + time.Second)

	if _, err := engine.VerifyToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestRevokeSessionInvalidatesIssuedTokens(t *testing.T) {
	clock := newFakeClock()
	store := newMockStore()
	store.putUser(Identity{ID: 1, Username: "alice"})

	engine := newTestEngine(t, testConfig(), store, clock)
	ctx := context.Background()

	token, err := engine.IssueToken(store.user(1))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if err := engine.RevokeSession(ctx, 1); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}

	if _, err := engine.VerifyToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after revocation, got %v", err)
	}

	// A token issued strictly after the marker is unaffected.
	clock.Advance(time.Second)
	fresh, err := engine.IssueToken(store.user(1))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := engine.VerifyToken(ctx, fresh); err != nil {
		t.Fatalf("expected fresh token to verify, got %v", err)
	}
}

func TestVerifyTokenLockedOrMissingUser(t *testing.T) {
	store := newMockStore()
	store.putUser(Identity{ID: 1, Username: "alice"})
	store.putUser(Identity{ID: 2, Username: "bob"})

	engine := newTestEngine(t, testConfig(), store, newFakeClock())
	ctx := context.Background()

	aliceToken, err := engine.IssueToken(store.user(1))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	bobToken, err := engine.IssueToken(store.user(2))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if err := store.SetLocked(ctx, 1, true); err != nil {
		t.Fatalf("SetLocked failed: %v", err)
	}
	if _, err := engine.VerifyToken(ctx, aliceToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for locked user, got %v", err)
	}

	store.mu.Lock()
	delete(store.users, 2)
	store.mu.Unlock()
	if _, err := engine.VerifyToken(ctx, bobToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing user, got %v", err)
	}
}

func TestVerifyTokenOtherSecretRejected(t *testing.T) {
	store := newMockStore()
	store.putUser(Identity{ID: 1, Username: "alice"})

	clock := newFakeClock()
	engine := newTestEngine(t, testConfig(), store, clock)

	otherCfg := testConfig()
	otherCfg.Token.Secret = []byte("ffffffffffffffffffffffffffffffff")
	other := newTestEngine(t, otherCfg, store, clock)

	token, err := other.IssueToken(store.user(1))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := engine.VerifyToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}
