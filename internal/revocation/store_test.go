package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, now func() time.Time, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, "test", ttl, now), mr
}

func TestRevokedSinceNoMarker(t *testing.T) {
	store, _ := newTestStore(t, nil, time.Hour)

	revoked, err := store.RevokedSince(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatalf("RevokedSince failed: %v", err)
	}
	if revoked {
		t.Fatal("expected no revocation without a marker")
	}
}

func TestRevokeInvalidatesOlderTokens(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, _ := newTestStore(t, func() time.Time { return at }, time.Hour)
	ctx := context.Background()

	if err := store.Revoke(ctx, 1); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	// Issued before the marker: revoked.
	revoked, err := store.RevokedSince(ctx, 1, at.Add(-time.Minute))
	if err != nil || !revoked {
		t.Fatalf("expected older token revoked, revoked=%v err=%v", revoked, err)
	}

	// Issued exactly at the marker instant: revoked.
	revoked, err = store.RevokedSince(ctx, 1, at)
	if err != nil || !revoked {
		t.Fatalf("expected same-instant token revoked, revoked=%v err=%v", revoked, err)
	}

	// Issued after the marker: valid.
	revoked, err = store.RevokedSince(ctx, 1, at.Add(time.Second))
	if err != nil || revoked {
		t.Fatalf("expected newer token valid, revoked=%v err=%v", revoked, err)
	}
}

func TestRevokeIsPerUser(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, _ := newTestStore(t, func() time.Time { return at }, time.Hour)
	ctx := context.Background()

	if err := store.Revoke(ctx, 1); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	revoked, err := store.RevokedSince(ctx, 2, at.Add(-time.Minute))
	if err != nil || revoked {
		t.Fatalf("expected other user unaffected, revoked=%v err=%v", revoked, err)
	}
}

func TestMarkerExpires(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, mr := newTestStore(t, func() time.Time { return at }, time.Hour)
	ctx := context.Background()

	if err := store.Revoke(ctx, 1); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	revoked, err := store.RevokedSince(ctx, 1, at.Add(-time.Minute))
	if err != nil || revoked {
		t.Fatalf("expected marker to expire, revoked=%v err=%v", revoked, err)
	}
}

func TestCorruptMarkerFailsClosed(t *testing.T) {
	store, mr := newTestStore(t, nil, time.Hour)

	mr.Set("test:logout:1", "not-a-timestamp")

	revoked, err := store.RevokedSince(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatalf("RevokedSince failed: %v", err)
	}
	if !revoked {
		t.Fatal("expected corrupt marker to revoke")
	}
}
