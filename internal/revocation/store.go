// Package revocation tracks per-user logout markers in Redis. A marker is
// the timestamp of the user's last logout; any token issued at or before it
// is invalid even though its signature still verifies. One marker per user
// bounds logout bookkeeping to O(1) state instead of a token blacklist.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable indicates the revocation backend is unreachable.
var ErrUnavailable = errors.New("revocation backend unavailable")

// Store reads and writes logout markers.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// New creates a marker store. ttl should be the maximum token lifetime plus
// a safety margin: a marker older than that only affects tokens already
// rejected by expiry, so it can be forgotten.
func New(client redis.UniversalClient, prefix string, ttl time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{redis: client, prefix: prefix, ttl: ttl, now: now}
}

func (s *Store) key(uid int64) string {
	return s.prefix + ":logout:" + strconv.FormatInt(uid, 10)
}

// Revoke records "logged out now" for uid. Every token issued at or before
// this moment becomes invalid immediately.
func (s *Store) Revoke(ctx context.Context, uid int64) error {
	now := s.now().Unix()
	if err := s.redis.Set(ctx, s.key(uid), now, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokedSince reports whether a token issued at iat is invalidated by the
// user's logout marker. A missing marker means not revoked.
func (s *Store) RevokedSince(ctx context.Context, uid int64, iat time.Time) (bool, error) {
	val, err := s.redis.Get(ctx, s.key(uid)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	loggedOutAt, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt marker: fail closed and treat the token as revoked.
		return true, nil
	}
	return loggedOutAt >= iat.Unix(), nil
}
