package eauth

import (
	"errors"
	"time"
)

// Config defines the engine's tunables. Configure once before
// [Builder.Build]; the engine treats its config as immutable afterwards.
type Config struct {
	Token   TokenConfig
	Lockout LockoutConfig
	Cache   CacheConfig
	Admin   AdminConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls session-token issuance and verification.
type TokenConfig struct {
	// TTL is the token lifetime (TOKEN_EXPIRED). Tokens older than this are
	// rejected by expiry regardless of revocation state.
	TTL time.Duration
	// Secret is the HS256 signing secret (SIGNING_SECRET). Required,
	// minimum 32 bytes.
	Secret []byte
	// Issuer is embedded in and required from every token when non-empty.
	Issuer string
	// Leeway tolerates small clock skew during expiry checks. Bounded to
	// two minutes.
	Leeway time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls the brute-force login gate.
type LockoutConfig struct {
	// MaxIncorrect is the hard threshold (MAX_LOGIN_INCORRECT): once the
	// failure counter reaches it, login is rejected until an administrative
	// reset.
	MaxIncorrect int
	// ShortMaxIncorrect is the soft threshold (SHORT_MAX_LOGIN_INCORRECT):
	// once reached, login is rejected while the most recent failure is
	// younger than ShortDelay.
	ShortMaxIncorrect int
	// ShortDelay is the soft-lock window (SHORT_MAX_LOGIN_DELAY). The soft
	// lock expires purely by time elapsing.
	ShortDelay time.Duration
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the permission snapshot and the per-user role cache.
type CacheConfig struct {
	// RefreshInterval is the bulk snapshot rebuild period
	// (CACHE_REFRESH_INTERVAL). One eager refresh runs at Start before any
	// traffic is served.
	RefreshInterval time.Duration
	// UserRoleTTL bounds the staleness of per-user role assignments. A
	// grant or revocation takes effect within RefreshInterval + UserRoleTTL.
	UserRoleTTL time.Duration
	// RedisPrefix namespaces the engine's redis keys.
	RedisPrefix string
	// RevocationMargin is added to Token.TTL when expiring logout markers;
	// tokens older than TTL+margin are already rejected by expiry.
	RevocationMargin time.Duration
}

/*
====================================
ADMIN CONFIG
====================================
*/

// AdminConfig names the designated super-identity. An identity whose
// username equals Username (after verification against the UserStore, never
// from request input) bypasses permission checks entirely.
type AdminConfig struct {
	Username string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the request path when the
	// buffer is saturated.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration. The token secret has no
// usable default and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:    3 * time.Hour,
			Leeway: 0,
		},
		Lockout: LockoutConfig{
			MaxIncorrect:      15,
			ShortMaxIncorrect: 5,
			ShortDelay:        time.Hour,
		},
		Cache: CacheConfig{
			RefreshInterval:  10 * time.Minute,
			UserRoleTTL:      5 * time.Minute,
			RedisPrefix:      "eauth",
			RevocationMargin: 30 * time.Second,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration error found.
func (c Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token leeway out of range")
	}
	if c.Lockout.MaxIncorrect <= 0 {
		return errors.New("lockout MaxIncorrect must be positive")
	}
	if c.Lockout.ShortMaxIncorrect <= 0 || c.Lockout.ShortMaxIncorrect > c.Lockout.MaxIncorrect {
		return errors.New("lockout ShortMaxIncorrect must be positive and not exceed MaxIncorrect")
	}
	if c.Lockout.ShortDelay <= 0 {
		return errors.New("lockout ShortDelay must be positive")
	}
	if c.Cache.RefreshInterval <= 0 {
		return errors.New("cache RefreshInterval must be positive")
	}
	if c.Cache.UserRoleTTL <= 0 {
		return errors.New("cache UserRoleTTL must be positive")
	}
	if c.Cache.RevocationMargin < 0 {
		return errors.New("cache RevocationMargin must not be negative")
	}
	if c.Admin.Username == "" {
		return errors.New("admin username must not be empty")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
