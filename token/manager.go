// Package token signs and parses the stateless session tokens. A token is
// bearer state reconstructed from its signature on every request — nothing
// is persisted at issuance, which keeps the hot read path free of a session
// table. Early invalidation is the revocation store's job, not this
// package's.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config defines token signing parameters.
type Config struct {
	// TTL is the token lifetime.
	TTL time.Duration
	// Secret is the HS256 signing secret.
	Secret []byte
	// Issuer is embedded in and required from every token when non-empty.
	Issuer string
	// Leeway tolerates small clock skew when validating expiry.
	Leeway time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Claims is the token payload: the identity reference plus issuance and
// expiry instants. IssuedAt is load-bearing — the revocation check compares
// it against the user's logout marker.
type Claims struct {
	UID      int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager issues and parses tokens. Safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and creates a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires signing secret")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a token for the identity. No side effects beyond signing.
func (m *Manager) Issue(uid int64, username string) (string, error) {
	now := m.config.Now()

	claims := Claims{
		UID:      uid,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			Issuer:    m.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Parse verifies the signature, expiry, and issuer and returns the claims.
// Callers must treat any error as the single opaque "invalid" outcome.
func (m *Manager) Parse(raw string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt == nil {
		return nil, errors.New("token missing iat")
	}
	return claims, nil
}
