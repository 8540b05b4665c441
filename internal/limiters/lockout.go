// Package limiters holds the brute-force lockout gate. The decision logic
// is pure: state (counter, last-failure timestamp, administrative flag)
// lives on the identity row and is persisted by the caller through the
// user store, so the gate itself never performs I/O.
package limiters

import "time"

// Config holds the lockout thresholds.
type Config struct {
	// MaxIncorrect is the hard threshold. Reaching it blocks login until an
	// administrative reset.
	MaxIncorrect int
	// ShortMaxIncorrect is the soft threshold, active only while the most
	// recent failure is younger than ShortDelay.
	ShortMaxIncorrect int
	// ShortDelay is the soft-lock window.
	ShortDelay time.Duration
}

// Decision is the outcome of the pre-password gate.
type Decision int

const (
	// Open means the attempt may proceed to the password check.
	Open Decision = iota
	// SoftLocked means the attempt is rejected by the time-boxed threshold.
	SoftLocked
	// HardLocked means the attempt is rejected until an administrative
	// reset: either the locked flag is set or the hard threshold is reached.
	HardLocked
)

// Allowed reports whether the attempt may proceed.
func (d Decision) Allowed() bool { return d == Open }

// Lockout evaluates the gate for a single identity.
type Lockout struct {
	cfg Config
}

// New creates a lockout gate.
func New(cfg Config) *Lockout {
	return &Lockout{cfg: cfg}
}

// Gate decides, before any password comparison, whether a login attempt for
// an identity with the given state must be rejected.
//
// Only the single most recent failure timestamp is consulted for the soft
// lock; since every failure overwrites it, the window slides with each
// failure. The soft lock expires purely by time elapsing — no unlock action
// exists or is needed.
func (l *Lockout) Gate(locked bool, failures int, lastFailureAt time.Time, now time.Time) Decision {
	if locked {
		return HardLocked
	}
	if failures >= l.cfg.MaxIncorrect {
		return HardLocked
	}
	if failures >= l.cfg.ShortMaxIncorrect &&
		!lastFailureAt.IsZero() &&
		now.Sub(lastFailureAt) < l.cfg.ShortDelay {
		return SoftLocked
	}
	return Open
}
