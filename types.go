package eauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/eauth-dev/eauth/internal/audit"
	"github.com/eauth-dev/eauth/internal/limiters"
	internalmetrics "github.com/eauth-dev/eauth/internal/metrics"
	"github.com/eauth-dev/eauth/permission"
)

// Identity is the account record the core reads from the [UserStore]. The
// core only ever writes back Locked (via SetLocked) and the failure counter
// pair (via UpdateFailureCounter); everything else is owned by the
// user-management collaborator.
type Identity struct {
	ID                int64
	Username          string
	PasswordHash      string
	Locked            bool
	LoginFailureCount int
	LastFailureAt     time.Time
}

// Api is a protected endpoint: a URL template (with {param} placeholders)
// plus an HTTP method. (URL, Method) pairs are unique at the data layer.
type Api = permission.Api

// Role is a named grant holder. Users hold roles; roles hold apis.
type Role = permission.Role

// UserStore is the identity collaborator contract. Implementations must
// return [ErrUserNotFound] (possibly wrapped) from the lookup methods when
// no such identity exists, and must apply UpdateFailureCounter as a single
// atomic write so concurrent failed logins cannot lose increments.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (Identity, error)
	GetByUsername(ctx context.Context, username string) (Identity, error)
	UpdateFailureCounter(ctx context.Context, id int64, count int, lastFailureAt time.Time) error
	SetLocked(ctx context.Context, id int64, locked bool) error
}

// RoleApiStore is the system-of-record contract for role→api grants.
type RoleApiStore = permission.Store

// LockoutDecision is the outcome of the pre-password lockout gate.
type LockoutDecision = limiters.Decision

const (
	// LockoutOpen means the login attempt may proceed to the password check.
	LockoutOpen = limiters.Open
	// LockoutSoft means the attempt is rejected by the time-boxed threshold.
	// It clears purely by elapsed time.
	LockoutSoft = limiters.SoftLocked
	// LockoutHard means the attempt is rejected terminally: either the
	// administrative locked flag is set or the hard counter threshold was
	// reached. Requires an administrative reset.
	LockoutHard = limiters.HardLocked
)

// AuditEvent is a structured security/operation record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a counter in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess      = internalmetrics.MetricLoginSuccess
	MetricLoginFailure      = internalmetrics.MetricLoginFailure
	MetricLoginLockedOut    = internalmetrics.MetricLoginLockedOut
	MetricTokenIssued       = internalmetrics.MetricTokenIssued
	MetricTokenInvalid      = internalmetrics.MetricTokenInvalid
	MetricSessionRevoked    = internalmetrics.MetricSessionRevoked
	MetricPermissionAllowed = internalmetrics.MetricPermissionAllowed
	MetricPermissionDenied  = internalmetrics.MetricPermissionDenied
	MetricCacheRefresh      = internalmetrics.MetricCacheRefresh
	MetricRoleCacheMiss     = internalmetrics.MetricRoleCacheMiss
)

// Metrics holds the engine's atomic counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot
