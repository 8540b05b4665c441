package eauth

import (
	"context"
	"sync/atomic"
	"time"

	internalaudit "github.com/eauth-dev/eauth/internal/audit"
	"github.com/eauth-dev/eauth/internal/limiters"
	internalmetrics "github.com/eauth-dev/eauth/internal/metrics"
	"github.com/eauth-dev/eauth/internal/revocation"
	"github.com/eauth-dev/eauth/password"
	"github.com/eauth-dev/eauth/permission"
	"github.com/eauth-dev/eauth/token"
	"github.com/rs/zerolog"
)

// Engine is the authorization core's façade. Build one through [Builder],
// call [Engine.Start] before serving traffic, and [Engine.Close] on
// shutdown. All methods are safe for concurrent use.
type Engine struct {
	config      Config
	users       UserStore
	tokens      *token.Manager
	hasher      *password.Hasher
	permissions *permission.Cache
	revocations *revocation.Store
	lockout     *limiters.Lockout
	audit       *internalaudit.Dispatcher
	metrics     *internalmetrics.Metrics
	log         zerolog.Logger
	clock       func() time.Time

	started atomic.Bool
}

// Start eagerly populates the permission snapshot and launches the periodic
// refresh task. Serving traffic before Start returns means permission
// checks fail closed against an empty snapshot.
func (e *Engine) Start(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if !e.started.CompareAndSwap(false, true) {
		return nil
	}
	return e.permissions.Start(ctx)
}

// Close stops the permission refresh task and flushes the audit
// dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.started.Load() {
		e.permissions.Stop()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// RefreshPermissions forces an immediate snapshot rebuild outside the
// periodic schedule.
func (e *Engine) RefreshPermissions(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	e.metricInc(MetricCacheRefresh)
	return e.permissions.Refresh(ctx)
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// isSuperIdentity reports whether the identity is the designated
// administrator that bypasses permission checks. The comparison uses the
// username loaded from the UserStore — never a name taken from request
// input — so the bypass cannot be reached by forging a request field.
func (e *Engine) isSuperIdentity(identity Identity) bool {
	return identity.Username == e.config.Admin.Username
}
