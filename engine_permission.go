package eauth

import (
	"context"
	"fmt"
)

// CheckPermission decides whether the identity may call method on url.
// The designated administrator bypasses matching entirely. For everyone
// else the decision is the union of their roles' grants against the
// current snapshot. Every degraded state denies: an unpublished snapshot,
// a role set that cannot be loaded, zero grants. When the role set cannot
// be loaded the denial carries [ErrDataUnavailable] so callers can tell an
// outage from a genuine refusal.
func (e *Engine) CheckPermission(ctx context.Context, identity Identity, url, method string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}

	if e.isSuperIdentity(identity) {
		e.metricInc(MetricPermissionAllowed)
		return true, nil
	}

	roleIDs, err := e.permissions.RolesOf(ctx, identity.ID)
	if err != nil {
		e.metricInc(MetricPermissionDenied)
		e.emitPermissionAudit(ctx, identity, url, method, false)
		return false, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	allowed := e.permissions.Snapshot().Authorize(roleIDs, url, method)
	if !allowed {
		e.log.Info().Str("username", identity.Username).Str("method", method).Str("url", url).
			Msg("[permission] access denied")
		e.metricInc(MetricPermissionDenied)
		e.emitPermissionAudit(ctx, identity, url, method, false)
		return false, nil
	}

	e.metricInc(MetricPermissionAllowed)
	return true, nil
}

// RequirePermission is CheckPermission folded into a single error: nil on
// allow, [ErrPermissionDenied] on a plain deny, [ErrDataUnavailable] when
// the decision could not be made.
func (e *Engine) RequirePermission(ctx context.Context, identity Identity, url, method string) error {
	allowed, err := e.CheckPermission(ctx, identity, url, method)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// InvalidateUserRoles drops the identity's cached role set so the next
// permission check rereads the system of record. Call it after changing a
// user's role assignments.
func (e *Engine) InvalidateUserRoles(ctx context.Context, uid int64) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.permissions.InvalidateUser(ctx, uid); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return nil
}
