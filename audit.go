package eauth

import (
	"context"

	internalaudit "github.com/eauth-dev/eauth/internal/audit"
	"github.com/google/uuid"
)

// Audit event types emitted by the engine. Security events mirror the
// original system's security log (login/logout outcomes); operation events
// mirror its operate log.
const (
	auditEventLogin           = "login"
	auditEventLoginLockedOut  = "login_locked_out"
	auditEventLogout          = "logout"
	auditEventPermissionCheck = "permission_check"
	auditEventAccountLocked   = "account_locked"
	auditEventAccountUnlocked = "account_unlocked"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, identity Identity, success bool, failure error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := internalaudit.Event{
		ID:        uuid.NewString(),
		Timestamp: e.clock(),
		EventType: eventType,
		UserID:    identity.ID,
		Username:  identity.Username,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) emitPermissionAudit(ctx context.Context, identity Identity, url, method string, allowed bool) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(ctx, internalaudit.Event{
		ID:        uuid.NewString(),
		Timestamp: e.clock(),
		EventType: auditEventPermissionCheck,
		UserID:    identity.ID,
		Username:  identity.Username,
		IP:        clientIPFromContext(ctx),
		URL:       url,
		Method:    method,
		Success:   allowed,
	})
}
