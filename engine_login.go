package eauth

import (
	"context"
	"errors"
	"fmt"
)

// Login runs the full authentication flow: identity lookup, lockout gate,
// password verification, failure-counter bookkeeping, and token issuance.
// Unknown usernames and wrong passwords both surface as
// [ErrInvalidCredentials]; hard and soft lockouts both surface as
// [ErrLockedOut]. Only the coarse outcome ever reaches the caller.
func (e *Engine) Login(ctx context.Context, username, passwd string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	user, err := e.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.log.Info().Str("username", username).Msg("[login] unknown user")
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLogin, Identity{Username: username}, false, ErrInvalidCredentials, nil)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	// Gate check and counter update are separate steps: the gate rejects
	// before the password is ever compared, while the increment below runs
	// only for attempts the gate let through.
	decision := e.lockout.Gate(user.Locked, user.LoginFailureCount, user.LastFailureAt, e.clock())
	if !decision.Allowed() {
		e.log.Info().Str("username", user.Username).Int("failures", user.LoginFailureCount).
			Msg("[login] attempt rejected by lockout gate")
		e.metricInc(MetricLoginLockedOut)
		e.emitAudit(ctx, auditEventLoginLockedOut, user, false, ErrLockedOut, nil)
		return "", ErrLockedOut
	}

	ok, err := e.hasher.Verify(passwd, user.PasswordHash)
	if err != nil {
		// A malformed stored hash can never verify; treat as a failed
		// attempt but keep the cause in the log.
		e.log.Error().Err(err).Str("username", user.Username).Msg("[login] stored password hash unusable")
		ok = false
	}
	if !ok {
		e.recordFailure(ctx, user)
		e.log.Warn().Str("username", user.Username).Msg("[login] password verification failed")
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, user, false, ErrInvalidCredentials, nil)
		return "", ErrInvalidCredentials
	}

	e.recordSuccess(ctx, user)

	tok, err := e.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", err
	}
	e.log.Info().Str("username", user.Username).Msg("[login] login success")
	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventLogin, user, true, nil, nil)
	return tok, nil
}

// RecordLoginAttempt applies the lockout state machine for one attempt whose
// password check (if any) the caller performed elsewhere. When the gate
// rejects, no counter is touched — the password was never compared. When the
// gate admits the attempt, the counter is incremented on failure or reset on
// success; a failed persistence write never changes the returned decision.
func (e *Engine) RecordLoginAttempt(ctx context.Context, identity Identity, success bool) (LockoutDecision, error) {
	if e == nil {
		return LockoutHard, ErrEngineNotReady
	}

	decision := e.lockout.Gate(identity.Locked, identity.LoginFailureCount, identity.LastFailureAt, e.clock())
	if !decision.Allowed() {
		e.metricInc(MetricLoginLockedOut)
		e.emitAudit(ctx, auditEventLoginLockedOut, identity, false, ErrLockedOut, nil)
		return decision, nil
	}

	if success {
		e.recordSuccess(ctx, identity)
	} else {
		e.recordFailure(ctx, identity)
	}
	return LockoutOpen, nil
}

// recordFailure increments the failure counter and stamps the attempt time.
// The write is best-effort: a transient store error must not block the
// login decision already made, so it is logged and swallowed.
func (e *Engine) recordFailure(ctx context.Context, identity Identity) {
	count := identity.LoginFailureCount + 1
	if err := e.users.UpdateFailureCounter(ctx, identity.ID, count, e.clock()); err != nil {
		e.log.Error().Err(err).Str("username", identity.Username).
			Msg("[login] failed to persist failure counter")
	}
}

// recordSuccess resets the failure counter. The last-failure timestamp is
// left alone: with the counter at zero the soft-lock condition can no
// longer hold, so the stale timestamp is irrelevant.
func (e *Engine) recordSuccess(ctx context.Context, identity Identity) {
	if identity.LoginFailureCount == 0 {
		return
	}
	if err := e.users.UpdateFailureCounter(ctx, identity.ID, 0, identity.LastFailureAt); err != nil {
		e.log.Warn().Err(err).Str("username", identity.Username).
			Msg("[login] failed to reset failure counter")
	}
}

// LockUser sets the administrative locked flag. A locked identity is
// rejected by the lockout gate and by token verification.
func (e *Engine) LockUser(ctx context.Context, uid int64) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.users.SetLocked(ctx, uid, true); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	e.emitAudit(ctx, auditEventAccountLocked, Identity{ID: uid}, true, nil, nil)
	return nil
}

// UnlockUser clears the administrative locked flag and resets the failure
// counter, restoring login access after a hard lock.
func (e *Engine) UnlockUser(ctx context.Context, uid int64) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.users.SetLocked(ctx, uid, false); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if err := e.users.UpdateFailureCounter(ctx, uid, 0, e.clock()); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	e.emitAudit(ctx, auditEventAccountUnlocked, Identity{ID: uid}, true, nil, nil)
	return nil
}
