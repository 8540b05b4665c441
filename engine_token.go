package eauth

import (
	"context"
	"fmt"
)

// IssueToken signs a fresh session token for an already-authenticated
// identity. No credential check happens here; use [Engine.Login] for the
// full flow.
func (e *Engine) IssueToken(identity Identity) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	tok, err := e.tokens.Issue(identity.ID, identity.Username)
	if err != nil {
		return "", err
	}
	e.metricInc(MetricTokenIssued)
	return tok, nil
}

// VerifyToken validates a raw token end to end: signature and expiry,
// logout marker, identity existence, and the locked flag. Every failure
// collapses into the opaque [ErrInvalidToken] so a caller probing the
// endpoint learns nothing about which check rejected it; the distinction
// lives in the log. A revocation backend outage is the one exception —
// it surfaces as [ErrDataUnavailable] because the token may be fine.
func (e *Engine) VerifyToken(ctx context.Context, raw string) (Identity, error) {
	if e == nil {
		return Identity{}, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(raw)
	if err != nil {
		e.log.Debug().Err(err).Msg("[token] token parse rejected")
		e.metricInc(MetricTokenInvalid)
		return Identity{}, ErrInvalidToken
	}

	revoked, err := e.revocations.RevokedSince(ctx, claims.UID, claims.IssuedAt.Time)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if revoked {
		e.log.Debug().Int64("uid", claims.UID).Msg("[token] token predates logout marker")
		e.metricInc(MetricTokenInvalid)
		return Identity{}, ErrInvalidToken
	}

	user, err := e.users.GetByID(ctx, claims.UID)
	if err != nil {
		e.log.Debug().Err(err).Int64("uid", claims.UID).Msg("[token] token subject not loadable")
		e.metricInc(MetricTokenInvalid)
		return Identity{}, ErrInvalidToken
	}
	if user.Locked {
		e.log.Debug().Int64("uid", user.ID).Msg("[token] token subject is locked")
		e.metricInc(MetricTokenInvalid)
		return Identity{}, ErrInvalidToken
	}

	return user, nil
}

// RevokeSession writes the user's logout marker, invalidating every token
// issued at or before this instant. Tokens issued afterwards are unaffected.
func (e *Engine) RevokeSession(ctx context.Context, uid int64) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.revocations.Revoke(ctx, uid); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventLogout, Identity{ID: uid}, true, nil, nil)
	return nil
}
