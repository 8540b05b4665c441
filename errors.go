package eauth

import "errors"

var (
	// ErrInvalidToken covers every token-verification failure: bad signature,
	// malformed payload, expiry, revocation, and identities that no longer
	// exist or are locked. The causes are deliberately not distinguished so
	// callers cannot be used as an oracle for which check failed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrLockedOut is returned when a login attempt is rejected before the
	// password is even compared. It covers both the hard counter threshold
	// and the time-boxed soft lock; the two are not distinguished to the
	// caller.
	ErrLockedOut = errors.New("authentication limited")

	// ErrInvalidCredentials is returned for unknown usernames and failed
	// password checks alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPermissionDenied indicates an authenticated identity holds no grant
	// matching the requested (url, method) pair.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUserNotFound is the sentinel UserStore implementations must return
	// (possibly wrapped) when an identity does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDataUnavailable indicates a collaborator read or write failed.
	// During permission checks and token verification it always surfaces as
	// deny/invalid, never as allow.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrEngineNotReady is returned when an Engine method is called before
	// the engine was built or started.
	ErrEngineNotReady = errors.New("engine not initialized")
)
