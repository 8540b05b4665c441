package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/eauth-dev/eauth"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity injected by a guard, if any.
func IdentityFromContext(ctx context.Context) (eauth.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(eauth.Identity)
	return identity, ok
}

// GuardConfig lists routes exempt from enforcement. Entries use the form
// "METHOD /path", e.g. "POST /api/auth/login"; matching is exact on method
// and path, no templates.
type GuardConfig struct {
	// AuthWhitelist routes skip both authentication and authorization.
	AuthWhitelist []string
	// PermissionWhitelist routes still require a valid token but skip the
	// permission check.
	PermissionWhitelist []string
}

// Guard returns the full enforcement pipeline: bearer token verification
// followed by a permission check against the request's method and URL.
// CORS preflight requests pass through untouched.
func Guard(engine *eauth.Engine, cfg GuardConfig) func(http.Handler) http.Handler {
	authExempt := routeSet(cfg.AuthWhitelist)
	permExempt := routeSet(cfg.PermissionWhitelist)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if authExempt[routeKey(r.Method, r.URL.Path)] {
				next.ServeHTTP(w, r)
				return
			}

			identity, ok := verify(engine, w, r)
			if !ok {
				return
			}
			ctx := requestContext(r, identity)

			if !permExempt[routeKey(r.Method, r.URL.Path)] {
				if err := engine.RequirePermission(ctx, identity, r.URL.RequestURI(), r.Method); err != nil {
					if errors.Is(err, eauth.ErrPermissionDenied) {
						http.Error(w, "forbidden", http.StatusForbidden)
					} else {
						http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					}
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate returns a guard that only verifies the bearer token and
// injects the identity; no permission check is made.
func Authenticate(engine *eauth.Engine, cfg GuardConfig) func(http.Handler) http.Handler {
	authExempt := routeSet(cfg.AuthWhitelist)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || authExempt[routeKey(r.Method, r.URL.Path)] {
				next.ServeHTTP(w, r)
				return
			}

			identity, ok := verify(engine, w, r)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(requestContext(r, identity)))
		})
	}
}

func verify(engine *eauth.Engine, w http.ResponseWriter, r *http.Request) (eauth.Identity, bool) {
	if engine == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return eauth.Identity{}, false
	}

	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return eauth.Identity{}, false
	}

	identity, err := engine.VerifyToken(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return eauth.Identity{}, false
	}
	return identity, true
}

func requestContext(r *http.Request, identity eauth.Identity) context.Context {
	ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
	return eauth.WithClientIP(ctx, clientIP(r))
}

func clientIP(r *http.Request) string {
	// Behind a proxy the first X-Forwarded-For entry is the caller.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func routeSet(entries []string) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, entry := range entries {
		method, path, ok := strings.Cut(strings.TrimSpace(entry), " ")
		if !ok {
			continue
		}
		set[routeKey(method, strings.TrimSpace(path))] = true
	}
	return set
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
