// Command eauthd runs the authorization core as a small HTTP service:
// login, logout, and a token+permission check endpoint, with every other
// route guarded by the enforcement middleware.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eauth-dev/eauth"
	"github.com/eauth-dev/eauth/middleware"
	"github.com/eauth-dev/eauth/pgstore"
)

type serviceConfig struct {
	listenAddr          string
	databaseURL         string
	redisAddr           string
	redisPassword       string
	logLevel            string
	authWhitelist       []string
	permissionWhitelist []string
	engine              eauth.Config
}

// envKeys maps environment variables onto flat koanf paths. Unknown
// variables are skipped so unrelated environment noise never reaches the
// config.
var envKeys = map[string]string{
	"LISTEN_ADDR":               "listen_addr",
	"DATABASE_URL":              "database_url",
	"REDIS_ADDR":                "redis_addr",
	"REDIS_PASSWORD":            "redis_password",
	"LOG_LEVEL":                 "log_level",
	"SECRET_KEY":                "secret_key",
	"TOKEN_EXPIRED":             "token_expired",
	"MAX_LOGIN_INCORRECT":       "max_login_incorrect",
	"SHORT_MAX_LOGIN_INCORRECT": "short_max_login_incorrect",
	"SHORT_MAX_LOGIN_DELAY":     "short_max_login_delay",
	"ADMIN_USERNAME":            "admin_username",
	"CACHE_REFRESH_INTERVAL":    "cache_refresh_interval",
	"USER_ROLE_TTL":             "user_role_ttl",
	"REDIS_PREFIX":              "redis_prefix",
	"AUTH_WHITE_LIST":           "auth_white_list",
	"PERMISSION_WHITE_LIST":     "permission_white_list",
}

func loadConfig() (serviceConfig, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	k := koanf.New(".")
	provider := env.Provider("", ".", func(key string) string {
		return envKeys[key]
	})
	if err := k.Load(provider, nil); err != nil {
		return serviceConfig{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := serviceConfig{
		listenAddr:    k.String("listen_addr"),
		databaseURL:   k.String("database_url"),
		redisAddr:     k.String("redis_addr"),
		redisPassword: k.String("redis_password"),
		logLevel:      k.String("log_level"),
		engine:        eauth.DefaultConfig(),
	}
	if cfg.listenAddr == "" {
		cfg.listenAddr = ":8080"
	}
	if cfg.redisAddr == "" {
		cfg.redisAddr = "127.0.0.1:6379"
	}
	if cfg.logLevel == "" {
		cfg.logLevel = "info"
	}
	if cfg.databaseURL == "" {
		return serviceConfig{}, errors.New("DATABASE_URL is required")
	}

	secret := k.String("secret_key")
	if secret == "" {
		return serviceConfig{}, errors.New("SECRET_KEY is required")
	}
	cfg.engine.Token.Secret = []byte(secret)

	if v := k.Int("token_expired"); v > 0 {
		cfg.engine.Token.TTL = time.Duration(v) * time.Second
	}
	if v := k.Int("max_login_incorrect"); v > 0 {
		cfg.engine.Lockout.MaxIncorrect = v
	}
	if v := k.Int("short_max_login_incorrect"); v > 0 {
		cfg.engine.Lockout.ShortMaxIncorrect = v
	}
	if v := k.Int("short_max_login_delay"); v > 0 {
		cfg.engine.Lockout.ShortDelay = time.Duration(v) * time.Second
	}
	if v := k.String("admin_username"); v != "" {
		cfg.engine.Admin.Username = v
	}
	if v := k.Duration("cache_refresh_interval"); v > 0 {
		cfg.engine.Cache.RefreshInterval = v
	}
	if v := k.Duration("user_role_ttl"); v > 0 {
		cfg.engine.Cache.UserRoleTTL = v
	}
	if v := k.String("redis_prefix"); v != "" {
		cfg.engine.Cache.RedisPrefix = v
	}

	cfg.authWhitelist = splitRoutes(k.String("auth_white_list"))
	cfg.permissionWhitelist = splitRoutes(k.String("permission_white_list"))
	return cfg, nil
}

// splitRoutes parses a comma-separated "METHOD /path" list.
func splitRoutes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	routes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			routes = append(routes, p)
		}
	}
	return routes
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("service", "eauthd").Logger()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "eauthd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.databaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	store := pgstore.New(pool)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr,
		Password: cfg.redisPassword,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	engine, err := eauth.New().
		WithConfig(cfg.engine).
		WithRedis(rdb).
		WithUserStore(store).
		WithRoleApiStore(store).
		WithAuditSink(eauth.NewJSONWriterSink(os.Stdout)).
		WithLogger(log).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer engine.Close()

	guardCfg := middleware.GuardConfig{
		AuthWhitelist: append([]string{
			"POST /api/auth/login",
			"GET /api/auth/ping",
		}, cfg.authWhitelist...),
		PermissionWhitelist: append([]string{
			"POST /api/auth/logout",
			"GET /api/auth/check",
		}, cfg.permissionWhitelist...),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", handleLogin(engine))
	mux.HandleFunc("POST /api/auth/logout", handleLogout(engine))
	mux.HandleFunc("GET /api/auth/check", handleCheck)
	mux.HandleFunc("GET /api/auth/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	server := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           middleware.Guard(engine, guardCfg)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.listenAddr).Msg("listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func handleLogin(engine *eauth.Engine) http.HandlerFunc {
	type request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request"})
			return
		}

		token, err := engine.Login(r.Context(), req.Username, req.Password)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"token": token})
		case errors.Is(err, eauth.ErrLockedOut):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "account locked"})
		case errors.Is(err, eauth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		default:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable"})
		}
	}
}

func handleLogout(engine *eauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		if err := engine.RevokeSession(r.Context(), identity.ID); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	}
}

// handleCheck answers the question "is this token valid". The guard already
// verified the token before this handler runs; reaching it is the answer.
func handleCheck(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uid":      identity.ID,
		"username": identity.Username,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
