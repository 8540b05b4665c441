package eauth

import (
	"errors"
	"time"

	internalaudit "github.com/eauth-dev/eauth/internal/audit"
	"github.com/eauth-dev/eauth/internal/limiters"
	internalmetrics "github.com/eauth-dev/eauth/internal/metrics"
	"github.com/eauth-dev/eauth/internal/revocation"
	"github.com/eauth-dev/eauth/password"
	"github.com/eauth-dev/eauth/permission"
	"github.com/eauth-dev/eauth/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until [Engine.Start].
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	users     UserStore
	roleApis  RoleApiStore
	auditSink AuditSink
	logger    zerolog.Logger
	loggerSet bool
	clock     func() time.Time

	built bool
}

// New creates a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the redis client backing revocation markers and the
// per-user role cache. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the identity collaborator. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithRoleApiStore sets the grant system of record. Required.
func (b *Builder) WithRoleApiStore(store RoleApiStore) *Builder {
	b.roleApis = store
	return b
}

// WithAuditSink sets the destination for audit events. Defaults to a
// no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. Defaults to a disabled logger.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.logger = log
	b.loggerSet = true
	return b
}

// WithClock overrides the engine clock. Tests inject a fake clock here to
// drive lockout windows and token expiry deterministically.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine. The permission
// cache is not started; call [Engine.Start] before serving traffic.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.roleApis == nil {
		return nil, errors.New("role api store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	log := b.logger
	if !b.loggerSet {
		log = zerolog.Nop()
	}

	tokens, err := token.NewManager(token.Config{
		TTL:    cfg.Token.TTL,
		Secret: cloneBytes(cfg.Token.Secret),
		Issuer: cfg.Token.Issuer,
		Leeway: cfg.Token.Leeway,
		Now:    clock,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		users:  b.users,
		tokens: tokens,
		hasher: hasher,
		log:    log,
		clock:  clock,
	}

	engine.metrics = internalmetrics.New(internalmetrics.Config{Enabled: cfg.Metrics.Enabled})
	engine.permissions = permission.NewCache(b.roleApis, b.redis, permission.Config{
		RefreshInterval: cfg.Cache.RefreshInterval,
		UserRoleTTL:     cfg.Cache.UserRoleTTL,
		RedisPrefix:     cfg.Cache.RedisPrefix,
		Now:             clock,
	}, log, func() { engine.metricInc(MetricRoleCacheMiss) })
	engine.revocations = revocation.New(
		b.redis,
		cfg.Cache.RedisPrefix,
		cfg.Token.TTL+cfg.Cache.RevocationMargin,
		clock,
	)
	engine.lockout = limiters.New(limiters.Config{
		MaxIncorrect:      cfg.Lockout.MaxIncorrect,
		ShortMaxIncorrect: cfg.Lockout.ShortMaxIncorrect,
		ShortDelay:        cfg.Lockout.ShortDelay,
	})
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
