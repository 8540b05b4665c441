package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrUnavailable indicates the system of record could not be read.
var ErrUnavailable = errors.New("permission data unavailable")

// Config holds cache timing parameters.
type Config struct {
	// RefreshInterval is the bulk snapshot rebuild period.
	RefreshInterval time.Duration
	// UserRoleTTL is the per-user role cache entry lifetime.
	UserRoleTTL time.Duration
	// RedisPrefix namespaces the per-user role keys.
	RedisPrefix string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Cache owns the permission snapshot lifecycle (Start, Refresh, Stop) and
// the lazy per-user role cache. All methods are safe for concurrent use;
// snapshot readers are lock-free.
type Cache struct {
	store  Store
	redis  redis.UniversalClient
	cfg    Config
	log    zerolog.Logger
	miss   func()

	snapshot atomic.Pointer[Snapshot]
	version  atomic.Uint64

	running  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewCache creates a cache around the given system of record. The redis
// client backs only the per-user role entries; the bulk snapshot is held in
// process memory. onUserMiss, when non-nil, is invoked on every per-user
// cache miss (metrics hook).
func NewCache(store Store, client redis.UniversalClient, cfg Config, log zerolog.Logger, onUserMiss func()) *Cache {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "eauth"
	}
	return &Cache{
		store: store,
		redis: client,
		cfg:   cfg,
		log:   log,
		miss:  onUserMiss,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start performs one eager synchronous refresh — the bulk snapshot must be
// populated before any traffic is served — and then launches the periodic
// refresh task. It must be called at most once.
func (c *Cache) Start(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}

	c.running.Store(true)
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				refreshCtx, cancel := context.WithTimeout(context.Background(), c.cfg.RefreshInterval/2)
				if err := c.Refresh(refreshCtx); err != nil {
					// Keep serving the previous snapshot; staleness is
					// bounded by the next successful refresh.
					c.log.Error().Err(err).Msg("[cache] periodic permission refresh failed")
				}
				cancel()
			case <-c.stop:
				return
			}
		}
	}()
	return nil
}

// Stop terminates the periodic refresh task and waits for it to exit.
// Readers may keep using the last published snapshot. Stop is a no-op if
// the refresh task never launched.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.running.Load() {
		<-c.done
	}
}

// Refresh reloads all Api and role→api rows and atomically swaps in a new
// snapshot. Concurrent readers keep the previous snapshot until the swap.
func (c *Cache) Refresh(ctx context.Context) error {
	apis, err := c.store.AllApis(ctx)
	if err != nil {
		return fmt.Errorf("%w: load apis: %v", ErrUnavailable, err)
	}
	roles, err := c.store.AllRoles(ctx)
	if err != nil {
		return fmt.Errorf("%w: load roles: %v", ErrUnavailable, err)
	}

	snap := &Snapshot{
		version:     c.version.Add(1),
		builtAt:     c.cfg.Now(),
		apiByID:     make(map[int64]Api, len(apis)),
		matcherByID: make(map[int64]*Matcher, len(apis)),
		apisOfRole:  make(map[int64][]int64, len(roles)),
	}

	for _, api := range apis {
		matcher, err := CompileTemplate(api.URL)
		if err != nil {
			// An uncompilable template can never grant anything; skip it
			// rather than failing the whole refresh.
			c.log.Warn().Err(err).Int64("api_id", api.ID).Str("url", api.URL).
				Msg("[cache] skipping api with invalid url template")
			continue
		}
		snap.apiByID[api.ID] = api
		snap.matcherByID[api.ID] = matcher
	}

	for _, role := range roles {
		apiIDs, err := c.store.ApisOfRole(ctx, role.ID)
		if err != nil {
			return fmt.Errorf("%w: load apis of role %d: %v", ErrUnavailable, role.ID, err)
		}
		snap.apisOfRole[role.ID] = apiIDs
	}

	c.snapshot.Store(snap)
	c.log.Debug().Uint64("version", snap.version).Int("apis", len(snap.apiByID)).
		Int("roles", len(snap.apisOfRole)).Msg("[cache] permission snapshot published")
	return nil
}

// Snapshot returns the currently published snapshot. It may be nil before
// Start; callers must treat nil as empty (deny).
func (c *Cache) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

func (c *Cache) userKey(uid int64) string {
	return c.cfg.RedisPrefix + ":user_roles:" + strconv.FormatInt(uid, 10)
}

// RolesOf returns the role-id set of a user. Entries are cached per user in
// redis with their own TTL; a miss triggers exactly one synchronous
// read-through from the system of record. A redis failure is logged and
// treated as a miss — the store read is still the single authority, and its
// failure is the caller's deny signal.
func (c *Cache) RolesOf(ctx context.Context, uid int64) ([]int64, error) {
	val, err := c.redis.Get(ctx, c.userKey(uid)).Result()
	if err == nil {
		var roleIDs []int64
		if jsonErr := json.Unmarshal([]byte(val), &roleIDs); jsonErr == nil {
			return roleIDs, nil
		}
		c.log.Warn().Int64("uid", uid).Msg("[cache] corrupt user role entry, rereading")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Int64("uid", uid).Msg("[cache] user role cache unavailable")
	}

	if c.miss != nil {
		c.miss()
	}

	roleIDs, err := c.store.RolesOfUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: load roles of user %d: %v", ErrUnavailable, uid, err)
	}

	if encoded, err := json.Marshal(roleIDs); err == nil {
		// Best effort: a failed cache write only costs the next request a
		// read-through.
		if err := c.redis.Set(ctx, c.userKey(uid), encoded, c.cfg.UserRoleTTL).Err(); err != nil {
			c.log.Warn().Err(err).Int64("uid", uid).Msg("[cache] user role cache write failed")
		}
	}
	return roleIDs, nil
}

// InvalidateUser drops a user's cached role set so the next check rereads
// the system of record.
func (c *Cache) InvalidateUser(ctx context.Context, uid int64) error {
	if err := c.redis.Del(ctx, c.userKey(uid)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
