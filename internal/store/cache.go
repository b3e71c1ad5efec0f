package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/region"
)

// DefaultSnapshotKey is the redis key holding the cached assignment set.
const DefaultSnapshotKey = "territory:assignments:snapshot"

// genField marks a complete snapshot hash and records the write
// generation it was loaded under.
const genField = "_gen"

var errStaleSnapshot = errors.New("cache: snapshot superseded by a write")

// CachedStore decorates a Store with a redis copy of the full assignment
// set, held as a hash with one field per assignment. Every write through
// the decorator bumps a generation counter and deletes the hash. A
// snapshot is only stored when the generation has not moved since the
// inner read began, so a slow reader never caches a pre-write set.
// Redis failures degrade to the inner store.
type CachedStore struct {
	Store
	client *redis.Client
	key    string
	ttl    time.Duration
}

// CacheOption configures a CachedStore.
type CacheOption func(*CachedStore)

// WithSnapshotKey overrides DefaultSnapshotKey.
func WithSnapshotKey(key string) CacheOption {
	return func(c *CachedStore) { c.key = key }
}

// WithTTL sets how long a cached snapshot lives. Zero means no expiry.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedStore) { c.ttl = ttl }
}

// NewCached wraps inner with a redis snapshot cache.
func NewCached(inner Store, client *redis.Client, opts ...CacheOption) *CachedStore {
	c := &CachedStore{
		Store:  inner,
		client: client,
		key:    DefaultSnapshotKey,
		ttl:    5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return client, nil
}

func (c *CachedStore) GetAll(ctx context.Context) ([]region.Assignment, error) {
	if cached, ok := c.load(ctx); ok {
		return cached, nil
	}
	return c.fill(ctx)
}

// Get reads a single field of the cached hash. A missing snapshot is
// filled from the inner store first.
func (c *CachedStore) Get(ctx context.Context, t region.Type, code string) (*region.Assignment, error) {
	key := region.Key{Type: t, Code: code}
	vals, err := c.client.HMGet(ctx, c.key, genField, key.String()).Result()
	if err != nil {
		zap.L().Warn("cache: read assignment", zap.String("key", c.key), zap.Error(err))
		return c.Store.Get(ctx, t, code)
	}
	if vals[0] == nil {
		all, err := c.fill(ctx)
		if err != nil {
			return nil, err
		}
		return region.NewSnapshot(all).Get(ctx, t, code)
	}
	raw, ok := vals[1].(string)
	if !ok {
		return nil, nil
	}
	var a region.Assignment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		zap.L().Warn("cache: decode assignment", zap.String("key", c.key), zap.Stringer("assignment", key), zap.Error(err))
		return c.Store.Get(ctx, t, code)
	}
	return &a, nil
}

func (c *CachedStore) Upsert(ctx context.Context, a region.Assignment) error {
	if err := c.Store.Upsert(ctx, a); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, t region.Type, code string) error {
	if err := c.Store.Delete(ctx, t, code); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// UpsertMany forwards to the inner store's bulk path when it has one.
func (c *CachedStore) UpsertMany(ctx context.Context, assignments []region.Assignment) (int64, error) {
	n, err := UpsertAll(ctx, c.Store, assignments)
	if n > 0 {
		c.Invalidate(ctx)
	}
	return n, err
}

// Invalidate bumps the write generation and drops the cached snapshot.
// A failed invalidation is logged; the snapshot then lives until its TTL.
func (c *CachedStore) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, c.genKey())
		p.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		zap.L().Error("cache: invalidate snapshot", zap.String("key", c.key), zap.Error(err))
	}
}

// Ping checks redis and, when supported, the inner store.
func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return eris.Wrap(err, "redis: ping")
	}
	if p, ok := c.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the inner store. The redis client is owned by the caller.
func (c *CachedStore) Close() error {
	return c.Store.Close()
}

func (c *CachedStore) genKey() string { return c.key + ":gen" }

// generation reads the current write generation. ok is false when redis
// cannot be read, in which case nothing should be cached.
func (c *CachedStore) generation(ctx context.Context) (int64, bool) {
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		zap.L().Warn("cache: read generation", zap.String("key", c.genKey()), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// fill reads the inner store and caches the result under the generation
// seen before the read.
func (c *CachedStore) fill(ctx context.Context) ([]region.Assignment, error) {
	gen, ok := c.generation(ctx)
	all, err := c.Store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		c.save(ctx, gen, all)
	}
	return all, nil
}

func (c *CachedStore) load(ctx context.Context) ([]region.Assignment, bool) {
	fields, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		zap.L().Warn("cache: read snapshot", zap.String("key", c.key), zap.Error(err))
		return nil, false
	}
	if _, ok := fields[genField]; !ok {
		return nil, false
	}
	out := make([]region.Assignment, 0, len(fields)-1)
	for name, raw := range fields {
		if name == genField {
			continue
		}
		var a region.Assignment
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			zap.L().Warn("cache: decode snapshot", zap.String("key", c.key), zap.String("field", name), zap.Error(err))
			return nil, false
		}
		out = append(out, a)
	}
	region.Sort(out)
	return out, true
}

// save stores all as the snapshot for gen. It gives up when a write has
// bumped the generation since gen was read.
func (c *CachedStore) save(ctx context.Context, gen int64, all []region.Assignment) {
	values := make([]any, 0, 2*len(all)+2)
	values = append(values, genField, strconv.FormatInt(gen, 10))
	for _, a := range all {
		data, err := json.Marshal(a)
		if err != nil {
			zap.L().Warn("cache: encode snapshot", zap.Stringer("assignment", a.Key()), zap.Error(err))
			return
		}
		values = append(values, a.Key().String(), data)
	}

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, c.genKey()).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, c.key)
			p.HSet(ctx, c.key, values...)
			if c.ttl > 0 {
				p.Expire(ctx, c.key, c.ttl)
			}
			return nil
		})
		return err
	}, c.genKey())

	switch {
	case err == nil:
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		zap.L().Debug("cache: skip stale snapshot", zap.String("key", c.key), zap.Int64("generation", gen))
	default:
		zap.L().Warn("cache: write snapshot", zap.String("key", c.key), zap.Error(err))
	}
}
