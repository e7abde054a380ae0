package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Arunava9732/Arunava45-sub000/internal"
	"github.com/Arunava9732/Arunava45-sub000/session"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix    = "sf"
	defaultRetention = 24 * time.Hour
	scanBatch        = 256
)

const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[3], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
  if redis.call("GET", KEYS[2]) == ARGV[1] then
    redis.call("DEL", KEYS[2])
  end
end
return existed
`

// updateSessionScript rewrites a record only while it still exists, so an
// update racing a Delete cannot bring the session back.
const updateSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
if KEYS[3] ~= KEYS[2] and redis.call("GET", KEYS[3]) == ARGV[2] then
  redis.call("DEL", KEYS[3])
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`

var (
	deleteSessionLua = redis.NewScript(deleteSessionScript)
	updateSessionLua = redis.NewScript(updateSessionScript)
)

// Config tunes the key layout and retention of a Store.
type Config struct {
	// Prefix namespaces every key. Defaults to "sf".
	Prefix string
	// Retention keeps a record readable for this long after ExpiresAt so
	// expiry is observed by the authentication core and the janitor rather
	// than by key eviction. Defaults to 24h.
	Retention time.Duration
	Clock     clockwork.Clock
}

// Store keeps session records in Redis.
//
// Layout:
//
//	<prefix>:s:<id>            JSON record
//	<prefix>:t:<sha256(token)> session id
//	<prefix>:u:<userID>        set of session ids
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	clock     clockwork.Clock
}

func New(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Store{
		redis:     client,
		prefix:    cfg.Prefix,
		retention: cfg.Retention,
		clock:     cfg.Clock,
	}
}

func (s *Store) key(id string) string {
	return s.prefix + ":s:" + id
}

func (s *Store) tokenKey(token string) string {
	return s.prefix + ":t:" + internal.TokenDigest(token)
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func (s *Store) ttlFor(rec *session.Record) time.Duration {
	ttl := rec.ExpiresAt.Sub(s.clock.Now()) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
}

func (s *Store) FindOne(ctx context.Context, q session.Query) (*session.Record, error) {
	id, err := s.redis.Get(ctx, s.tokenKey(q.Token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, unavailable(err)
	}

	rec, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Token != q.Token || (q.UserID != "" && rec.UserID != q.UserID) {
		return nil, session.ErrNotFound
	}
	return rec, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*session.Record, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return decode(data)
}

func (s *Store) Create(ctx context.Context, rec session.Record) (*session.Record, error) {
	if rec.ID == "" {
		id, err := internal.NewSessionIDString()
		if err != nil {
			return nil, err
		}
		rec.ID = id
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	ttl := s.ttlFor(&rec)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.ID), data, ttl)
		pipe.Set(ctx, s.tokenKey(rec.Token), rec.ID, ttl)
		pipe.SAdd(ctx, s.userKey(rec.UserID), rec.ID)
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return &rec, nil
}

// Update applies patch with read-modify-write. The write is skipped, and
// ErrNotFound returned, when the record was deleted after the read.
// Concurrent updates of the same record resolve last-write-wins.
func (s *Store) Update(ctx context.Context, id string, patch session.Patch) (*session.Record, error) {
	rec, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldToken := rec.Token
	patch.Apply(rec)

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	keys := []string{s.key(id), s.tokenKey(rec.Token), s.tokenKey(oldToken)}
	ttl := s.ttlFor(rec).Milliseconds()
	written, err := updateSessionLua.Run(ctx, s.redis, keys, data, id, ttl).Int()
	if err != nil {
		return nil, unavailable(err)
	}
	if written == 0 {
		return nil, session.ErrNotFound
	}
	return rec, nil
}

// Delete removes the record and its indexes. Deleting a missing record is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	rec, err := s.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return err
	}

	keys := []string{s.key(id), s.tokenKey(rec.Token), s.userKey(rec.UserID)}
	if err := deleteSessionLua.Run(ctx, s.redis, keys, id).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return unavailable(err)
	}
	return nil
}

// FindAll walks the session keyspace with SCAN.
func (s *Store) FindAll(ctx context.Context) ([]session.Record, error) {
	var (
		out    []session.Record
		cursor uint64
		match  = s.prefix + ":s:*"
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, unavailable(err)
		}
		if len(keys) > 0 {
			recs, err := s.load(ctx, keys)
			if err != nil {
				return nil, err
			}
			out = append(out, recs...)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindByUser reads the user's index set. Ids whose record has vanished are
// pruned from the set.
func (s *Store) FindByUser(ctx context.Context, userID string) ([]session.Record, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}

	vals, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]session.Record, 0, len(ids))
	var stale []interface{}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		rec, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, s.userKey(userID), stale...).Err(); err != nil {
			return nil, unavailable(err)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Ping reports round-trip latency to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := s.clock.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, unavailable(err)
	}
	return s.clock.Since(start), nil
}

func (s *Store) load(ctx context.Context, keys []string) ([]session.Record, error) {
	vals, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]session.Record, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// expired between SCAN and MGET
			continue
		}
		rec, err := decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", strings.TrimPrefix(keys[i], s.prefix+":s:"), err)
		}
		out = append(out, *rec)
	}
	return out, nil
}

func decode(data []byte) (*session.Record, error) {
	var rec session.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt record: %v", session.ErrUnavailable, err)
	}
	return &rec, nil
}
