// Package cache implements the answer cache described in SPEC_FULL.md
// §4.3: a Redis-backed, TTL-bounded store of upstream-resolved answers,
// keyed so that every (name, type) bucket can be replaced wholesale on
// refresh and so that stale members prune themselves lazily on read.
//
// Grounding:
//
// The key scheme and insert/read policy mirror
// original_source/backend/dns_core/redis_cache.py's generate_cache_key,
// generate_index_key, cache_record, get_cached_records, and
// delete_cached_records functions exactly: one SETEX per record keyed by
// its identity digest, one SET per (name, type) bucket listing the live
// member keys, TTL+60s safety margin on the record key, no expiry on the
// index key (pruned lazily instead).
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/duskresolve/duskresolve/internal/dnswire"
)

// safetyMargin is added on top of a record's TTL before it expires from
// Redis, so a read arriving right at the TTL boundary still finds the key
// (the resolver itself treats the record as stale at TTL, independent of
// this margin) — this is the original's ttl+60 pattern.
const safetyMargin = 60 * time.Second

// opTimeout bounds every Redis round trip. A slow or unreachable cache
// must never hold up a query for longer than this.
const opTimeout = 300 * time.Millisecond

// Entry is one cached resource record, serialized into Redis as JSON.
type Entry struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	RData      string  `json:"rdata"`
	TTL        uint32  `json:"ttl"`
	Preference *uint16 `json:"preference,omitempty"`
}

// Cache wraps a go-redis client with the key scheme and failure
// semantics SPEC_FULL.md §4.3 requires: every method tolerates a Redis
// outage by degrading to an empty result (reads) or a no-op (writes),
// logging at most once a minute so a prolonged outage doesn't flood logs.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger

	warnMu   sync.Mutex
	lastWarn time.Time
}

// New constructs a Cache around an already-configured go-redis client.
func New(rdb *redis.Client, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{rdb: rdb, logger: logger}
}

func recordKey(name, rrType, identity string) string {
	return fmt.Sprintf("dns:cache:%s:%s:%s", dnswire.NormalizeName(name), rrType, identity)
}

func indexKey(name, rrType string) string {
	return fmt.Sprintf("dns:cache:index:%s:%s", dnswire.NormalizeName(name), rrType)
}

func indexScanPattern(name string) string {
	return fmt.Sprintf("dns:cache:index:%s:*", dnswire.NormalizeName(name))
}

// Lookup returns the live cached records for (name, rrType). A Redis error
// or a completely empty cache both return (nil, nil) — callers can't and
// shouldn't distinguish "cache miss" from "cache unavailable".
func (c *Cache) Lookup(ctx context.Context, name, rrType string) []Entry {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	members, err := c.rdb.SMembers(ctx, indexKey(name, rrType)).Result()
	if err != nil {
		c.warnOnce(err, "cache lookup")
		return nil
	}
	return c.fetchMembers(ctx, indexKey(name, rrType), members)
}

// LookupAny unions every type bucket cached for name, for ANY queries.
// Grounded on the original's get_cached_records_any SCAN-based union.
func (c *Cache) LookupAny(ctx context.Context, name string) []Entry {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var out []Entry
	iter := c.rdb.Scan(ctx, 0, indexScanPattern(name), 100).Iterator()
	for iter.Next(ctx) {
		idxKey := iter.Val()
		members, err := c.rdb.SMembers(ctx, idxKey).Result()
		if err != nil {
			continue
		}
		out = append(out, c.fetchMembers(ctx, idxKey, members)...)
	}
	if err := iter.Err(); err != nil {
		c.warnOnce(err, "cache lookup any")
	}
	return out
}

func (c *Cache) fetchMembers(ctx context.Context, idxKey string, members []string) []Entry {
	out := make([]Entry, 0, len(members))
	for _, key := range members {
		raw, err := c.rdb.Get(ctx, key).Result()
		if err != nil {
			// Lazy pruning: the record key expired but the index entry
			// referencing it didn't (it never expires on its own).
			c.rdb.Del(ctx, key)
			c.rdb.SRem(ctx, idxKey, key)
			continue
		}
		entry, err := decodeEntry(raw)
		if err != nil {
			c.rdb.Del(ctx, key)
			c.rdb.SRem(ctx, idxKey, key)
			continue
		}
		out = append(out, entry)
	}
	return out
}

// ReplaceBucket wholesale-replaces the (name, rrType) bucket with entries:
// every existing member key and the index itself are deleted first, then
// each new entry is written under its identity key and added to a fresh
// index set. This is the original's delete_cached_records followed by
// cache_record-per-answer, exactly as cache_upstream_response drives it.
func (c *Cache) ReplaceBucket(ctx context.Context, name, rrType string, entries []Entry) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	idxKey := indexKey(name, rrType)
	if members, err := c.rdb.SMembers(ctx, idxKey).Result(); err == nil && len(members) > 0 {
		c.rdb.Del(ctx, members...)
	}
	c.rdb.Del(ctx, idxKey)

	if len(entries) == 0 {
		return
	}

	pipe := c.rdb.Pipeline()
	for _, e := range entries {
		identity := identityOf(e)
		key := recordKey(name, rrType, identity)
		payload, err := encodeEntry(e)
		if err != nil {
			continue
		}
		pipe.Set(ctx, key, payload, e.ttlWithMargin())
		pipe.SAdd(ctx, idxKey, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.warnOnce(err, "cache bucket replace")
	}
}

func (e Entry) ttlWithMargin() time.Duration {
	return time.Duration(e.TTL)*time.Second + safetyMargin
}

func identityOf(e Entry) string {
	rr := dnswire.Record{Name: e.Name, TTL: e.TTL, Data: e.RData}
	if t, ok := dnswire.TypeFromName(strings.ToUpper(e.Type)); ok {
		rr.Type = t
	}
	if e.Preference != nil {
		rr.Data = dnswire.MXData{Preference: *e.Preference, Exchange: e.RData}
	}
	return rr.Identity()
}

// warnOnce logs a cache-failure warning at most once per minute, so a
// sustained Redis outage produces one line of noise rather than one per
// query.
func (c *Cache) warnOnce(err error, op string) {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	if time.Since(c.lastWarn) < time.Minute {
		return
	}
	c.lastWarn = time.Now()
	c.logger.Warn("answer cache degraded", "op", op, "error", err)
}
