package resolver

import (
	"context"

	"github.com/duskresolve/duskresolve/internal/cache"
	"github.com/duskresolve/duskresolve/internal/dnswire"
)

// cacheUpstreamResponse parses a successful upstream response and writes
// its answers into the cache, one ReplaceBucket call per distinct
// (name, type) bucket appearing in the answer section.
//
// Grounded on original_source/backend/dns_core/resolver.py's
// cache_upstream_response: the original groups answers by (name, type)
// before writing so a single upstream reply for a round-robin A record
// set replaces the whole bucket atomically rather than accumulating
// stale members across queries. A response that fails to parse is
// silently not cached — the client still got its answer; only the
// cache write is skipped.
func (r *Resolver) cacheUpstreamResponse(ctx context.Context, q dnswire.Question, upstreamResp []byte) {
	if r.Cache == nil {
		return
	}
	resp, err := dnswire.ParsePacket(upstreamResp)
	if err != nil || len(resp.Answers) == 0 {
		return
	}

	type bucketKey struct {
		name   string
		rrType string
	}
	buckets := make(map[bucketKey][]cache.Entry)
	order := make([]bucketKey, 0, len(resp.Answers))

	for _, rr := range resp.Answers {
		typeName := dnswire.TypeName(rr.Type)
		name := dnswire.NormalizeName(rr.Name)
		entry := cache.Entry{
			Name:  name,
			Type:  typeName,
			TTL:   rr.TTL,
			RData: rr.RDataString(),
		}
		if mx, ok := rr.Data.(dnswire.MXData); ok {
			pref := mx.Preference
			entry.Preference = &pref
			entry.RData = mx.Exchange
		}

		key := bucketKey{name: name, rrType: typeName}
		if _, exists := buckets[key]; !exists {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], entry)
	}

	for _, key := range order {
		r.Cache.ReplaceBucket(ctx, key.name, key.rrType, buckets[key])
	}
}
