// Package resolver implements the three-tier lookup order described in
// SPEC_FULL.md §4.4: answer cache, then the manual record store, unioned
// with manual taking precedence on a duplicate identity; if both are
// empty, forward upstream and cache the result on success.
//
// Grounding:
//
// The lookup order, MX preference/exchange splitting, and ANY-query union
// semantics are taken directly from
// original_source/backend/dns_core/resolver.py's resolve_dns. Unlike the
// Python original — which never de-duplicates cache and manual answers —
// this resolver de-duplicates by Record.Identity() in favor of the
// manual record, per SPEC_FULL.md's explicit precedence invariant.
package resolver

import (
	"context"
	"log/slog"

	"github.com/duskresolve/duskresolve/internal/cache"
	"github.com/duskresolve/duskresolve/internal/dnswire"
	"github.com/duskresolve/duskresolve/internal/store"
)

// Result holds the outcome of a DNS resolution.
type Result struct {
	ResponseBytes []byte
	Source        string // "manual", "cache", "upstream", or "nxdomain"
	AnswerCount   int
}

// Resolver answers DNS queries by combining the manual record store, the
// answer cache, and an upstream forwarder.
type Resolver struct {
	Store     *store.Store
	Cache     *cache.Cache
	Forwarder *Forwarder
	Logger    *slog.Logger
}

// Resolve processes a single parsed query (with its original wire bytes,
// needed to forward upstream byte-for-byte) and returns a wire-format
// response.
func (r *Resolver) Resolve(ctx context.Context, req dnswire.Packet, reqBytes []byte) (Result, error) {
	if len(req.Questions) != 1 {
		resp, err := dnswire.BuildResponse(req, nil, dnswire.RCodeFormErr).Marshal()
		return Result{ResponseBytes: resp}, err
	}
	q := req.Questions[0]

	candidates, cacheHit := r.gatherCandidates(ctx, q)
	if len(candidates) > 0 {
		resp, err := dnswire.BuildResponse(req, candidates, dnswire.RCodeNoError).Marshal()
		source := "manual"
		if cacheHit {
			source = "cache"
		}
		return Result{ResponseBytes: resp, Source: source, AnswerCount: len(candidates)}, err
	}

	if r.Forwarder != nil {
		if upstreamResp, ok := r.Forwarder.Forward(ctx, reqBytes); ok {
			r.cacheUpstreamResponse(ctx, q, upstreamResp)
			patched := PatchTransactionID(upstreamResp, req.Header.ID)
			return Result{ResponseBytes: patched, Source: "upstream", AnswerCount: answerCountOf(upstreamResp)}, nil
		}
	}

	resp, err := dnswire.BuildResponse(req, nil, dnswire.RCodeNXDomain).Marshal()
	return Result{ResponseBytes: resp, Source: "nxdomain"}, err
}

// gatherCandidates collects cache and manual answers for q, unioned and
// de-duplicated by identity with manual records winning ties. cacheHit
// reports whether any surviving answer originated from the cache, for
// query-log source tagging.
func (r *Resolver) gatherCandidates(ctx context.Context, q dnswire.Question) ([]dnswire.Record, bool) {
	isAny := dnswire.RecordType(q.Type) == dnswire.TypeANY
	typeName := dnswire.TypeName(q.Type)

	var cacheRecs []dnswire.Record
	if r.Cache != nil {
		var entries []cache.Entry
		if isAny {
			entries = r.Cache.LookupAny(ctx, q.Name)
		} else {
			entries = r.Cache.Lookup(ctx, q.Name, typeName)
		}
		cacheRecs = entriesToRecords(entries)
	}

	var manualRecs []dnswire.Record
	if r.Store != nil {
		var manual []store.ManualRecord
		var err error
		if isAny {
			manual, err = r.Store.ListByName(q.Name)
		} else {
			manual, err = r.Store.ListByNameAndType(q.Name, typeName)
		}
		if err == nil {
			manualRecs = manualToRecords(manual)
		}
	}

	return mergeCacheAndManual(cacheRecs, manualRecs)
}

// mergeCacheAndManual concatenates cacheRecs and manualRecs in that order,
// de-duplicating by Record.Identity() with manual records winning any
// collision: a cache record whose identity also appears in manualRecs is
// dropped in favor of its manual counterpart, which keeps its own position
// later in the slice rather than being promoted to the front. cacheHit
// reports whether any surviving answer came from the cache.
func mergeCacheAndManual(cacheRecs, manualRecs []dnswire.Record) ([]dnswire.Record, bool) {
	manualIdentity := make(map[string]bool, len(manualRecs))
	for _, rec := range manualRecs {
		manualIdentity[rec.Identity()] = true
	}

	seen := make(map[string]bool, len(manualRecs)+len(cacheRecs))
	out := make([]dnswire.Record, 0, len(manualRecs)+len(cacheRecs))
	cacheHit := false

	for _, rec := range cacheRecs {
		id := rec.Identity()
		if seen[id] || manualIdentity[id] {
			continue
		}
		seen[id] = true
		out = append(out, rec)
		cacheHit = true
	}
	for _, rec := range manualRecs {
		id := rec.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, rec)
	}

	return out, cacheHit
}

// answerCountOf returns the number of answer RRs in a wire-format
// response, or 0 if the message doesn't parse.
func answerCountOf(msg []byte) int {
	pkt, err := dnswire.ParsePacket(msg)
	if err != nil {
		return 0
	}
	return len(pkt.Answers)
}

func entriesToRecords(entries []cache.Entry) []dnswire.Record {
	out := make([]dnswire.Record, 0, len(entries))
	for _, e := range entries {
		t, ok := dnswire.TypeFromName(e.Type)
		if !ok {
			continue
		}
		rr, ok := buildRecord(e.Name, t, e.TTL, e.RData, e.Preference)
		if !ok {
			continue
		}
		out = append(out, rr)
	}
	return out
}

func manualToRecords(recs []store.ManualRecord) []dnswire.Record {
	out := make([]dnswire.Record, 0, len(recs))
	for _, m := range recs {
		t, ok := dnswire.TypeFromName(m.Type)
		if !ok {
			continue
		}
		rr, ok := buildRecord(m.Name, t, m.TTL, m.RData, m.Preference)
		if !ok {
			continue
		}
		out = append(out, rr)
	}
	return out
}
