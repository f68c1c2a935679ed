package resolver

import (
	"context"
	"net"
	"time"
)

// upstreamTimeout bounds a single upstream query attempt. SPEC_FULL.md
// §4.5 fixes this at 2 seconds, matching
// original_source/backend/dns_core/resolver.py's forward_to_upstream
// socket timeout.
const upstreamTimeout = 2 * time.Second

// upstreamReadSize is the maximum response size read from an upstream
// UDP socket, matching the original's 512-byte recv buffer (classic DNS
// UDP message size, no EDNS(0) buffer advertisement).
const upstreamReadSize = 512

// Forwarder queries a fixed, ordered list of upstream resolvers,
// returning the first response that succeeds and giving up only once
// every upstream has failed. It never wraps or reinterprets the query or
// response bytes: both travel the wire opaquely.
type Forwarder struct {
	Upstreams []string // "host:port" pairs, tried in order
}

// Forward sends queryBytes to each upstream in order, returning the first
// successful response. ok is false only once every upstream has failed
// (dial, write, read, or timeout error) — that failure is never surfaced
// as a Go error so it can't propagate past the resolver (SPEC_FULL.md §4.5).
func (f *Forwarder) Forward(ctx context.Context, queryBytes []byte) (resp []byte, ok bool) {
	for _, upstream := range f.Upstreams {
		b, success := f.queryOne(ctx, upstream, queryBytes)
		if success {
			return b, true
		}
	}
	return nil, false
}

func (f *Forwarder) queryOne(ctx context.Context, upstream string, queryBytes []byte) ([]byte, bool) {
	d := net.Dialer{Timeout: upstreamTimeout}
	conn, err := d.DialContext(ctx, "udp", upstream)
	if err != nil {
		return nil, false
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(upstreamTimeout)); err != nil {
		return nil, false
	}
	if _, err := conn.Write(queryBytes); err != nil {
		return nil, false
	}

	buf := make([]byte, upstreamReadSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, false
	}
	return buf[:n], true
}
