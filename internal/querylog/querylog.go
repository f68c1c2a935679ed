// Package querylog emits one structured log line per resolved DNS query.
//
// Grounded on original_source/backend/dns_core/logger.py's log_dns_query:
// the same field set (domain, record type, source, status, answer count,
// cache status, client IP) re-expressed as a single slog.Logger record
// instead of a formatted string line, using the teacher's internal/logging
// slog setup rather than Python's stdlib logging handlers.
package querylog

import (
	"context"
	"log/slog"
	"time"
)

// Event describes one resolved (or failed) DNS query.
type Event struct {
	Domain      string
	QType       string
	Transport   string // "udp", "tcp", or "doh"
	Source      string // "manual", "cache", "upstream", or "nxdomain"
	Outcome     string // "success" or "error"
	AnswerCount int
	ClientIP    string
}

// Sink writes Events as structured log records.
type Sink struct {
	logger *slog.Logger
}

// New wraps logger (falling back to slog.Default if nil) as a query log
// sink.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

// Log emits one line for ev. Safe for concurrent use: slog.Logger
// serializes a full record per call, so interleaved queries never produce
// a torn line.
func (s *Sink) Log(ctx context.Context, ev Event) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "dns query",
		slog.Time("ts", time.Now()),
		slog.String("domain", ev.Domain),
		slog.String("qtype", ev.QType),
		slog.String("transport", ev.Transport),
		slog.String("source", ev.Source),
		slog.String("outcome", ev.Outcome),
		slog.Int("answers", ev.AnswerCount),
		slog.String("client_ip", ev.ClientIP),
	)
}
