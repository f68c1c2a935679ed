// Package dnswire implements DNS message parsing, encoding, and the
// resource-record data model used throughout duskresolve.
//
// Standards Compliance:
//
//   - RFC 1035: Domain Names - Implementation and Specification (core wire format)
//   - RFC 1034: Domain Names - Concepts and Facilities
//   - RFC 3596: DNS Extensions to Support IPv6 (AAAA records)
//   - RFC 6891: Extension Mechanisms for DNS (OPT passthrough only)
//
// Error Handling:
//
// All errors are wrapped with context using fmt.Errorf("...: %w", err) so
// callers can test against the sentinel errors below with errors.Is.
package dnswire

import "errors"

var (
	// ErrMalformed marks a wire-format violation: truncated message, bad
	// label length, compression pointer loop, oversized name, and so on.
	ErrMalformed = errors.New("dns wire: malformed message")

	// ErrRefused marks a query this resolver declines to answer, such as
	// a question class other than IN.
	ErrRefused = errors.New("dns wire: refused")
)
