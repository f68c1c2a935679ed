// Package transport implements the UDP, TCP, and DNS-over-HTTPS query
// servers, all funneling into a shared QueryHandler.
//
// Grounded on the teacher's internal/server package (query_handler.go,
// udp_server.go, tcp_server.go), simplified to this resolver's scope:
// no SO_REUSEPORT multi-socket fan-out, no per-IP connection limiter, no
// EDNS-aware truncation, no TCP query pipelining.
package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/duskresolve/duskresolve/internal/dnswire"
	"github.com/duskresolve/duskresolve/internal/querylog"
	"github.com/duskresolve/duskresolve/internal/resolver"
)

// defaultResolveTimeout bounds how long a single query may take end to
// end, matching the teacher's query_handler.go default.
const defaultResolveTimeout = 4 * time.Second

// QueryHandler parses, resolves, logs, and returns wire-format responses
// for incoming queries, independent of which transport carried them.
type QueryHandler struct {
	Logger   *slog.Logger
	Resolver *resolver.Resolver
	QueryLog *querylog.Sink
	Timeout  time.Duration
}

// Handle processes one raw query message and returns the wire-format
// response bytes to send back, or nil if no reply should be sent (a
// malformed message whose header couldn't even be recovered).
func (h *QueryHandler) Handle(ctx context.Context, transportTag, clientIP string, reqBytes []byte) []byte {
	req, err := dnswire.ParseRequestBounded(reqBytes)
	if err != nil {
		return h.handleParseError(reqBytes)
	}

	qname, qtype := questionInfo(req)

	result := h.resolveWithTimeout(ctx, req, reqBytes)

	outcome := "success"
	switch result.Source {
	case "":
		outcome = "error"
	case "nxdomain":
		outcome = "nxdomain"
	}
	if h.QueryLog != nil {
		h.QueryLog.Log(ctx, querylog.Event{
			Domain:      qname,
			QType:       qtype,
			Transport:   transportTag,
			Source:      result.Source,
			Outcome:     outcome,
			AnswerCount: result.AnswerCount,
			ClientIP:    clientIP,
		})
	}

	return result.ResponseBytes
}

func questionInfo(req dnswire.Packet) (string, string) {
	if len(req.Questions) == 0 {
		return "<no-question>", "<none>"
	}
	q := req.Questions[0]
	return q.Name, dnswire.TypeName(q.Type)
}

// resolveWithTimeout runs the resolver in its own goroutine so a
// transport-level deadline never cancels an in-flight upstream call or
// its cache write-through, matching the teacher's resolveWithTimeout
// isolation idiom.
func (h *QueryHandler) resolveWithTimeout(ctx context.Context, req dnswire.Packet, reqBytes []byte) resolver.Result {
	type outcome struct {
		res resolver.Result
		err error
	}
	resCh := make(chan outcome, 1)
	go func() {
		res, err := h.Resolver.Resolve(ctx, req, reqBytes)
		resCh <- outcome{res, err}
	}()

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return h.errorResult(req, dnswire.RCodeServFail)
	case <-timer.C:
		return h.errorResult(req, dnswire.RCodeServFail)
	case o := <-resCh:
		if o.err != nil {
			return h.errorResult(req, dnswire.RCodeServFail)
		}
		return o.res
	}
}

func (h *QueryHandler) errorResult(req dnswire.Packet, rcode dnswire.RCode) resolver.Result {
	resp, _ := dnswire.BuildResponse(req, nil, rcode).Marshal()
	return resolver.Result{ResponseBytes: resp}
}

// handleParseError attempts to salvage enough of a malformed request
// (transaction ID, question) to build a FORMERR response. Returns nil if
// even the header can't be parsed.
func (h *QueryHandler) handleParseError(reqBytes []byte) []byte {
	off := 0
	hdr, err := dnswire.ParseHeader(reqBytes, &off)
	if err != nil {
		return nil
	}

	var questions []dnswire.Question
	if hdr.QDCount > 0 {
		if q, err := dnswire.ParseQuestion(reqBytes, &off); err == nil {
			questions = []dnswire.Question{q}
		}
	}

	req := dnswire.Packet{Header: dnswire.Header{ID: hdr.ID, Flags: hdr.Flags}, Questions: questions}
	resp, _ := dnswire.BuildResponse(req, nil, dnswire.RCodeFormErr).Marshal()
	return resp
}
