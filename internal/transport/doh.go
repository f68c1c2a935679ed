package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/duskresolve/duskresolve/internal/dnswire"
)

// DoHServer answers DNS queries over HTTPS at /dns-query, accepting the
// binary wire format (GET ?dns=<base64url>, or POST with
// Content-Type: application/dns-message) per RFC 8484, and a simplified
// JSON form (Content-Type: application/dns-json) alongside it.
//
// Grounded on other_examples' cloudDNS server.go handleDoH for the wire
// variant's request shape; the JSON variant has no example repo in the
// pack to ground on, so it is built directly against net/http +
// encoding/json (noted in DESIGN.md as the one stdlib-only surface in
// this package).
type DoHServer struct {
	Handler  *QueryHandler
	CertFile string
	KeyFile  string

	srv *http.Server
}

// dohJSONQuestion/dohJSONAnswer/dohJSONResponse mirror the de facto
// DoH-JSON schema (RFC 8427-adjacent, as used by public resolvers).
type dohJSONQuestion struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type dohJSONAnswer struct {
	Name string `json:"name"`
	Type string `json:"type"`
	TTL  uint32 `json:"TTL"`
	Data string `json:"data"`
}

type dohJSONResponse struct {
	Status   int               `json:"Status"`
	Question []dohJSONQuestion `json:"Question"`
	Answer   []dohJSONAnswer   `json:"Answer,omitempty"`
}

// Run listens on addr and serves DoH until ctx is cancelled.
func (s *DoHServer) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/dns-query", s.handle)

	s.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	if s.CertFile != "" && s.KeyFile != "" {
		s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.CertFile != "" && s.KeyFile != "" {
			err = s.srv.ListenAndServeTLS(s.CertFile, s.KeyFile)
		} else {
			err = s.srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.srv.Close()
	case err := <-errCh:
		return err
	}
}

func (s *DoHServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Accept") == "application/dns-json" || r.URL.Query().Get("name") != "" {
		s.handleJSON(w, r)
		return
	}
	s.handleWire(w, r)
}

// handleWire implements RFC 8484's binary form.
func (s *DoHServer) handleWire(w http.ResponseWriter, r *http.Request) {
	var reqBytes []byte

	switch r.Method {
	case http.MethodGet:
		raw := r.URL.Query().Get("dns")
		if raw == "" {
			http.Error(w, "missing dns parameter", http.StatusBadRequest)
			return
		}
		decoded, err := base64.RawURLEncoding.DecodeString(raw)
		if err != nil {
			http.Error(w, "invalid base64", http.StatusBadRequest)
			return
		}
		reqBytes = decoded
	case http.MethodPost:
		if r.Header.Get("Content-Type") != "application/dns-message" {
			http.Error(w, "unsupported content type", http.StatusBadRequest)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, dnswire.MaxIncomingDNSMessageSize))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		reqBytes = body
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := clientIPFromRequest(r)
	resp := s.Handler.Handle(r.Context(), "doh", clientIP, reqBytes)
	if len(resp) == 0 {
		http.Error(w, "query failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/dns-message")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

// handleJSON implements a simplified application/dns-json form: a single
// question encoded as a synthetic wire query, resolved through the same
// QueryHandler, then re-expressed as JSON.
func (s *DoHServer) handleJSON(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name parameter", http.StatusBadRequest)
		return
	}
	typeParam := r.URL.Query().Get("type")
	if typeParam == "" {
		typeParam = "A"
	}
	qtype, ok := dnswire.TypeFromName(typeParam)
	if !ok {
		http.Error(w, "unsupported type parameter", http.StatusBadRequest)
		return
	}

	query := dnswire.Packet{
		Header:    dnswire.Header{ID: 0, Flags: dnswire.RDFlag, QDCount: 1},
		Questions: []dnswire.Question{{Name: name, Type: qtype, Class: uint16(dnswire.ClassIN)}},
	}
	reqBytes, err := query.Marshal()
	if err != nil {
		http.Error(w, "failed to build query", http.StatusInternalServerError)
		return
	}

	clientIP := clientIPFromRequest(r)
	respBytes := s.Handler.Handle(r.Context(), "doh", clientIP, reqBytes)
	if len(respBytes) == 0 {
		http.Error(w, "query failed", http.StatusBadGateway)
		return
	}

	resp, err := dnswire.ParsePacket(respBytes)
	if err != nil {
		http.Error(w, "failed to parse response", http.StatusInternalServerError)
		return
	}

	out := dohJSONResponse{
		Status:   int(dnswire.RCodeFromFlags(resp.Header.Flags)),
		Question: []dohJSONQuestion{{Name: name, Type: dnswire.TypeName(qtype)}},
	}
	for _, rr := range resp.Answers {
		out.Answer = append(out.Answer, dohJSONAnswer{
			Name: rr.Name,
			Type: dnswire.TypeName(rr.Type),
			TTL:  rr.TTL,
			Data: rr.RDataString(),
		})
	}

	w.Header().Set("Content-Type", "application/dns-json")
	_ = json.NewEncoder(w).Encode(out)
}

func clientIPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
