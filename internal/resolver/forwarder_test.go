package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/duskresolve/duskresolve/internal/dnswire"
)

// startFakeUpstream runs a UDP server on an ephemeral port that replies
// with reply to every datagram it receives, until the test ends.
func startFakeUpstream(t *testing.T, reply []byte) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 512)
		for {
			n, peer, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			_ = n
			_, _ = conn.WriteToUDP(reply, peer)
		}
	}()
	return conn.LocalAddr().String()
}

func TestForwarder_ForwardSuccess(t *testing.T) {
	want := []byte{1, 2, 3, 4}
	addr := startFakeUpstream(t, want)

	f := &Forwarder{Upstreams: []string{addr}}
	resp, ok := f.Forward(context.Background(), []byte{0xAA})
	if !ok {
		t.Fatal("expected success")
	}
	if string(resp) != string(want) {
		t.Errorf("got %v, want %v", resp, want)
	}
}

func TestForwarder_FailsOverToNextUpstream(t *testing.T) {
	want := []byte{9, 9, 9}
	goodAddr := startFakeUpstream(t, want)

	// A closed listener address: nothing is bound there, so the dial or
	// read will fail and Forward should try the next upstream.
	deadConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadAddr := deadConn.LocalAddr().String()
	deadConn.Close()

	f := &Forwarder{Upstreams: []string{deadAddr, goodAddr}}
	resp, ok := f.Forward(context.Background(), []byte{0xAA})
	if !ok {
		t.Fatal("expected success via second upstream")
	}
	if string(resp) != string(want) {
		t.Errorf("got %v, want %v", resp, want)
	}
}

func TestForwarder_AllUpstreamsFail(t *testing.T) {
	deadConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadAddr := deadConn.LocalAddr().String()
	deadConn.Close()

	f := &Forwarder{Upstreams: []string{deadAddr}}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, ok := f.Forward(ctx, []byte{0xAA}); ok {
		t.Fatal("expected failure when no upstream responds")
	}
}

func TestResolver_ForwardsAndPatchesTransactionID(t *testing.T) {
	req := dnswire.Packet{
		Header:    dnswire.Header{ID: 0xBEEF, Flags: dnswire.RDFlag, QDCount: 1},
		Questions: []dnswire.Question{{Name: "example.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
	}
	reqBytes, err := req.Marshal()
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	upstreamResp := dnswire.BuildResponse(req, []dnswire.Record{
		{Name: "example.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN), TTL: 60, Data: []byte{1, 2, 3, 4}},
	}, dnswire.RCodeNoError)
	upstreamResp.Header.ID = 0x0000 // upstream assigns its own transaction ID
	upstreamWire, err := upstreamResp.Marshal()
	if err != nil {
		t.Fatalf("marshal upstream response: %v", err)
	}

	addr := startFakeUpstream(t, upstreamWire)

	r := &Resolver{Forwarder: &Forwarder{Upstreams: []string{addr}}}
	result, err := r.Resolve(context.Background(), req, reqBytes)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Source != "upstream" {
		t.Errorf("source = %q, want upstream", result.Source)
	}
	if result.AnswerCount != 1 {
		t.Errorf("AnswerCount = %d, want 1", result.AnswerCount)
	}
	if len(result.ResponseBytes) < 2 {
		t.Fatal("response too short")
	}
	gotID := uint16(result.ResponseBytes[0])<<8 | uint16(result.ResponseBytes[1])
	if gotID != 0xBEEF {
		t.Errorf("transaction ID = %x, want BEEF (client's original ID)", gotID)
	}
}

func TestResolver_NoCandidatesNoForwarderReturnsNXDomain(t *testing.T) {
	req := dnswire.Packet{
		Header:    dnswire.Header{ID: 1, Flags: dnswire.RDFlag, QDCount: 1},
		Questions: []dnswire.Question{{Name: "nowhere.test", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
	}
	reqBytes, _ := req.Marshal()

	r := &Resolver{}
	result, err := r.Resolve(context.Background(), req, reqBytes)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Source != "nxdomain" {
		t.Errorf("source = %q, want nxdomain", result.Source)
	}
	parsed, err := dnswire.ParsePacket(result.ResponseBytes)
	if err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if dnswire.RCodeFromFlags(parsed.Header.Flags) != dnswire.RCodeNXDomain {
		t.Errorf("rcode = %d, want NXDOMAIN", dnswire.RCodeFromFlags(parsed.Header.Flags))
	}
}
