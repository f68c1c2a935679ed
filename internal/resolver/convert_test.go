package resolver

import (
	"testing"

	"github.com/duskresolve/duskresolve/internal/dnswire"
)

func TestBuildRecord_A(t *testing.T) {
	rr, ok := buildRecord("example.com", uint16(dnswire.TypeA), 300, "93.184.216.34", nil)
	if !ok {
		t.Fatal("expected ok=true for valid A rdata")
	}
	ip, ok := rr.IPv4()
	if !ok || ip != "93.184.216.34" {
		t.Errorf("got %q, ok=%v", ip, ok)
	}
}

func TestBuildRecord_A_RejectsNonIPv4(t *testing.T) {
	if _, ok := buildRecord("example.com", uint16(dnswire.TypeA), 300, "not-an-ip", nil); ok {
		t.Fatal("expected ok=false for invalid A rdata")
	}
	if _, ok := buildRecord("example.com", uint16(dnswire.TypeA), 300, "::1", nil); ok {
		t.Fatal("expected ok=false for an IPv6 address in an A record")
	}
}

func TestBuildRecord_MX_RequiresPreference(t *testing.T) {
	if _, ok := buildRecord("example.com", uint16(dnswire.TypeMX), 300, "mail.example.com", nil); ok {
		t.Fatal("expected ok=false without a preference")
	}
	pref := uint16(10)
	rr, ok := buildRecord("example.com", uint16(dnswire.TypeMX), 300, "mail.example.com", &pref)
	if !ok {
		t.Fatal("expected ok=true with a preference")
	}
	mx := rr.Data.(dnswire.MXData)
	if mx.Preference != 10 || mx.Exchange != "mail.example.com" {
		t.Errorf("got %+v", mx)
	}
}

func TestBuildRecord_UnsupportedType(t *testing.T) {
	if _, ok := buildRecord("example.com", uint16(dnswire.TypeSOA), 300, "x", nil); ok {
		t.Fatal("expected ok=false for an unsupported record type")
	}
}
