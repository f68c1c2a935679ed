package dnswire

import "testing"

func TestRecord_MXRoundTrip(t *testing.T) {
	rr := Record{Name: "example.com", Type: uint16(TypeMX), Class: uint16(ClassIN), TTL: 3600,
		Data: MXData{Preference: 10, Exchange: "mail.example.com"}}

	b, err := rr.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	off := 0
	parsed, err := ParseRecord(b, &off)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	mx, ok := parsed.Data.(MXData)
	if !ok {
		t.Fatalf("parsed data type = %T, want MXData", parsed.Data)
	}
	if mx.Preference != 10 || mx.Exchange != "mail.example.com" {
		t.Errorf("got %+v", mx)
	}
}

func TestRecord_CNAMERoundTrip(t *testing.T) {
	rr := Record{Name: "www.example.com", Type: uint16(TypeCNAME), Class: uint16(ClassIN), TTL: 60,
		Data: "example.com"}

	b, err := rr.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	off := 0
	parsed, err := ParseRecord(b, &off)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Data.(string) != "example.com" {
		t.Errorf("got %v", parsed.Data)
	}
}

func TestRecord_TXTChunking(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	rr := Record{Name: "example.com", Type: uint16(TypeTXT), Class: uint16(ClassIN), TTL: 60, Data: string(long)}

	b, err := rr.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	off := 0
	parsed, err := ParseRecord(b, &off)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// TXT chunks >255 bytes decode back into a default []byte for an
	// unknown-to-ParseRecord rdata layout; RDataString must still render it.
	if parsed.RDataString() == "" {
		t.Error("expected non-empty rdata string for chunked TXT")
	}
}

func TestRecord_Identity_SameAnswerSameIdentity(t *testing.T) {
	a := aRecord("example.com", [4]byte{1, 2, 3, 4})
	b := aRecord("EXAMPLE.COM.", [4]byte{1, 2, 3, 4})
	if a.Identity() != b.Identity() {
		t.Errorf("identities differ for equivalent records: %s vs %s", a.Identity(), b.Identity())
	}
}

func TestRecord_Identity_DifferentDataDifferentIdentity(t *testing.T) {
	a := aRecord("example.com", [4]byte{1, 2, 3, 4})
	b := aRecord("example.com", [4]byte{5, 6, 7, 8})
	if a.Identity() == b.Identity() {
		t.Error("identities should differ for different rdata")
	}
}

func TestRecord_Identity_MXPreferenceAffectsIdentity(t *testing.T) {
	a := Record{Name: "example.com", Type: uint16(TypeMX), Data: MXData{Preference: 10, Exchange: "mail.example.com"}}
	b := Record{Name: "example.com", Type: uint16(TypeMX), Data: MXData{Preference: 20, Exchange: "mail.example.com"}}
	if a.Identity() == b.Identity() {
		t.Error("identities should differ when MX preference differs")
	}
}

func TestRecord_IPv4(t *testing.T) {
	rr := aRecord("example.com", [4]byte{93, 184, 216, 34})
	ip, ok := rr.IPv4()
	if !ok || ip != "93.184.216.34" {
		t.Errorf("got %q, ok=%v", ip, ok)
	}
}

func TestRecord_MarshalRejectsWrongDataType(t *testing.T) {
	rr := Record{Name: "example.com", Type: uint16(TypeA), Data: "not-bytes"}
	if _, err := rr.Marshal(); err == nil {
		t.Fatal("expected error marshaling A record with string data")
	}
}
