package dnswire

import "testing"

func TestEncodeName(t *testing.T) {
	b, err := EncodeName("example.com")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	exp := []byte{7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0}
	if string(b) != string(exp) {
		t.Fatalf("got %v want %v", b, exp)
	}
}

func TestEncodeName_TrailingDot(t *testing.T) {
	b, err := EncodeName("example.com.")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want, _ := EncodeName("example.com")
	if string(b) != string(want) {
		t.Fatalf("trailing dot should encode identically: got %v want %v", b, want)
	}
}

func TestEncodeName_Root(t *testing.T) {
	b, err := EncodeName(".")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(b) != string([]byte{0}) {
		t.Fatalf("got %v want root label", b)
	}
}

func TestEncodeName_EmptyLabelRejected(t *testing.T) {
	if _, err := EncodeName("foo..com"); err == nil {
		t.Fatal("expected error for empty label")
	}
}

func TestEncodeName_LabelTooLong(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := EncodeName(string(long) + ".com"); err == nil {
		t.Fatal("expected error for label over 63 bytes")
	}
}

func TestEncodeName_NonASCIILabelRoundTrips(t *testing.T) {
	// Label bytes are opaque, not text: a high-bit byte must encode and
	// decode unchanged rather than being rejected as non-ASCII.
	domain := "b\xffd.com"
	b, err := EncodeName(domain)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	off := 0
	n, err := DecodeName(b, &off)
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if n != domain {
		t.Fatalf("got %q want %q", n, domain)
	}
}

func TestDecodeName_Uncompressed(t *testing.T) {
	msg := []byte{3, 'w', 'w', 'w', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0}
	off := 0
	n, err := DecodeName(msg, &off)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != "www.example.com" {
		t.Fatalf("got %q", n)
	}
	if off != len(msg) {
		t.Fatalf("off=%d", off)
	}
}

func TestDecodeName_Compressed(t *testing.T) {
	// "example.com" at offset 0, then a pointer to it at offset 13.
	msg := []byte{7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0, 0xC0, 0x00}
	off := 13
	n, err := DecodeName(msg, &off)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != "example.com" {
		t.Fatalf("got %q", n)
	}
	if off != 15 {
		t.Fatalf("off=%d, want 15 (pointer bytes only)", off)
	}
}

func TestDecodeName_CompressionLoopRejected(t *testing.T) {
	// A pointer at offset 0 pointing at itself.
	msg := []byte{0xC0, 0x00}
	off := 0
	if _, err := DecodeName(msg, &off); err == nil {
		t.Fatal("expected error for self-referencing compression pointer")
	}
}

func TestDecodeName_PointerOutOfBounds(t *testing.T) {
	msg := []byte{0xC0, 0xFF}
	off := 0
	if _, err := DecodeName(msg, &off); err == nil {
		t.Fatal("expected error for out-of-bounds compression pointer")
	}
}

func TestEncodeNameAt_MatchesQuestion(t *testing.T) {
	b, err := EncodeNameAt("example.com", "example.com")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := []byte{0xC0, HeaderSize}
	if string(b) != string(want) {
		t.Fatalf("got %v want %v", b, want)
	}
}

func TestEncodeNameAt_DoesNotMatchQuestion(t *testing.T) {
	b, err := EncodeNameAt("other.com", "example.com")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(b) > 0 && b[0] == 0xC0 {
		t.Fatal("should not compress a name that differs from the question")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Example.COM.": "example.com",
		"example.com":  "example.com",
		"":             "",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
