package dnswire

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// questionNameOffset is where a Question's name always starts once it
// follows the fixed 12-byte header as the message's first section entry.
const questionNameOffset = HeaderSize

// NormalizeName returns a lowercase DNS name without a trailing dot, for
// case-insensitive comparisons per RFC 4343.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

// EncodeName encodes a domain name to DNS wire format (RFC 1035 Section 3.1):
// a sequence of length-prefixed labels terminated by a zero-length label.
// Labels are capped at 63 bytes and the encoded name at 255 bytes; this
// function never emits compression pointers (see EncodeNameAt for that).
func EncodeName(domain string) ([]byte, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: name must be non-empty", ErrMalformed)
	}
	domain = trimDot(domain)
	if domain == "" {
		return []byte{0}, nil
	}

	out := make([]byte, 0, len(domain)+2)
	labelStart := 0
	for i := 0; i <= len(domain); i++ {
		if i == len(domain) || domain[i] == '.' {
			if i == labelStart {
				return nil, fmt.Errorf("%w: empty label in name %q", ErrMalformed, domain)
			}
			label := domain[labelStart:i]
			if len(label) > 63 {
				return nil, fmt.Errorf("%w: label too long (%d > 63): %q", ErrMalformed, len(label), label)
			}
			out = append(out, byte(len(label)))
			out = append(out, label...)
			labelStart = i + 1
		}
	}
	out = append(out, 0)

	if len(out) > 255 {
		return nil, fmt.Errorf("%w: encoded name too long (%d > 255)", ErrMalformed, len(out))
	}
	return out, nil
}

// EncodeNameAt encodes name as a wire name, emitting a single compression
// pointer back to questionName when name equals it exactly. This is the
// one compression case this resolver produces on the encode path: an
// answer's owner name echoing the question (RFC 1035 Section 4.1.4).
func EncodeNameAt(name, questionName string) ([]byte, error) {
	if NormalizeName(name) == NormalizeName(questionName) {
		ptr := make([]byte, 2)
		binary.BigEndian.PutUint16(ptr, uint16(0xC000|questionNameOffset))
		return ptr, nil
	}
	return EncodeName(name)
}

// DecodeName decodes a possibly-compressed DNS name from wire format
// (RFC 1035 Section 4.1.4), advancing *off past the name including any
// compression pointer bytes. Returns a dot-joined name; label bytes are
// opaque and may contain non-ASCII bytes.
func DecodeName(msg []byte, off *int) (string, error) {
	name, err := decodeName(msg, off, 0, map[int]struct{}{})
	if err != nil {
		return "", err
	}
	return name, nil
}

// decodeName is the recursive implementation of DecodeName. It tracks
// recursion depth and visited offsets to reject compression loops.
func decodeName(msg []byte, off *int, depth int, visited map[int]struct{}) (string, error) {
	const maxCompressionDepth = 20

	if depth > maxCompressionDepth {
		return "", fmt.Errorf("%w: too many compression indirections", ErrMalformed)
	}
	if *off < 0 || *off >= len(msg) {
		return "", fmt.Errorf("%w: unexpected EOF decoding name", ErrMalformed)
	}

	labels := make([]string, 0, 6)
	for {
		if *off >= len(msg) {
			return "", fmt.Errorf("%w: unexpected EOF decoding name", ErrMalformed)
		}
		labelLen := msg[*off]
		*off++

		if labelLen == 0 {
			break
		}

		if isCompressionPointer(labelLen) {
			rest, err := followCompressionPointer(msg, off, labelLen, depth, visited)
			if err != nil {
				return "", err
			}
			if rest != "" {
				labels = append(labels, rest)
			}
			break
		}

		if hasReservedBits(labelLen) {
			return "", fmt.Errorf("%w: reserved label length bits set", ErrMalformed)
		}

		label, err := readLabel(msg, off, int(labelLen))
		if err != nil {
			return "", err
		}
		labels = append(labels, label)
	}

	return joinLabels(labels), nil
}

func isCompressionPointer(b byte) bool {
	return (b & 0xC0) == 0xC0
}

func hasReservedBits(b byte) bool {
	return (b & 0xC0) != 0
}

func followCompressionPointer(
	msg []byte,
	off *int,
	firstByte byte,
	depth int,
	visited map[int]struct{},
) (string, error) {
	if *off >= len(msg) {
		return "", fmt.Errorf("%w: unexpected EOF decoding compression pointer", ErrMalformed)
	}

	ptr := int(binary.BigEndian.Uint16([]byte{firstByte & 0x3F, msg[*off]}))
	*off++

	if ptr >= len(msg) {
		return "", fmt.Errorf("%w: compression pointer out of bounds", ErrMalformed)
	}
	if _, ok := visited[ptr]; ok {
		return "", fmt.Errorf("%w: compression pointer loop detected", ErrMalformed)
	}
	visited[ptr] = struct{}{}

	ptrOff := ptr
	return decodeName(msg, &ptrOff, depth+1, visited)
}

// readLabel returns the raw label bytes as a string, treating them as
// opaque per SPEC_FULL.md's round-tripping requirement: label bytes are
// never validated as ASCII, only length-bounded.
func readLabel(msg []byte, off *int, length int) (string, error) {
	if *off+length > len(msg) {
		return "", fmt.Errorf("%w: unexpected EOF reading label", ErrMalformed)
	}
	label := msg[*off : *off+length]
	*off += length
	return string(label), nil
}

func trimDot(s string) string {
	for len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// joinLabels concatenates labels with dots, pre-sizing the builder.
func joinLabels(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	if len(labels) == 1 {
		return labels[0]
	}
	totalSize := len(labels) - 1
	for _, label := range labels {
		totalSize += len(label)
	}
	var b strings.Builder
	b.Grow(totalSize)
	b.WriteString(labels[0])
	for i := 1; i < len(labels); i++ {
		b.WriteByte('.')
		b.WriteString(labels[i])
	}
	return b.String()
}
