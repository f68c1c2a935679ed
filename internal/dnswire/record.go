package dnswire

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
)

// Record is a single resource record. Data is type-specific:
//   - A/AAAA/OPT/unknown: []byte
//   - CNAME/NS/PTR: string
//   - MX: MXData
//   - TXT: string, []string, or []byte
type Record struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	Data  any
}

// MXData is the rdata of an MX record.
type MXData struct {
	Preference uint16
	Exchange   string
}

// ParseRecord parses a resource record from msg at *off, advancing *off
// past it.
func ParseRecord(msg []byte, off *int) (Record, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Record{}, err
	}
	if *off+10 > len(msg) {
		return Record{}, fmt.Errorf("%w: unexpected EOF reading record", ErrMalformed)
	}
	rrType := binary.BigEndian.Uint16(msg[*off : *off+2])
	rrClass := binary.BigEndian.Uint16(msg[*off+2 : *off+4])
	ttl := binary.BigEndian.Uint32(msg[*off+4 : *off+8])
	rdlen := binary.BigEndian.Uint16(msg[*off+8 : *off+10])
	*off += 10
	start := *off
	if start+int(rdlen) > len(msg) {
		return Record{}, fmt.Errorf("%w: unexpected EOF reading record rdata", ErrMalformed)
	}

	var data any
	switch RecordType(rrType) {
	case TypeCNAME, TypeNS, TypePTR:
		n, err := DecodeName(msg, off)
		if err != nil {
			return Record{}, err
		}
		if *off-start != int(rdlen) {
			return Record{}, fmt.Errorf("%w: bad rdata length for name-based type", ErrMalformed)
		}
		data = n
	case TypeMX:
		if *off+2 > len(msg) {
			return Record{}, fmt.Errorf("%w: unexpected EOF reading MX preference", ErrMalformed)
		}
		pref := binary.BigEndian.Uint16(msg[*off : *off+2])
		*off += 2
		ex, err := DecodeName(msg, off)
		if err != nil {
			return Record{}, err
		}
		if *off-start != int(rdlen) {
			return Record{}, fmt.Errorf("%w: bad rdata length for MX", ErrMalformed)
		}
		data = MXData{Preference: pref, Exchange: ex}
	default:
		b := make([]byte, rdlen)
		copy(b, msg[*off:*off+int(rdlen)])
		*off += int(rdlen)
		data = b
	}

	return Record{Name: name, Type: rrType, Class: rrClass, TTL: ttl, Data: data}, nil
}

// Marshal serializes the record without name compression.
func (rr Record) Marshal() ([]byte, error) {
	return rr.marshal(nil)
}

// MarshalAt serializes the record, compressing its owner name down to a
// pointer when it matches questionName.
func (rr Record) MarshalAt(questionName string) ([]byte, error) {
	return rr.marshal(&questionName)
}

func (rr Record) marshal(questionName *string) ([]byte, error) {
	var nameWire []byte
	var err error
	switch {
	case rr.Type == uint16(TypeOPT):
		nameWire = []byte{0}
	case questionName != nil:
		nameWire, err = EncodeNameAt(rr.Name, *questionName)
	default:
		nameWire, err = EncodeName(rr.Name)
	}
	if err != nil {
		return nil, err
	}

	rdata, err := rr.marshalRData()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nameWire)+10+len(rdata))
	out = append(out, nameWire...)
	fixed := make([]byte, 10)
	binary.BigEndian.PutUint16(fixed[0:2], rr.Type)
	binary.BigEndian.PutUint16(fixed[2:4], rr.Class)
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(rdata)))
	out = append(out, fixed...)
	out = append(out, rdata...)
	return out, nil
}

func (rr Record) marshalRData() ([]byte, error) {
	switch RecordType(rr.Type) {
	case TypeA:
		b, ok := rr.Data.([]byte)
		if !ok || len(b) != 4 {
			return nil, fmt.Errorf("%w: A record data must be 4 bytes", ErrMalformed)
		}
		return b, nil
	case TypeAAAA:
		b, ok := rr.Data.([]byte)
		if !ok || len(b) != 16 {
			return nil, fmt.Errorf("%w: AAAA record data must be 16 bytes", ErrMalformed)
		}
		return b, nil
	case TypeMX:
		mx, ok := rr.Data.(MXData)
		if !ok {
			return nil, fmt.Errorf("%w: MX record data must be MXData", ErrMalformed)
		}
		ex, err := EncodeName(mx.Exchange)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 2+len(ex))
		binary.BigEndian.PutUint16(out[0:2], mx.Preference)
		copy(out[2:], ex)
		return out, nil
	case TypeCNAME, TypeNS, TypePTR:
		s, ok := rr.Data.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%w: name-based record data must be a non-empty string", ErrMalformed)
		}
		return EncodeName(s)
	case TypeTXT:
		return marshalTXT(rr.Data)
	case TypeOPT:
		if rr.Data == nil {
			return nil, nil
		}
		b, ok := rr.Data.([]byte)
		if ok {
			return b, nil
		}
		return nil, fmt.Errorf("%w: OPT record data must be raw bytes", ErrMalformed)
	default:
		if b, ok := rr.Data.([]byte); ok {
			return b, nil
		}
		return nil, fmt.Errorf("%w: unsupported record type for serialization: %d", ErrMalformed, rr.Type)
	}
}

func marshalTXT(v any) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return marshalTXTString(t), nil
	case []string:
		totalLen := 0
		for _, s := range t {
			totalLen += 1 + len(s)
		}
		out := make([]byte, 0, totalLen)
		for _, s := range t {
			b := []byte(s)
			if len(b) > 255 {
				return nil, fmt.Errorf("%w: TXT character-string cannot exceed 255 bytes", ErrMalformed)
			}
			out = append(out, byte(len(b)))
			out = append(out, b...)
		}
		return out, nil
	case []byte:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: TXT record data must be string, []string, or []byte", ErrMalformed)
	}
}

func marshalTXTString(s string) []byte {
	b := []byte(s)
	if len(b) <= 255 {
		out := make([]byte, 1+len(b))
		out[0] = byte(len(b))
		copy(out[1:], b)
		return out
	}
	numChunks := (len(b) + 254) / 255
	out := make([]byte, 0, len(b)+numChunks)
	for i := 0; i < len(b); i += 255 {
		chunk := b[i:]
		if len(chunk) > 255 {
			chunk = chunk[:255]
		}
		out = append(out, byte(len(chunk)))
		out = append(out, chunk...)
	}
	return out
}

// IPv4 returns the dotted-decimal form of an A record's data.
func (rr Record) IPv4() (string, bool) {
	if RecordType(rr.Type) != TypeA {
		return "", false
	}
	b, ok := rr.Data.([]byte)
	if !ok || len(b) != 4 {
		return "", false
	}
	return net.IPv4(b[0], b[1], b[2], b[3]).String(), true
}

// IPv6 returns the colon-hex form of an AAAA record's data.
func (rr Record) IPv6() (string, bool) {
	if RecordType(rr.Type) != TypeAAAA {
		return "", false
	}
	b, ok := rr.Data.([]byte)
	if !ok || len(b) != 16 {
		return "", false
	}
	return net.IP(b).String(), true
}

// RDataString renders rdata in a form suitable for hashing and for
// display in the admin API and query log, independent of record type.
func (rr Record) RDataString() string {
	switch v := rr.Data.(type) {
	case string:
		return v
	case []byte:
		return hex.EncodeToString(v)
	case MXData:
		return fmt.Sprintf("%d %s", v.Preference, v.Exchange)
	case []string:
		out := ""
		for i, s := range v {
			if i > 0 {
				out += ","
			}
			out += s
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Identity returns a stable digest for the RR's (name, type, rdata,
// preference) tuple. It is the de-duplication key used by the answer
// cache and by the resolver's cache/manual union: two RRs with the same
// identity are the same answer even if they arrived from different
// sources.
func (rr Record) Identity() string {
	pref := ""
	if mx, ok := rr.Data.(MXData); ok {
		pref = fmt.Sprintf(":%d", mx.Preference)
	}
	sum := sha1.Sum([]byte(NormalizeName(rr.Name) + ":" + TypeName(rr.Type) + ":" + rr.RDataString() + pref))
	return hex.EncodeToString(sum[:])[:12]
}
