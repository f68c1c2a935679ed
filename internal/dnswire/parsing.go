package dnswire

import (
	"fmt"

	"github.com/duskresolve/duskresolve/internal/helpers"
)

// Limits for incoming DNS messages, to keep a single malformed or hostile
// query from forcing large allocations.
const (
	MaxIncomingDNSMessageSize = 4096
	MaxQuestions              = 4
	MaxRRPerSection           = 100
	MaxTotalRR                = 200
)

// ParseRequestBounded parses a DNS request and validates it is a standard,
// single-question query within the section-count limits above.
func ParseRequestBounded(msg []byte) (Packet, error) {
	if len(msg) > MaxIncomingDNSMessageSize {
		return Packet{}, fmt.Errorf("%w: message too large", ErrMalformed)
	}
	p, err := ParsePacket(msg)
	if err != nil {
		return Packet{}, err
	}

	if isResponse(p.Header.Flags) {
		return Packet{}, fmt.Errorf("%w: QR flag set on a query", ErrMalformed)
	}
	if opcode := extractOpcode(p.Header.Flags); opcode != 0 {
		return Packet{}, fmt.Errorf("%w: unsupported opcode %d", ErrMalformed, opcode)
	}
	if err := validateSectionCounts(p.Header); err != nil {
		return Packet{}, err
	}
	if len(p.Questions) == 1 && RecordClass(p.Questions[0].Class) != ClassIN {
		return Packet{}, fmt.Errorf("%w: unsupported question class %d", ErrRefused, p.Questions[0].Class)
	}

	return p, nil
}

func isResponse(flags uint16) bool {
	return (flags & QRFlag) != 0
}

func extractOpcode(flags uint16) uint16 {
	return (flags & OpcodeMask) >> 11
}

func validateSectionCounts(h Header) error {
	qd := int(h.QDCount)
	an := int(h.ANCount)
	ns := int(h.NSCount)
	ar := int(h.ARCount)

	if qd > MaxQuestions {
		return fmt.Errorf("%w: too many questions", ErrMalformed)
	}
	if qd != 1 {
		return fmt.Errorf("%w: unsupported question count %d", ErrMalformed, qd)
	}
	if an > MaxRRPerSection || ns > MaxRRPerSection || ar > MaxRRPerSection {
		return fmt.Errorf("%w: too many resource records in a section", ErrMalformed)
	}
	if (an + ns + ar) > MaxTotalRR {
		return fmt.Errorf("%w: too many total resource records", ErrMalformed)
	}
	return nil
}

// BuildResponse constructs a response packet for req's sole question,
// carrying answers and rcode. Flags preserve the request's ID and RD bit,
// set QR and RA (this resolver always recurses), and clear AA/AD/CD/Z
// (not authoritative, no DNSSEC validation).
func BuildResponse(req Packet, answers []Record, rcode RCode) Packet {
	flags := buildResponseFlags(req.Header.Flags, uint16(rcode))
	h := Header{
		ID:      req.Header.ID,
		Flags:   flags,
		QDCount: helpers.ClampIntToUint16(len(req.Questions)),
		ANCount: helpers.ClampIntToUint16(len(answers)),
	}
	return Packet{Header: h, Questions: req.Questions, Answers: answers}
}

// BuildErrorResponse constructs an error response carrying no answers,
// preserving the request's transaction ID, RD flag, and question section.
func BuildErrorResponse(req Packet, rcode uint16) Packet {
	return BuildResponse(req, nil, RCode(rcode))
}

// buildResponseFlags sets QR and RA, preserves RD, and writes rcode into
// the low four bits.
func buildResponseFlags(reqFlags uint16, rcode uint16) uint16 {
	flags := QRFlag | RAFlag
	flags |= reqFlags & RDFlag
	rcode &= RCodeMask
	flags = (flags &^ RCodeMask) | rcode
	return flags
}
