package resolver

import (
	"net"

	"github.com/duskresolve/duskresolve/internal/dnswire"
)

// buildRecord constructs a wire-ready Record from the string-oriented
// rdata the store and cache deal in. ok is false for a type/rdata
// combination that can't be serialized (e.g. an unparsable A address),
// in which case the caller should skip the candidate rather than fail
// the whole query.
func buildRecord(name string, rrType uint16, ttl uint32, rdata string, preference *uint16) (dnswire.Record, bool) {
	rr := dnswire.Record{Name: name, Type: rrType, Class: uint16(dnswire.ClassIN), TTL: ttl}

	switch dnswire.RecordType(rrType) {
	case dnswire.TypeA:
		ip := net.ParseIP(rdata)
		if ip == nil || ip.To4() == nil {
			return dnswire.Record{}, false
		}
		rr.Data = []byte(ip.To4())
	case dnswire.TypeAAAA:
		ip := net.ParseIP(rdata)
		if ip == nil || ip.To4() != nil {
			return dnswire.Record{}, false
		}
		rr.Data = []byte(ip.To16())
	case dnswire.TypeCNAME, dnswire.TypeNS, dnswire.TypePTR:
		if rdata == "" {
			return dnswire.Record{}, false
		}
		rr.Data = rdata
	case dnswire.TypeMX:
		if preference == nil || rdata == "" {
			return dnswire.Record{}, false
		}
		rr.Data = dnswire.MXData{Preference: *preference, Exchange: rdata}
	case dnswire.TypeTXT:
		rr.Data = rdata
	default:
		return dnswire.Record{}, false
	}
	return rr, true
}
