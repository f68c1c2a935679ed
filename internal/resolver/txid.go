package resolver

// PatchTransactionID replaces the transaction ID (the first two bytes,
// big-endian) of a DNS wire message. Used to stamp an upstream or
// cache-derived response with the requesting client's own ID.
//
// Grounded on the teacher's resolvers.PatchTransactionID: an early return
// avoids allocating when the ID already matches.
func PatchTransactionID(msg []byte, txid uint16) []byte {
	if len(msg) < 2 {
		return msg
	}
	if msg[0] == byte(txid>>8) && msg[1] == byte(txid) {
		return msg
	}
	out := make([]byte, len(msg))
	copy(out, msg)
	out[0] = byte(txid >> 8)
	out[1] = byte(txid)
	return out
}
