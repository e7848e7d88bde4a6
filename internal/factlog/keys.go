package factlog

import "encoding/binary"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - sos/facts/m
// - sos/facts/e/{seq_be8}

var (
	metaKey     = []byte("sos/facts/m")
	entryPrefix = []byte("sos/facts/e/")
)

func keyEntry(seq uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return append(k, b[:]...)
}

func seqFromKey(k []byte) uint64 {
	if len(k) < len(entryPrefix)+8 {
		return 0
	}
	return binary.BigEndian.Uint64(k[len(k)-8:])
}
