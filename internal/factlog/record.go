package factlog

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: varint kindLen | kind | payload | crc32c(kind|payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeRecord(kind, payload []byte) []byte {
	out := make([]byte, 0, 10+len(kind)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(kind)))
	out = append(out, tmp[:n]...)
	out = append(out, kind...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, kind)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

func decodeRecord(b []byte) (kind, payload []byte, ok bool) {
	if len(b) < 1+4 {
		return nil, nil, false
	}
	klen, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, nil, false
	}
	if n+int(klen)+4 > len(b) {
		return nil, nil, false
	}
	kind = b[n : n+int(klen)]
	payload = b[n+int(klen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, kind)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return nil, nil, false
	}
	return append([]byte(nil), kind...), append([]byte(nil), payload...), true
}
