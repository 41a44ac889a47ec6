package event

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
)

const digestSeed = "tokenvault:event:v1"

// CanonicalBytes encodes the envelope deterministically: fixed field order,
// length-prefixed strings, nanosecond timestamp. JSON is unsuitable here
// because map key order and whitespace are not stable across encoders.
func (e Envelope) CanonicalBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(digestSeed)

	writeField := func(s string) {
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
		buf.Write(lenBuf[:])
		buf.WriteString(s)
	}

	writeField(e.EventID.String())
	writeField(e.Kind.String())
	writeField(e.Asset)
	writeField(e.Caller)
	writeField(e.Recipient)
	writeField(e.Received)
	writeField(e.Snapshot)
	writeField(e.Amount)

	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(e.Timestamp.UnixNano()))
	buf.Write(ts[:])

	return buf.Bytes()
}

// Digest is the SHA-256 of the canonical encoding. Consumers can recompute
// it to verify an envelope arrived unaltered.
func (e Envelope) Digest() [32]byte {
	return sha256.Sum256(e.CanonicalBytes())
}
