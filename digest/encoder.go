package digest

import (
	"bytes"
	"encoding/binary"
	"sort"
	"time"
)

// Encoding format version. Bumping it changes every hash in the chain.
const Version byte = 1

// Domain tags keep block hashes and signature payloads in separate spaces.
const (
	DomainBlock     = "attest/block/v1"
	DomainSignature = "attest/signature/v1"
)

// Encoder builds an unambiguous byte encoding of a sequence of fields.
//
// Layout: length-prefixed domain tag, version byte, then each field in call
// order. Variable-length fields carry a 4-byte big-endian length so that no
// two distinct field sequences produce the same bytes. Integers are 8-byte
// big-endian; times are Unix milliseconds in UTC.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder starts an encoding in the given domain.
func NewEncoder(domain string) *Encoder {
	e := &Encoder{}
	e.String(domain)
	e.buf.WriteByte(Version)
	return e
}

// Bytes appends a length-prefixed byte field.
func (e *Encoder) Bytes(b []byte) *Encoder {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b))) //nolint:gosec // fields are bounded well below 4GiB
	e.buf.Write(n[:])
	e.buf.Write(b)
	return e
}

// String appends a length-prefixed string field.
func (e *Encoder) String(s string) *Encoder {
	return e.Bytes([]byte(s))
}

// Digest appends a fixed-width digest field.
func (e *Encoder) Digest(d Digest) *Encoder {
	e.buf.Write(d[:])
	return e
}

// Uint64 appends a fixed-width unsigned integer.
func (e *Encoder) Uint64(v uint64) *Encoder {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], v)
	e.buf.Write(n[:])
	return e
}

// Time appends t as Unix milliseconds.
func (e *Encoder) Time(t time.Time) *Encoder {
	return e.Uint64(uint64(t.UTC().UnixMilli())) //nolint:gosec // timestamps before 1970 are rejected upstream
}

// Instant appends t at full precision: Unix seconds followed by the
// nanosecond offset within that second.
func (e *Encoder) Instant(t time.Time) *Encoder {
	e.Uint64(uint64(t.Unix())) //nolint:gosec // two's complement keeps pre-1970 instants distinct
	return e.Uint64(uint64(t.Nanosecond()))
}

// Map appends the entry count followed by key/value pairs in key order.
func (e *Encoder) Map(m map[string]string) *Encoder {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.Uint64(uint64(len(keys)))
	for _, k := range keys {
		e.String(k)
		e.String(m[k])
	}
	return e
}

// Encoded returns the accumulated encoding.
func (e *Encoder) Encoded() []byte {
	return e.buf.Bytes()
}

// Sum hashes the accumulated encoding.
func (e *Encoder) Sum() Digest {
	return Sum(e.buf.Bytes())
}
