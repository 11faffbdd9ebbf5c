// Package upid implements UPIDs: 128-bit identifiers made of a 20-bit
// human-readable prefix, a 40-bit timestamp and 64 bits of randomness.
//
// # Format
//
// The binary form is 16 bytes, big-endian within each field:
//
//	[5 bytes timestamp][8 bytes randomness][3 bytes prefix+version]
//
// The timestamp is milliseconds since the Unix epoch shifted right by 8 bits,
// which gives roughly 256 ms of precision. The string form reorders the fields
// so that the prefix comes first:
//
//	user_2accvpp5guht4dts56je5a
//	^^^^ prefix
//	     ^^^^^^^^ timestamp
//	             ^^^^^^^^^^^^^ randomness
//	                          ^ version
//
// Strings sort by prefix and then by time; binary values sort by time.
//
// # Usage
//
//	id, err := upid.FromPrefix("user")
//	s := id.String()          // "user_..."
//	back, err := upid.FromStr(s)
package upid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Version is the symbol appended to every prefix this package generates.
// Versions are restricted to the first half of the alphabet.
const Version = 'a'

// filler pads prefixes shorter than four characters.
const filler = "zzzz"

// MaxMilliseconds is the largest timestamp a UPID can carry.
const MaxMilliseconds = 1<<48 - 1

// UPID is a prefixed, sortable unique identifier. The zero value is Nil.
type UPID [16]byte

// Nil is the zero UPID.
var Nil UPID

// FromBytes builds a UPID from its 16-byte binary form.
func FromBytes(b []byte) (UPID, error) {
	var u UPID
	if len(b) != binLen {
		return u, fmt.Errorf("%w: binary must be exactly %d bytes, got %d", ErrLength, binLen, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// FromStr parses the string form of a UPID.
func FromStr(s string) (UPID, error) {
	b, err := Decode(s)
	if err != nil {
		return Nil, err
	}
	return UPID(b), nil
}

// Parse is an alias of FromStr.
func Parse(s string) (UPID, error) { return FromStr(s) }

// Must returns u or panics if err is non-nil.
func Must(u UPID, err error) UPID {
	if err != nil {
		panic(err)
	}
	return u
}

// FromUUID reinterprets the 16 bytes of a UUID as a UPID.
func FromUUID(id uuid.UUID) UPID { return UPID(id) }

// FromPrefix creates a UPID for prefix at the current time.
func FromPrefix(prefix string) (UPID, error) { return Default.FromPrefix(prefix) }

// FromPrefixAndTime creates a UPID for prefix at t.
func FromPrefixAndTime(prefix string, t time.Time) (UPID, error) {
	return Default.FromPrefixAndTime(prefix, t)
}

// FromPrefixAndMilliseconds creates a UPID for prefix at ms milliseconds since
// the epoch. See Generator.FromPrefixAndMilliseconds.
func FromPrefixAndMilliseconds(prefix string, ms int64) (UPID, error) {
	return Default.FromPrefixAndMilliseconds(prefix, ms)
}

// NormalizePrefix pads prefix with 'z' or truncates it to four bytes.
func NormalizePrefix(prefix string) string {
	return (prefix + filler)[:prefixCharLen]
}

// ValidPrefix reports whether prefix, once normalized, only uses alphabet
// characters.
func ValidPrefix(prefix string) bool {
	p := NormalizePrefix(prefix)
	for i := 0; i < len(p); i++ {
		if dec[p[i]] == invalid {
			return false
		}
	}
	return true
}

// LowerBound returns the smallest UPID whose timestamp is not before t. Since
// binary values order by time, it can bound range scans over stored bytes.
// ok is false when every representable timestamp precedes t, in which case
// no UPID is at or after t and the returned value is Nil.
func LowerBound(t time.Time) (u UPID, ok bool) {
	ms := t.UnixMilli()
	if ms <= 0 {
		return Nil, true
	}
	if ms > MaxMilliseconds&^0xFF {
		return Nil, false
	}
	ts := uint64(ms) >> 8
	if uint64(ms)&0xFF != 0 {
		ts++
	}
	putTimestamp(u[:timeBinLen], ts)
	return u, true
}

func putTimestamp(dst []byte, ts uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], ts)
	copy(dst, buf[8-timeBinLen:])
}

// String returns the 27-character encoded form.
func (u UPID) String() string {
	s, _ := Encode(u[:]) // a UPID is always 16 bytes
	return s
}

// Bytes returns a copy of the 16-byte binary form.
func (u UPID) Bytes() []byte {
	b := make([]byte, binLen)
	copy(b, u[:])
	return b
}

// Prefix returns the four-character prefix.
func (u UPID) Prefix() string {
	p, _ := encodePrefix(u[endRandoBin:])
	return p
}

// Version returns the version symbol.
func (u UPID) Version() byte {
	_, v := encodePrefix(u[endRandoBin:])
	return v
}

// Milliseconds returns the stored timestamp in milliseconds since the epoch.
// The low 8 bits are always zero.
func (u UPID) Milliseconds() int64 {
	var buf [8]byte
	copy(buf[8-timeBinLen-1:], u[:timeBinLen])
	return int64(binary.BigEndian.Uint64(buf[:]))
}

// Time returns the stored timestamp as a UTC time.
func (u UPID) Time() time.Time { return time.UnixMilli(u.Milliseconds()).UTC() }

// UUID returns the same 16 bytes as a UUID. The result is not a valid RFC 9562
// version/variant, but it round-trips through UUID columns.
func (u UPID) UUID() uuid.UUID { return uuid.UUID(u) }

// IsZero reports whether u is Nil.
func (u UPID) IsZero() bool { return u == Nil }

// Compare returns -1, 0 or 1 comparing binary forms, i.e. time first.
func (u UPID) Compare(other UPID) int { return bytes.Compare(u[:], other[:]) }
