package upid

import (
	"fmt"
	"strings"
)

// Binary order is TIMESTAMP RANDOMNESS PREFIX+VERSION.
const (
	timeBinLen   = 5
	randoBinLen  = 8
	prefixBinLen = 3 // includes the version nibble
	endRandoBin  = timeBinLen + randoBinLen
	binLen       = timeBinLen + randoBinLen + prefixBinLen
)

// String order is PREFIX _ TIMESTAMP RANDOMNESS VERSION.
const (
	prefixCharLen  = 4
	timeCharLen    = 8
	endTimeChar    = prefixCharLen + timeCharLen
	randoCharLen   = 13
	versionCharLen = 1
	charLen        = prefixCharLen + timeCharLen + randoCharLen + versionCharLen

	// EncodedLen is the length of a canonical string, separator included.
	EncodedLen = charLen + 1
)

// Separator splits the prefix from the rest of the encoded string.
const Separator = '_'

// alphabet is Crockford-like but keeps every lowercase letter so any sensible
// prefix can be spelled. Digits sort first.
const alphabet = "234567abcdefghijklmnopqrstuvwxyz"

const invalid = 0xFF

// dec maps an ASCII byte to its alphabet index, or invalid.
var dec [256]byte

func init() {
	for i := range dec {
		dec[i] = invalid
	}
	for i := 0; i < len(alphabet); i++ {
		dec[alphabet[i]] = byte(i)
	}
}

// regionChars is the number of symbols an n-byte region occupies: one per full
// 5-bit group plus one trailing symbol for leftover bits.
func regionChars(n int) int { return (n*8 + 4) / 5 }

// encodeRegion writes the symbols for src into dst. Groups are read most
// significant first; leftover bits (fewer than five) become the value of the
// final symbol, so its high bits are always zero.
func encodeRegion(dst, src []byte) error {
	if len(src) == 0 || len(src) > 8 || len(dst) != regionChars(len(src)) {
		return fmt.Errorf("%w: cannot encode %d bytes into %d symbols", ErrLength, len(src), len(dst))
	}
	var acc uint64
	for _, b := range src {
		acc = acc<<8 | uint64(b)
	}
	bits := len(src) * 8
	full := bits / 5
	for i := 0; i < full; i++ {
		dst[i] = alphabet[(acc>>uint(bits-5*(i+1)))&0x1F]
	}
	if rem := bits % 5; rem > 0 {
		dst[full] = alphabet[acc&(1<<uint(rem)-1)]
	}
	return nil
}

// decodeRegion reverses encodeRegion. The final symbol of a region whose bit
// count is not a multiple of five must fit in the leftover bits.
func decodeRegion(dst []byte, src string) error {
	if len(dst) == 0 || len(dst) > 8 || len(src) != regionChars(len(dst)) {
		return fmt.Errorf("%w: cannot decode %d symbols into %d bytes", ErrLength, len(src), len(dst))
	}
	bits := len(dst) * 8
	full := bits / 5
	var acc uint64
	for i := 0; i < full; i++ {
		v := dec[src[i]]
		if v == invalid {
			return fmt.Errorf("%w: %q", ErrAlphabet, src[i])
		}
		acc = acc<<5 | uint64(v)
	}
	if rem := uint(bits % 5); rem > 0 {
		v := dec[src[full]]
		if v == invalid {
			return fmt.Errorf("%w: %q", ErrAlphabet, src[full])
		}
		if v >= 1<<rem {
			return fmt.Errorf("%w: symbol %q exceeds %d bits in %q", ErrOverflow, src[full], rem, src)
		}
		acc = acc<<rem | uint64(v)
	}
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(acc)
		acc >>= 8
	}
	return nil
}

// Encode renders a 16-byte identifier as its 27-character string.
func Encode(b []byte) (string, error) {
	if len(b) != binLen {
		return "", fmt.Errorf("%w: binary must be exactly %d bytes, got %d", ErrLength, binLen, len(b))
	}
	var prefix [prefixCharLen + versionCharLen]byte
	if err := encodeRegion(prefix[:], b[endRandoBin:]); err != nil {
		return "", err
	}
	var out [EncodedLen]byte
	copy(out[:prefixCharLen], prefix[:prefixCharLen])
	out[prefixCharLen] = Separator
	body := out[prefixCharLen+1:]
	if err := encodeRegion(body[:timeCharLen], b[:timeBinLen]); err != nil {
		return "", err
	}
	if err := encodeRegion(body[timeCharLen:timeCharLen+randoCharLen], b[timeBinLen:endRandoBin]); err != nil {
		return "", err
	}
	out[EncodedLen-1] = prefix[prefixCharLen]
	return string(out[:]), nil
}

// Decode parses an encoded string back into its 16 bytes. The first separator
// is removed wherever it appears, so the 26 bare symbols are accepted as well.
// Its position is not checked: "user2accvpp5_guht4dts56je5a" decodes to the
// same bytes as "user_2accvpp5guht4dts56je5a", and Encode returns the latter.
func Decode(s string) ([16]byte, error) {
	var out [16]byte
	stripped := strings.Replace(s, string(Separator), "", 1)
	if len(stripped) != charLen {
		return out, fmt.Errorf("%w: encoded upid must be exactly %d characters, got %d", ErrLength, charLen, len(stripped))
	}
	for i := 0; i < len(stripped); i++ {
		if dec[stripped[i]] == invalid {
			return out, fmt.Errorf("%w: %q at position %d, want one of %s", ErrAlphabet, stripped[i], i, alphabet)
		}
	}

	var b [16]byte
	prefix := stripped[:prefixCharLen] + stripped[charLen-versionCharLen:]
	if err := decodeRegion(b[endRandoBin:], prefix); err != nil {
		return out, err
	}
	if err := decodeRegion(b[:timeBinLen], stripped[prefixCharLen:endTimeChar]); err != nil {
		return out, err
	}
	if err := decodeRegion(b[timeBinLen:endRandoBin], stripped[endTimeChar:charLen-versionCharLen]); err != nil {
		return out, err
	}
	return b, nil
}

// encodePrefix returns the four prefix symbols and the version symbol stored
// in the trailing three bytes.
func encodePrefix(b []byte) (string, byte) {
	var s [prefixCharLen + versionCharLen]byte
	_ = encodeRegion(s[:], b) // b is always prefixBinLen here
	return string(s[:prefixCharLen]), s[prefixCharLen]
}
