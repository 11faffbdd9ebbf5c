package upid

import "errors"

// Sentinel errors returned by the codec and constructors. Callers match them
// with errors.Is; the returned errors wrap them with the offending detail.
var (
	// ErrLength reports a binary value that is not 16 bytes, or a string that
	// is not 26 symbols once the separator is removed.
	ErrLength = errors.New("upid: invalid length")

	// ErrAlphabet reports a character outside the base32 alphabet.
	ErrAlphabet = errors.New("upid: invalid character")

	// ErrOverflow reports a terminal symbol whose padding bits are set, which
	// would not fit back into the source bytes. Such strings are never
	// produced by the encoder.
	ErrOverflow = errors.New("upid: non-canonical value")

	// ErrTimestamp reports milliseconds that cannot be stored in the 40-bit
	// timestamp field.
	ErrTimestamp = errors.New("upid: timestamp out of range")
)
