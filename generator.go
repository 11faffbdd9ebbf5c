package upid

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

// Clock abstracts time so tests can pin the timestamp.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Generator creates UPIDs from an injected random source and clock. It holds
// no mutable state and is safe for concurrent use when its reader is.
type Generator struct {
	rand  io.Reader
	clock Clock
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the source of random bytes. It should be cryptographically
// secure outside of tests.
func WithRand(r io.Reader) Option { return func(g *Generator) { g.rand = r } }

// WithClock sets the clock used by FromPrefix.
func WithClock(c Clock) Option { return func(g *Generator) { g.clock = c } }

// NewGenerator returns a Generator reading crypto/rand and the system clock
// unless overridden by opts.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{rand: rand.Reader, clock: systemClock{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Default backs the package-level constructors.
var Default = NewGenerator()

// FromPrefix creates a UPID for prefix at the clock's current time.
func (g *Generator) FromPrefix(prefix string) (UPID, error) {
	return g.FromPrefixAndTime(prefix, g.clock.Now())
}

// FromPrefixAndTime creates a UPID for prefix at t.
func (g *Generator) FromPrefixAndTime(prefix string, t time.Time) (UPID, error) {
	return g.FromPrefixAndMilliseconds(prefix, t.UnixMilli())
}

// FromPrefixAndMilliseconds creates a UPID for prefix at ms milliseconds since
// the epoch.
//
// The prefix is padded with 'z' if shorter than four characters and truncated
// if longer; pass exactly four characters to avoid either. The low byte of ms
// is dropped, giving about 256 ms of precision. Eight fresh random bytes are
// read on every call.
func (g *Generator) FromPrefixAndMilliseconds(prefix string, ms int64) (UPID, error) {
	var u UPID
	if ms < 0 || ms > MaxMilliseconds {
		return Nil, fmt.Errorf("%w: %d ms", ErrTimestamp, ms)
	}
	if err := decodeRegion(u[endRandoBin:], NormalizePrefix(prefix)+string(rune(Version))); err != nil {
		return Nil, fmt.Errorf("prefix %q: %w", prefix, err)
	}
	putTimestamp(u[:timeBinLen], uint64(ms)>>8)
	if _, err := io.ReadFull(g.rand, u[timeBinLen:endRandoBin]); err != nil {
		return Nil, fmt.Errorf("upid: read randomness: %w", err)
	}
	return u, nil
}
