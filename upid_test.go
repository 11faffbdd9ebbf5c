package upid

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedGenerator returns a Generator with a pinned clock and an endless
// stream of the given random byte.
func fixedGenerator(now time.Time, b byte) *Generator {
	return NewGenerator(
		WithClock(ClockFunc(func() time.Time { return now })),
		WithRand(bytes.NewReader(bytes.Repeat([]byte{b}, 1024))),
	)
}

func TestPrefixRoundTrip(t *testing.T) {
	u, err := FromPrefix("user")
	require.NoError(t, err)
	assert.Equal(t, "user", u.Prefix())
	assert.Equal(t, byte(Version), u.Version())
}

func TestMillisecondRoundTrip(t *testing.T) {
	const ms = int64(1720366572288)
	u, err := FromPrefixAndMilliseconds("user", ms)
	require.NoError(t, err)
	assert.Equal(t, ms, u.Milliseconds())
	assert.Equal(t, "user_2accvpp5", u.String()[:13])
}

func TestMillisecondTruncation(t *testing.T) {
	for _, ms := range []int64{0, 1, 255, 256, 257, 1720366572288 + 255, 1720366572399, MaxMilliseconds} {
		u, err := FromPrefixAndMilliseconds("user", ms)
		require.NoError(t, err)
		got := u.Milliseconds()
		assert.Equal(t, ms&^0xFF, got, "ms %d", ms)
		assert.Zero(t, got&0xFF)

		back, err := FromStr(u.String())
		require.NoError(t, err)
		assert.Equal(t, got, back.Milliseconds())
	}
}

func TestTimestampOutOfRange(t *testing.T) {
	for _, ms := range []int64{-1, MaxMilliseconds + 1} {
		u, err := FromPrefixAndMilliseconds("user", ms)
		assert.ErrorIs(t, err, ErrTimestamp)
		assert.Equal(t, Nil, u)
	}
}

func TestStrRoundTrip(t *testing.T) {
	u, err := FromStr(fixture)
	require.NoError(t, err)
	assert.Equal(t, fixture, u.String())
	assert.Equal(t, "user", u.Prefix())
	assert.Equal(t, int64(1720366572288), u.Milliseconds())
	assert.Equal(t, time.UnixMilli(1720366572288).UTC(), u.Time())
}

func TestBytesRoundTrip(t *testing.T) {
	u, err := FromPrefix("user")
	require.NoError(t, err)
	after, err := FromStr(u.String())
	require.NoError(t, err)
	assert.Equal(t, u, after)

	fromBytes, err := FromBytes(u.Bytes())
	require.NoError(t, err)
	assert.Equal(t, u, fromBytes)
}

func TestFromBytesRejectsLength(t *testing.T) {
	for _, n := range []int{15, 17} {
		_, err := FromBytes(make([]byte, n))
		assert.ErrorIs(t, err, ErrLength)
	}
}

func TestUniqueWithinSameMillisecond(t *testing.T) {
	now := time.UnixMilli(1720366572288)
	g := NewGenerator(WithClock(ClockFunc(func() time.Time { return now })))
	a, err := g.FromPrefix("user")
	require.NoError(t, err)
	b, err := g.FromPrefix("user")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a.Milliseconds(), b.Milliseconds())
	for _, u := range []UPID{a, b} {
		back, err := FromStr(u.String())
		require.NoError(t, err)
		assert.Equal(t, u, back)
	}
}

func TestPrefixNormalization(t *testing.T) {
	const ms = int64(1720366572288)
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "zzzz"},
		{in: "ab", want: "abzz"},
		{in: "abc", want: "abcz"},
		{in: "user", want: "user"},
		{in: "abcdef", want: "abcd"},
		{in: "a2b7", want: "a2b7"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePrefix(tc.in))
			u, err := FromPrefixAndMilliseconds(tc.in, ms)
			require.NoError(t, err)
			assert.Equal(t, tc.want, u.Prefix())
			assert.Equal(t, tc.want+"_", u.String()[:5])
		})
	}
}

func TestInvalidPrefixCharacters(t *testing.T) {
	for _, p := range []string{"User", "us-r", "a0", "é", "ab1"} {
		_, err := FromPrefixAndMilliseconds(p, 0)
		assert.ErrorIs(t, err, ErrAlphabet, "prefix %q", p)
		assert.False(t, ValidPrefix(p))
	}
	// Characters past the fourth are discarded before validation.
	assert.True(t, ValidPrefix("user-account"))
}

func TestDeterministicGenerator(t *testing.T) {
	g := fixedGenerator(time.UnixMilli(1720366572288), 0)
	u, err := g.FromPrefix("user")
	require.NoError(t, err)
	assert.Equal(t, "user_2accvpp52222222222222a", u.String())
}

func TestFromPrefixAndTime(t *testing.T) {
	at := time.Date(2024, 7, 7, 15, 36, 12, 288_000_000, time.UTC)
	u, err := FromPrefixAndTime("post", at)
	require.NoError(t, err)
	assert.Equal(t, "post", u.Prefix())
	assert.Equal(t, at.UnixMilli()&^0xFF, u.Milliseconds())
	assert.WithinDuration(t, at, u.Time(), 256*time.Millisecond)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestRandomSourceFailure(t *testing.T) {
	g := NewGenerator(WithRand(errReader{}))
	u, err := g.FromPrefix("user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
	assert.Equal(t, Nil, u)
}

func TestMust(t *testing.T) {
	assert.Equal(t, fixture, Must(FromStr(fixture)).String())
	assert.Panics(t, func() { Must(FromStr("nope")) })
}

func TestUUIDInterop(t *testing.T) {
	u := Must(FromStr(fixture))
	id := u.UUID()
	assert.Equal(t, "01908dd6-a366-9b91-2738-191ea3d61576", id.String())
	assert.Equal(t, u, FromUUID(id))

	parsed, err := uuid.Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, u, FromUUID(parsed))
}

func TestCompareOrdersByTime(t *testing.T) {
	g := fixedGenerator(time.Time{}, 0xFF)
	early, err := g.FromPrefixAndMilliseconds("zzzz", 1_000_000)
	require.NoError(t, err)
	late, err := NewGenerator(WithRand(bytes.NewReader(make([]byte, 8)))).FromPrefixAndMilliseconds("aaaa", 2_000_000)
	require.NoError(t, err)

	assert.Equal(t, -1, early.Compare(late))
	assert.Equal(t, 1, late.Compare(early))
	assert.Equal(t, 0, early.Compare(early))
	assert.False(t, early.IsZero())
	assert.True(t, Nil.IsZero())
}

func TestStringsSortByPrefixThenTime(t *testing.T) {
	a := Must(FromPrefixAndMilliseconds("aaaa", 2_000_000))
	b := Must(FromPrefixAndMilliseconds("bbbb", 1_000_000))
	c := Must(FromPrefixAndMilliseconds("bbbb", 3_000_000))
	assert.Less(t, a.String(), b.String())
	assert.Less(t, b.String(), c.String())
}

func TestLowerBound(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want int64
	}{
		{name: "aligned", ms: 1720366572288, want: 1720366572288},
		{name: "rounds up", ms: 1720366572289, want: 1720366572288 + 256},
		{name: "epoch", ms: 0, want: 0},
		{name: "before epoch", ms: -5000, want: 0},
		{name: "last slot", ms: MaxMilliseconds &^ 0xFF, want: MaxMilliseconds &^ 0xFF},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lb, ok := LowerBound(time.UnixMilli(tc.ms))
			require.True(t, ok)
			assert.Equal(t, tc.want, lb.Milliseconds())

			u := Must(FromPrefixAndMilliseconds("user", tc.want))
			assert.LessOrEqual(t, lb.Compare(u), 0)
		})
	}
}

func TestLowerBoundPastLastTimestamp(t *testing.T) {
	for _, ms := range []int64{MaxMilliseconds&^0xFF + 1, MaxMilliseconds, MaxMilliseconds + 1, 1 << 60} {
		lb, ok := LowerBound(time.UnixMilli(ms))
		assert.False(t, ok, "ms %d", ms)
		assert.Equal(t, Nil, lb)

		last := Must(FromPrefixAndMilliseconds("zzzz", MaxMilliseconds))
		assert.Less(t, last.Milliseconds(), ms)
	}
}
