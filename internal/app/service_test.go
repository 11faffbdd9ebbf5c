package app

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/upid"
	"github.com/haukened/upid/internal/metrics"
)

const fixture = "user_2accvpp5guht4dts56je5a"

// fixedClock implements Clock returning a fixed instant.
type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

// mockRegistry implements Registry in memory.
type mockRegistry struct {
	mu        sync.Mutex
	records   map[upid.UPID]Record
	insertErr error
	getErr    error
	listErr   error

	listPrefix string
	listLimit  int
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{records: make(map[upid.UPID]Record)}
}

func (m *mockRegistry) Insert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.records[rec.ID]; ok {
		return errors.New("duplicate")
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *mockRegistry) Get(_ context.Context, id upid.UPID) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return Record{}, m.getErr
	}
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *mockRegistry) List(_ context.Context, prefix string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listPrefix, m.listLimit = prefix, limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Record
	for _, rec := range m.records {
		if rec.ID.Prefix() == prefix {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockRegistry) DeleteBefore(context.Context, time.Time) (int, error) { return 0, nil }

type countRecorder struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (c *countRecorder) Inc(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int64)
	}
	c.counts[name] += delta
}

var testNow = time.UnixMilli(1720366572300)

func newTestService(reg *mockRegistry, m Counter, prefixes ...string) *Service {
	return &Service{
		Generator: upid.NewGenerator(upid.WithRand(bytes.NewReader(make([]byte, 256)))),
		Registry:  reg,
		Clock:     fixedClock{now: testNow},
		Metrics:   m,
		Prefixes:  prefixes,
	}
}

func TestServiceIssueSuccess(t *testing.T) {
	reg := newMockRegistry()
	rec := &countRecorder{}
	svc := newTestService(reg, rec)

	got, err := svc.Issue(context.Background(), "user")
	require.NoError(t, err)
	assert.Equal(t, "user_2accvpp52222222222222a", got.ID.String())
	assert.Equal(t, testNow.UTC(), got.IssuedAt)
	assert.Equal(t, int64(1720366572288), got.ID.Milliseconds())
	assert.Contains(t, reg.records, got.ID)
	assert.Equal(t, int64(1), rec.counts[metrics.CounterIssued])
}

func TestServiceIssueNormalizesPrefix(t *testing.T) {
	svc := newTestService(newMockRegistry(), nil)
	got, err := svc.Issue(context.Background(), "ab")
	require.NoError(t, err)
	assert.Equal(t, "abzz", got.ID.Prefix())
}

func TestServiceIssueAllowList(t *testing.T) {
	reg := newMockRegistry()
	svc := newTestService(reg, nil, "user", "post")

	_, err := svc.Issue(context.Background(), "post")
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), "team")
	assert.ErrorIs(t, err, ErrPrefixNotAllowed)
	assert.Len(t, reg.records, 1)

	_, err = svc.Issue(context.Background(), "Team")
	assert.ErrorIs(t, err, upid.ErrAlphabet)
}

func TestServiceIssueErrors(t *testing.T) {
	reg := newMockRegistry()
	reg.insertErr = errors.New("disk full")
	rec := &countRecorder{}
	svc := newTestService(reg, rec)
	_, err := svc.Issue(context.Background(), "user")
	assert.EqualError(t, err, "disk full")
	assert.Zero(t, rec.counts[metrics.CounterIssued])

	svc = newTestService(newMockRegistry(), nil)
	svc.Clock = fixedClock{now: time.UnixMilli(-1)}
	_, err = svc.Issue(context.Background(), "user")
	assert.ErrorIs(t, err, upid.ErrTimestamp)
}

func TestServiceIssueDefaultGenerator(t *testing.T) {
	svc := &Service{Registry: newMockRegistry(), Clock: fixedClock{now: testNow}}
	a, err := svc.Issue(context.Background(), "user")
	require.NoError(t, err)
	b, err := svc.Issue(context.Background(), "user")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestServiceInspect(t *testing.T) {
	reg := newMockRegistry()
	rec := &countRecorder{}
	svc := newTestService(reg, rec)

	d, err := svc.Inspect(context.Background(), fixture)
	require.NoError(t, err)
	assert.Equal(t, "user", d.Prefix)
	assert.Equal(t, "a", d.Version)
	assert.Equal(t, int64(1720366572288), d.Milliseconds)
	assert.Equal(t, time.UnixMilli(1720366572288).UTC(), d.Time)
	assert.Equal(t, "01908dd6-a366-9b91-2738-191ea3d61576", d.UUID.String())
	assert.False(t, d.Registered)
	assert.True(t, d.IssuedAt.IsZero())

	issued, err := svc.Issue(context.Background(), "user")
	require.NoError(t, err)
	d, err = svc.Inspect(context.Background(), issued.ID.UUID().String())
	require.NoError(t, err)
	assert.Equal(t, issued.ID, d.ID)
	assert.True(t, d.Registered)
	assert.Equal(t, issued.IssuedAt, d.IssuedAt)

	assert.Equal(t, int64(2), rec.counts[metrics.CounterInspected])
}

func TestServiceInspectErrors(t *testing.T) {
	rec := &countRecorder{}
	reg := newMockRegistry()
	svc := newTestService(reg, rec)

	_, err := svc.Inspect(context.Background(), "user_1accvpp5guht4dts56je5a")
	assert.ErrorIs(t, err, upid.ErrAlphabet)
	_, err = svc.Inspect(context.Background(), "short")
	assert.ErrorIs(t, err, upid.ErrLength)
	assert.Equal(t, int64(2), rec.counts[metrics.CounterDecodeErrors])

	reg.getErr = errors.New("db locked")
	_, err = svc.Inspect(context.Background(), fixture)
	assert.EqualError(t, err, "db locked")
}

func TestServiceList(t *testing.T) {
	reg := newMockRegistry()
	svc := newTestService(reg, nil)
	_, err := svc.Issue(context.Background(), "user")
	require.NoError(t, err)

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: DefaultListLimit},
		{limit: -3, want: DefaultListLimit},
		{limit: 1, want: 1},
		{limit: 500, want: 500},
		{limit: MaxListLimit + 1, want: MaxListLimit},
	}
	for _, tc := range tests {
		recs, err := svc.List(context.Background(), "us", tc.limit)
		require.NoError(t, err)
		assert.Equal(t, "uszz", reg.listPrefix)
		assert.Equal(t, tc.want, reg.listLimit, "limit %d", tc.limit)
		assert.Empty(t, recs)
	}

	recs, err := svc.List(context.Background(), "user", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = svc.List(context.Background(), "US", 10)
	assert.ErrorIs(t, err, upid.ErrAlphabet)
}

func TestParseID(t *testing.T) {
	want := upid.Must(upid.FromStr(fixture))
	for _, raw := range []string{
		fixture,
		"  " + fixture + "\n",
		"user2accvpp5guht4dts56je5a",
		"01908dd6-a366-9b91-2738-191ea3d61576",
		"01908DD6-A366-9B91-2738-191EA3D61576",
	} {
		got, err := ParseID(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseID("01908dd6-a366-9b91-2738-191ea3d6157g")
	assert.Error(t, err)
}
