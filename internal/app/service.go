package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haukened/upid"
	"github.com/haukened/upid/internal/metrics"
)

// ErrNotFound indicates the identifier is not in the registry.
var ErrNotFound = errors.New("upid not found")

// ErrPrefixNotAllowed indicates the prefix is outside the configured allow-list.
var ErrPrefixNotAllowed = errors.New("prefix not allowed")

// List limits.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Details describes every field derivable from an identifier.
type Details struct {
	ID           upid.UPID
	Prefix       string
	Version      string
	Milliseconds int64
	Time         time.Time
	UUID         uuid.UUID
	Registered   bool
	IssuedAt     time.Time // zero unless Registered
}

// Service issues, inspects and lists identifiers using the injected generator,
// registry and clock.
type Service struct {
	Generator *upid.Generator
	Registry  Registry
	Clock     Clock
	Metrics   Counter  // optional
	Prefixes  []string // allowed normalized prefixes; empty allows any
}

// Issue generates a new identifier for prefix and records it.
func (s *Service) Issue(ctx context.Context, prefix string) (Record, error) {
	if !upid.ValidPrefix(prefix) {
		return Record{}, fmt.Errorf("prefix %q: %w", prefix, upid.ErrAlphabet)
	}
	if !s.allowed(prefix) {
		return Record{}, fmt.Errorf("%w: %q", ErrPrefixNotAllowed, upid.NormalizePrefix(prefix))
	}
	now := s.Clock.Now()
	id, err := s.generator().FromPrefixAndTime(prefix, now)
	if err != nil {
		return Record{}, err
	}
	rec := Record{ID: id, IssuedAt: now.UTC()}
	if err := s.Registry.Insert(ctx, rec); err != nil {
		return Record{}, err
	}
	s.inc(metrics.CounterIssued)
	return rec, nil
}

// Inspect parses raw, which may be a UPID string or a UUID string, and
// describes it. Registry membership is reported but not required.
func (s *Service) Inspect(ctx context.Context, raw string) (Details, error) {
	id, err := ParseID(raw)
	if err != nil {
		s.inc(metrics.CounterDecodeErrors)
		return Details{}, err
	}
	s.inc(metrics.CounterInspected)
	d := Describe(id)
	rec, err := s.Registry.Get(ctx, id)
	switch {
	case err == nil:
		d.Registered = true
		d.IssuedAt = rec.IssuedAt
	case !errors.Is(err, ErrNotFound):
		return Details{}, err
	}
	return d, nil
}

// List returns recorded identifiers for prefix, oldest first. A limit outside
// [1, MaxListLimit] is replaced by DefaultListLimit or MaxListLimit.
func (s *Service) List(ctx context.Context, prefix string, limit int) ([]Record, error) {
	if !upid.ValidPrefix(prefix) {
		return nil, fmt.Errorf("prefix %q: %w", prefix, upid.ErrAlphabet)
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return s.Registry.List(ctx, upid.NormalizePrefix(prefix), limit)
}

// ParseID accepts the UPID string form or a canonical 36-character UUID.
func ParseID(raw string) (upid.UPID, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 36 && strings.Count(raw, "-") == 4 {
		if u, err := uuid.Parse(raw); err == nil {
			return upid.FromUUID(u), nil
		}
	}
	return upid.FromStr(raw)
}

// Describe derives every field of id.
func Describe(id upid.UPID) Details {
	return Details{
		ID:           id,
		Prefix:       id.Prefix(),
		Version:      string(id.Version()),
		Milliseconds: id.Milliseconds(),
		Time:         id.Time(),
		UUID:         id.UUID(),
	}
}

func (s *Service) allowed(prefix string) bool {
	if len(s.Prefixes) == 0 {
		return true
	}
	return slices.Contains(s.Prefixes, upid.NormalizePrefix(prefix))
}

func (s *Service) generator() *upid.Generator {
	if s.Generator == nil {
		return upid.Default
	}
	return s.Generator
}

func (s *Service) inc(name string) {
	if s.Metrics != nil {
		s.Metrics.Inc(name, 1)
	}
}
