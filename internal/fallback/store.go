// Package fallback keeps the last-known-good snapshot of a dataset so callers
// can keep serving data while their primary source is down.
//
// A Store holds one snapshot in memory and mirrors it, best effort, to an
// optional storage.Backend under a single fixed key. Without a backend the
// Store runs memory-only. Backend failures never reach the caller: they are
// reported to an errorlog.Sink and the Store degrades to memory or to "no
// data". Staleness is advisory; nothing is evicted automatically.
package fallback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oriys/lastgood/internal/errorlog"
	"github.com/oriys/lastgood/internal/logging"
	"github.com/oriys/lastgood/internal/metrics"
	"github.com/oriys/lastgood/internal/observability"
	"github.com/oriys/lastgood/internal/storage"
)

const (
	// DefaultKey is the backend key the snapshot is stored under.
	DefaultKey = "fallback_data"

	// DefaultFreshWindow bounds the age of a fresh snapshot.
	DefaultFreshWindow = 24 * time.Hour

	// Source tags every record this package sends to the error sink.
	Source = "FallbackStore"
)

// Store is the two-tier fallback cache. It is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	slot *Data

	backend     storage.Backend
	sink        errorlog.Sink
	now         func() time.Time
	key         string
	freshWindow time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithBackend sets the persistent backend. A nil backend means memory-only.
func WithBackend(b storage.Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithSink sets the error sink. The default logs through logging.Op().
func WithSink(sink errorlog.Sink) Option {
	return func(s *Store) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKey overrides the backend key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithFreshWindow overrides the freshness bound used by IsFresh.
func WithFreshWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.freshWindow = d
		}
	}
}

// New creates a Store with an empty memory slot.
func New(opts ...Option) *Store {
	s := &Store{
		sink:        errorlog.NewSlogSinkFunc(logging.Op),
		now:         time.Now,
		key:         DefaultKey,
		freshWindow: DefaultFreshWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Persistent reports whether the Store has a backend.
func (s *Store) Persistent() bool {
	return s.backend != nil
}

// Key returns the backend key.
func (s *Store) Key() string {
	return s.key
}

// Write replaces the snapshot with records and metadata, both copied, and
// stamps it with the current time. The memory slot is always updated; the
// backend write is best effort.
func (s *Store) Write(ctx context.Context, records []map[string]any, metadata map[string]any) {
	ctx, span := observability.StartSpan(ctx, "fallback.write")
	defer span.End()

	d := &Data{
		Records:      copyRecords(records),
		Metadata:     copyMap(metadata),
		CapturedAtMs: s.now().UnixMilli(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.slot = d
	metrics.RecordWrite(len(d.Records))

	if s.backend == nil {
		return
	}
	raw, err := Encode(d)
	if err == nil {
		err = s.backend.Set(ctx, s.key, raw)
	}
	if err != nil {
		s.report("write", "Failed to save fallback data", err)
	}
}

// Read returns a copy of the snapshot. The memory slot answers first; on a
// miss the backend is consulted and a valid payload fills the slot.
func (s *Store) Read(ctx context.Context) (*Data, bool) {
	ctx, span := observability.StartSpan(ctx, "fallback.read")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(ctx)
}

func (s *Store) readLocked(ctx context.Context) (*Data, bool) {
	if s.slot != nil {
		metrics.RecordRead(metrics.TierMemory)
		return s.slot.Clone(), true
	}
	if s.backend == nil {
		metrics.RecordRead(metrics.TierMiss)
		return nil, false
	}

	raw, err := s.backend.Get(ctx, s.key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.report("read", "Failed to load fallback data", err)
		metrics.RecordRead(metrics.TierMiss)
		return nil, false
	}
	if len(raw) == 0 {
		metrics.RecordRead(metrics.TierMiss)
		return nil, false
	}

	d, err := Decode(raw)
	switch {
	case errors.Is(err, ErrVersionMismatch), errors.Is(err, ErrNoData):
		// Unusable but well-formed payloads are not reported.
		metrics.RecordRead(metrics.TierMiss)
		return nil, false
	case err != nil:
		s.report("read", "Failed to load fallback data", err)
		metrics.RecordRead(metrics.TierMiss)
		return nil, false
	}

	s.slot = d
	metrics.RecordRead(metrics.TierBackend)
	metrics.SetSnapshotRecords(len(d.Records))
	return d.Clone(), true
}

// HasData reports whether a snapshot with at least one record is available.
// It runs the full read path, so it may load the backend into memory.
func (s *Store) HasData(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.readLocked(ctx)
	return ok && len(d.Records) > 0
}

// Clear empties the memory slot and removes the backend key.
func (s *Store) Clear(ctx context.Context) {
	ctx, span := observability.StartSpan(ctx, "fallback.clear")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.slot = nil
	metrics.RecordClear()

	if s.backend == nil {
		return
	}
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.report("clear", "Failed to clear fallback data", err)
	}
}

// AgeMinutes returns whole minutes since the snapshot was captured, rounded
// down, or -1 when there is no snapshot.
func (s *Store) AgeMinutes(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	age := s.ageLocked(ctx)
	metrics.SetSnapshotAge(age)
	return age
}

func (s *Store) ageLocked(ctx context.Context) int {
	d, ok := s.readLocked(ctx)
	if !ok {
		return -1
	}
	return s.age(d)
}

func (s *Store) age(d *Data) int {
	elapsed := s.now().UnixMilli() - d.CapturedAtMs
	return int(floorDiv(elapsed, time.Minute.Milliseconds()))
}

func (s *Store) fresh(age int) bool {
	return age >= 0 && age < int(s.freshWindow/time.Minute)
}

// IsFresh reports whether a snapshot exists and is younger than the fresh
// window (24 hours by default).
func (s *Store) IsFresh(ctx context.Context) bool {
	return s.fresh(s.AgeMinutes(ctx))
}

// Status is a point-in-time summary of the Store.
type Status struct {
	HasData    bool `json:"has_data" yaml:"has_data"`
	AgeMinutes int  `json:"age_minutes" yaml:"age_minutes"`
	Fresh      bool `json:"fresh" yaml:"fresh"`
	Records    int  `json:"records" yaml:"records"`
	Persistent bool `json:"persistent" yaml:"persistent"`
}

// Status answers HasData, AgeMinutes and IsFresh from a single read.
func (s *Store) Status(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{AgeMinutes: -1, Persistent: s.backend != nil}
	d, ok := s.readLocked(ctx)
	if ok {
		st.Records = len(d.Records)
		st.HasData = st.Records > 0
		st.AgeMinutes = s.age(d)
		st.Fresh = s.fresh(st.AgeMinutes)
	}
	metrics.SetSnapshotAge(st.AgeMinutes)
	return st
}

func (s *Store) report(op, message string, err error) {
	metrics.RecordStorageError(op)
	s.sink.Log(errorlog.Record{
		Kind:         errorlog.KindStorage,
		Message:      message,
		Details:      err,
		Timestamp:    s.now().UnixMilli(),
		UserFriendly: false,
	}, Source)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
