// Package errorlog is the structured error sink used by the fallback store.
// Sinks are fire-and-forget: a sink's own failures are never reported back
// to the caller.
package errorlog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind is a fixed error category.
type Kind string

// KindStorage covers every persistence backend failure.
const KindStorage Kind = "storage"

// Record is one structured error report.
type Record struct {
	Kind         Kind
	Message      string
	Details      error
	Timestamp    int64 // epoch milliseconds
	UserFriendly bool
}

// Time returns the record timestamp as a time.Time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Sink accepts error records tagged with the originating subsystem.
type Sink interface {
	Log(rec Record, source string)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(rec Record, source string)

// Log calls f(rec, source).
func (f SinkFunc) Log(rec Record, source string) { f(rec, source) }

// Discard drops every record.
var Discard Sink = SinkFunc(func(Record, string) {})

type slogSink struct {
	logger func() *slog.Logger
}

// NewSlogSink returns a sink writing records at Error level to l.
func NewSlogSink(l *slog.Logger) Sink {
	return &slogSink{logger: func() *slog.Logger { return l }}
}

// NewSlogSinkFunc resolves the logger on every record, so a sink built
// before the logger is reconfigured still picks up the new one.
func NewSlogSinkFunc(get func() *slog.Logger) Sink {
	return &slogSink{logger: get}
}

func (s *slogSink) Log(rec Record, source string) {
	l := s.logger()
	if l == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("kind", string(rec.Kind)),
		slog.String("source", source),
		slog.Bool("user_friendly", rec.UserFriendly),
		slog.Time("timestamp", rec.Time()),
	}
	if rec.Details != nil {
		attrs = append(attrs, slog.String("error", rec.Details.Error()))
	}
	l.LogAttrs(context.Background(), slog.LevelError, rec.Message, attrs...)
}

// Multi fans a record out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return SinkFunc(func(rec Record, source string) {
		for _, s := range out {
			s.Log(rec, source)
		}
	})
}

// Entry is a record captured by Recorder together with its source tag.
type Entry struct {
	Record
	Source string
}

// Recorder keeps the most recent records in memory.
// It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
}

// NewRecorder keeps at most limit entries; limit <= 0 means unbounded.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Log(rec Record, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Record: rec, Source: source})
	if r.limit > 0 && len(r.entries) > r.limit {
		r.entries = append([]Entry(nil), r.entries[len(r.entries)-r.limit:]...)
	}
}

// Entries returns a copy of the captured entries, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len reports how many entries are held.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset drops every captured entry.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}
