// ABOUTME: In-memory calendar directory mapping display names to calendar IDs
// ABOUTME: Rebuilt wholesale on refresh and swapped atomically for lock-free reads

package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/harper/mailcal-mcp/pkg/logging"
)

// Entry is one calendar visible to the account.
type Entry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Lister fetches the calendars visible to the account (a single page).
type Lister interface {
	ListCalendars(ctx context.Context) ([]Entry, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context) ([]Entry, error)

// ListCalendars calls f(ctx).
func (f ListerFunc) ListCalendars(ctx context.Context) ([]Entry, error) {
	return f(ctx)
}

// Recorder receives refresh outcomes, typically for metrics.
type Recorder interface {
	RecordDirectoryRefresh(ctx context.Context, status string, size int)
}

// index is an immutable snapshot. keys preserves first-insertion order.
type index struct {
	ids         map[string]string
	keys        []string
	entries     []Entry
	refreshedAt time.Time
}

var emptyIndex = &index{ids: map[string]string{}}

// Directory owns the current name index. Refresh may run concurrently with
// Resolve; readers always see a complete snapshot.
type Directory struct {
	lister   Lister
	logger   *slog.Logger
	recorder Recorder
	current  atomic.Pointer[index]
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the logger used for refresh outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder sets the refresh outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Directory) {
		d.recorder = r
	}
}

// New creates an empty Directory backed by lister.
func New(lister Lister, opts ...Option) *Directory {
	d := &Directory{
		lister: lister,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.current.Store(emptyIndex)
	return d
}

// NewStatic creates a populated Directory from fixed entries. Refreshing it
// rebuilds the same index.
func NewStatic(entries []Entry, opts ...Option) *Directory {
	fixed := append([]Entry(nil), entries...)
	d := New(ListerFunc(func(context.Context) ([]Entry, error) {
		return fixed, nil
	}), opts...)
	d.current.Store(build(fixed, time.Now()))
	return d
}

// Refresh rebuilds the index from the lister. A failure is logged and the
// previous index is kept; it is never retried automatically.
func (d *Directory) Refresh(ctx context.Context) {
	_ = d.RefreshNow(ctx)
}

// RefreshNow rebuilds the index and reports a failure to the caller. The
// previous index is kept on failure.
func (d *Directory) RefreshNow(ctx context.Context) error {
	if d.lister == nil {
		return fmt.Errorf("calendar directory has no lister")
	}

	entries, err := d.lister.ListCalendars(ctx)
	if err != nil {
		d.logger.Error("calendar directory refresh failed",
			logging.Operation("directory_refresh"),
			logging.Status(logging.StatusError),
			logging.Err(err),
			slog.Int("kept_entries", d.Len()))
		d.record(ctx, logging.StatusError)
		return fmt.Errorf("unable to refresh calendar directory: %w", err)
	}

	next := build(entries, time.Now())
	d.current.Store(next)

	d.logger.Info("calendar directory refreshed",
		logging.Operation("directory_refresh"),
		logging.Status(logging.StatusSuccess),
		slog.Int("calendars", len(next.entries)),
		slog.Int("keys", len(next.keys)))
	d.record(ctx, logging.StatusSuccess)
	return nil
}

func (d *Directory) record(ctx context.Context, status string) {
	if d.recorder != nil {
		d.recorder.RecordDirectoryRefresh(ctx, status, d.Len())
	}
}

// Entries returns a copy of the calendars in the current snapshot.
func (d *Directory) Entries() []Entry {
	return append([]Entry(nil), d.current.Load().entries...)
}

// Len returns the number of calendars in the current snapshot.
func (d *Directory) Len() int {
	return len(d.current.Load().entries)
}

// Populated reports whether a refresh has succeeded at least once.
func (d *Directory) Populated() bool {
	return !d.current.Load().refreshedAt.IsZero()
}

// RefreshedAt returns the time of the last successful refresh.
func (d *Directory) RefreshedAt() time.Time {
	return d.current.Load().refreshedAt
}

// Keys returns the index keys in insertion order.
func (d *Directory) Keys() []string {
	return append([]string(nil), d.current.Load().keys...)
}

func build(entries []Entry, at time.Time) *index {
	idx := &index{
		ids:         make(map[string]string, len(entries)*3),
		refreshedAt: at,
	}

	for _, e := range entries {
		if e.ID == "" || e.DisplayName == "" {
			continue
		}
		idx.entries = append(idx.entries, e)

		lower := strings.ToLower(e.DisplayName)
		for _, key := range []string{lower, stripPeriods(lower), stripSpace(lower)} {
			if key == "" {
				continue
			}
			if _, exists := idx.ids[key]; !exists {
				idx.keys = append(idx.keys, key)
			}
			// last write wins
			idx.ids[key] = e.ID
		}
	}

	return idx
}

func stripPeriods(s string) string {
	return strings.ReplaceAll(s, ".", "")
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
