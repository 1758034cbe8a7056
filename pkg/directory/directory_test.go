// ABOUTME: Tests for the calendar directory and name resolver
// ABOUTME: Covers matching order, collisions, refresh failure and concurrent reads

package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/harper/mailcal-mcp/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRefresh struct {
	status string
	size   int
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedRefresh
}

func (f *fakeRecorder) RecordDirectoryRefresh(_ context.Context, status string, size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedRefresh{status: status, size: size})
}

func newTestDirectory(t *testing.T, entries []Entry) *Directory {
	t.Helper()
	d := New(ListerFunc(func(context.Context) ([]Entry, error) {
		return entries, nil
	}), WithLogger(logging.Discard()))
	require.NoError(t, d.RefreshNow(context.Background()))
	return d
}

func TestResolve_EveryDisplayNameCaseInsensitive(t *testing.T) {
	entries := []Entry{
		{ID: "primary-id", DisplayName: "Harper Reed"},
		{ID: "work@group.calendar.google.com", DisplayName: "Work"},
		{ID: "family@group.calendar.google.com", DisplayName: "Family Events"},
		{ID: "jp.holidays@group.v.calendar.google.com", DisplayName: "Holidays in Japan"},
	}
	d := newTestDirectory(t, entries)

	for _, e := range entries {
		assert.Equal(t, e.ID, d.Resolve(e.DisplayName), e.DisplayName)
		assert.Equal(t, e.ID, d.Resolve(strings.ToUpper(e.DisplayName)), e.DisplayName)
	}
}

func TestResolve_PeriodAndWhitespaceVariants(t *testing.T) {
	t.Run("period stripped", func(t *testing.T) {
		d := newTestDirectory(t, []Entry{{ID: "cal-dotted", DisplayName: "my.calendar"}})
		assert.Equal(t, "cal-dotted", d.Resolve("My Calendar"))
		assert.Equal(t, "cal-dotted", d.Resolve("mycalendar"))
	})

	t.Run("extra whitespace", func(t *testing.T) {
		d := newTestDirectory(t, []Entry{{ID: "cal-spaced", DisplayName: "My  Calendar"}})
		assert.Equal(t, "cal-spaced", d.Resolve("My Calendar"))
	})

	t.Run("periods in input", func(t *testing.T) {
		d := newTestDirectory(t, []Entry{{ID: "cal-plain", DisplayName: "Team Sync"}})
		assert.Equal(t, "cal-plain", d.Resolve("Team.Sync"))
	})
}

func TestResolve_UnmatchedPassesThrough(t *testing.T) {
	d := newTestDirectory(t, []Entry{{ID: "work-id", DisplayName: "Work"}})

	assert.Equal(t, "nonexistent-id-123", d.Resolve("nonexistent-id-123"))
	assert.Equal(t, "primary", d.Resolve("primary"))
	assert.Equal(t, "", d.Resolve(""))
}

func TestResolve_EmptyDirectory(t *testing.T) {
	d := New(nil)
	assert.Equal(t, "Work", d.Resolve("Work"))
	assert.False(t, d.Populated())
}

func TestResolve_Substring(t *testing.T) {
	d := newTestDirectory(t, []Entry{
		{ID: "standup-id", DisplayName: "Engineering Standup"},
		{ID: "eng-id", DisplayName: "Engineering"},
	})

	// key contains input: first key in insertion order wins
	assert.Equal(t, "standup-id", d.Resolve("standup"))
	// input contains key
	assert.Equal(t, "eng-id", d.Resolve("Engineering"))
	assert.Equal(t, "standup-id", d.Resolve("the engineering standup calendar"))
}

func TestResolve_FirstSubstringMatchWins(t *testing.T) {
	d := newTestDirectory(t, []Entry{
		{ID: "first", DisplayName: "Project Alpha"},
		{ID: "second", DisplayName: "Project Beta"},
	})

	assert.Equal(t, "first", d.Resolve("project"))
}

func TestIndex_LastWriteWins(t *testing.T) {
	d := newTestDirectory(t, []Entry{
		{ID: "old", DisplayName: "Shared"},
		{ID: "new", DisplayName: "shared"},
	})

	assert.Equal(t, "new", d.Resolve("Shared"))
	assert.Equal(t, []string{"shared"}, d.Keys())
	assert.Equal(t, 2, d.Len())
}

func TestIndex_RewrittenKeyKeepsPosition(t *testing.T) {
	d := newTestDirectory(t, []Entry{
		{ID: "a", DisplayName: "a.b"},
		{ID: "c", DisplayName: "Other"},
		{ID: "d", DisplayName: "ab"},
	})

	// "ab" was first inserted as the period-stripped variant of "a.b"
	assert.Equal(t, []string{"a.b", "ab", "other"}, d.Keys())
	assert.Equal(t, "d", d.Resolve("ab"))
	assert.Equal(t, "a", d.Resolve("a.b"))
}

func TestIndex_SkipsIncompleteEntries(t *testing.T) {
	d := newTestDirectory(t, []Entry{
		{ID: "", DisplayName: "No ID"},
		{ID: "no-name", DisplayName: ""},
		{ID: "ok", DisplayName: "Fine"},
	})

	assert.Equal(t, 1, d.Len())
	assert.Equal(t, "No ID", d.Resolve("No ID"))
	assert.Equal(t, "ok", d.Resolve("fine"))
}

func TestRefresh_FailureKeepsPreviousIndex(t *testing.T) {
	var fail atomic.Bool
	rec := &fakeRecorder{}
	d := New(ListerFunc(func(context.Context) ([]Entry, error) {
		if fail.Load() {
			return nil, errors.New("calendar API unavailable")
		}
		return []Entry{{ID: "work-id", DisplayName: "Work"}}, nil
	}), WithLogger(logging.Discard()), WithRecorder(rec))

	d.Refresh(context.Background())
	require.True(t, d.Populated())
	refreshedAt := d.RefreshedAt()

	fail.Store(true)
	d.Refresh(context.Background())
	assert.Equal(t, "work-id", d.Resolve("Work"))
	assert.Equal(t, refreshedAt, d.RefreshedAt())

	err := d.RefreshNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calendar API unavailable")
	assert.Equal(t, "work-id", d.Resolve("Work"))

	require.Len(t, rec.records, 3)
	assert.Equal(t, recordedRefresh{status: logging.StatusSuccess, size: 1}, rec.records[0])
	assert.Equal(t, recordedRefresh{status: logging.StatusError, size: 1}, rec.records[1])
}

func TestRefresh_FirstFailureLeavesEmptyIndex(t *testing.T) {
	d := New(ListerFunc(func(context.Context) ([]Entry, error) {
		return nil, errors.New("unauthorized")
	}), WithLogger(logging.Discard()))

	d.Refresh(context.Background())

	assert.False(t, d.Populated())
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, "Work", d.Resolve("Work"))
}

func TestRefresh_ReplacesIndexWholesale(t *testing.T) {
	calls := 0
	d := New(ListerFunc(func(context.Context) ([]Entry, error) {
		calls++
		if calls == 1 {
			return []Entry{{ID: "old-id", DisplayName: "Old"}}, nil
		}
		return []Entry{{ID: "new-id", DisplayName: "New"}}, nil
	}), WithLogger(logging.Discard()))

	d.Refresh(context.Background())
	assert.Equal(t, "old-id", d.Resolve("Old"))

	d.Refresh(context.Background())
	assert.Equal(t, "Old", d.Resolve("Old"))
	assert.Equal(t, "new-id", d.Resolve("New"))
}

func TestNewStatic(t *testing.T) {
	entries := []Entry{{ID: "static-id", DisplayName: "Static"}}
	d := NewStatic(entries)
	entries[0].ID = "mutated"

	assert.True(t, d.Populated())
	assert.Equal(t, "static-id", d.Resolve("static"))

	require.NoError(t, d.RefreshNow(context.Background()))
	assert.Equal(t, "static-id", d.Resolve("static"))
}

func TestEntries_ReturnsCopy(t *testing.T) {
	d := NewStatic([]Entry{{ID: "x", DisplayName: "X"}})

	got := d.Entries()
	got[0].ID = "changed"

	assert.Equal(t, "x", d.Entries()[0].ID)
}

func TestResolve_ConcurrentWithRefresh(t *testing.T) {
	var gen atomic.Int64
	d := New(ListerFunc(func(context.Context) ([]Entry, error) {
		n := gen.Add(1)
		return []Entry{
			{ID: "stable-id", DisplayName: "Stable"},
			{ID: fmt.Sprintf("gen-%d", n), DisplayName: fmt.Sprintf("Generation %d", n)},
		}, nil
	}), WithLogger(logging.Discard()))
	d.Refresh(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				d.Refresh(context.Background())
			}
		}()
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				assert.Equal(t, "stable-id", d.Resolve("Stable"))
			}
		}()
	}
	wg.Wait()
}
