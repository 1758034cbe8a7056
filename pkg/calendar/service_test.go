// ABOUTME: Tests for Calendar service
// ABOUTME: Runs calendar and event operations against a fake Calendar API

package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/harper/mailcal-mcp/pkg/directory"
	"github.com/harper/mailcal-mcp/pkg/instrumentation"
)

// fakeCalendar is a minimal in-memory Calendar API keyed by calendar ID.
type fakeCalendar struct {
	mu        sync.Mutex
	calendars []*calendar.CalendarListEntry
	events    map[string]map[string]*calendar.Event
	lastQuery map[string]string
	nextID    int
}

func newFakeCalendar(t *testing.T) (*fakeCalendar, *httptest.Server) {
	t.Helper()

	f := &fakeCalendar{
		calendars: []*calendar.CalendarListEntry{
			{Id: "alice@example.com", Summary: "alice@example.com", Primary: true},
			{Id: "team@group.calendar.google.com", Summary: "Team Calendar"},
			{Id: "holidays@group.v.calendar.google.com", Summary: "Holidays", SummaryOverride: "Public Holidays"},
		},
		events: map[string]map[string]*calendar.Event{
			"primary": {
				"e1": {
					Id:      "e1",
					Summary: "Standup",
					Start:   &calendar.EventDateTime{DateTime: "2025-03-20T01:00:00Z"},
					End:     &calendar.EventDateTime{DateTime: "2025-03-20T01:15:00Z"},
				},
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, &calendar.CalendarList{Items: f.calendars})
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastQuery = map[string]string{
			"calendar":     r.PathValue("cal"),
			"timeMin":      r.URL.Query().Get("timeMin"),
			"timeMax":      r.URL.Query().Get("timeMax"),
			"maxResults":   r.URL.Query().Get("maxResults"),
			"q":            r.URL.Query().Get("q"),
			"singleEvents": r.URL.Query().Get("singleEvents"),
			"orderBy":      r.URL.Query().Get("orderBy"),
		}
		items := []*calendar.Event{}
		for _, e := range f.events[r.PathValue("cal")] {
			items = append(items, e)
		}
		writeJSON(w, http.StatusOK, &calendar.Events{Items: items})
	})
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var e calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		e.Id = "created-" + string(rune('0'+f.nextID))
		cal := r.PathValue("cal")
		if f.events[cal] == nil {
			f.events[cal] = map[string]*calendar.Event{}
		}
		f.events[cal][e.Id] = &e
		writeJSON(w, http.StatusOK, &e)
	})
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		e, ok := f.events[r.PathValue("cal")][r.PathValue("id")]
		if !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, e)
	})
	mux.HandleFunc("PUT /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		var e calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		cal, id := r.PathValue("cal"), r.PathValue("id")
		if _, ok := f.events[cal][id]; !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		e.Id = id
		f.events[cal][id] = &e
		writeJSON(w, http.StatusOK, &e)
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		cal, id := r.PathValue("cal"), r.PathValue("id")
		if _, ok := f.events[cal][id]; !ok {
			writeError(w, http.StatusGone, "Resource has been deleted")
			return
		}
		delete(f.events[cal], id)
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}

func newTestService(t *testing.T, srv *httptest.Server) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), srv.Client(),
		WithEndpoint(srv.URL+"/"),
		WithMetrics(&instrumentation.Metrics{}))
	require.NoError(t, err)
	return svc
}

func TestNewService_WithEndpoint(t *testing.T) {
	svc, err := NewService(context.Background(), nil, WithEndpoint("http://localhost:9000/"))
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestService_ListCalendars(t *testing.T) {
	_, srv := newFakeCalendar(t)
	svc := newTestService(t, srv)

	entries, err := svc.ListCalendars(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []directory.Entry{
		{ID: "alice@example.com", DisplayName: "alice@example.com"},
		{ID: "team@group.calendar.google.com", DisplayName: "Team Calendar"},
		{ID: "holidays@group.v.calendar.google.com", DisplayName: "Public Holidays"},
	}, entries)
}

func TestService_ListCalendarsFeedsDirectory(t *testing.T) {
	_, srv := newFakeCalendar(t)
	svc := newTestService(t, srv)

	var _ directory.Lister = svc
	dir := directory.New(svc)
	require.NoError(t, dir.RefreshNow(context.Background()))

	assert.Equal(t, "team@group.calendar.google.com", dir.Resolve("team calendar"))
	assert.Equal(t, "holidays@group.v.calendar.google.com", dir.Resolve("Holidays"))
	assert.Equal(t, "primary", dir.Resolve("primary"))
}

func TestService_ListEvents(t *testing.T) {
	f, srv := newFakeCalendar(t)
	svc := newTestService(t, srv)

	events, err := svc.ListEvents(context.Background(), "", EventQuery{
		TimeMin: "2025-03-20T00:00:00Z",
		TimeMax: "2025-03-21T00:00:00Z",
		Query:   "standup",
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Summary)

	assert.Equal(t, "primary", f.lastQuery["calendar"])
	assert.Equal(t, "2025-03-20T00:00:00Z", f.lastQuery["timeMin"])
	assert.Equal(t, "2025-03-21T00:00:00Z", f.lastQuery["timeMax"])
	assert.Equal(t, "10", f.lastQuery["maxResults"])
	assert.Equal(t, "standup", f.lastQuery["q"])
	assert.Equal(t, "true", f.lastQuery["singleEvents"])
	assert.Equal(t, "startTime", f.lastQuery["orderBy"])
}

func TestService_EventLifecycle(t *testing.T) {
	f, srv := newFakeCalendar(t)
	svc := newTestService(t, srv)
	ctx := context.Background()
	calID := "team@group.calendar.google.com"

	created, err := svc.CreateEvent(ctx, calID, &calendar.Event{
		Summary:   "Planning",
		Start:     TimedSlot("2025-03-20T01:00:00Z"),
		End:       TimedSlot("2025-03-20T02:00:00Z"),
		Attendees: Attendees([]string{"bob@example.com", " "}),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.Id)
	assert.Len(t, f.events[calID], 1)
	assert.Len(t, created.Attendees, 1)

	got, err := svc.GetEvent(ctx, calID, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "Planning", got.Summary)

	got.Summary = "Planning (moved)"
	updated, err := svc.UpdateEvent(ctx, calID, created.Id, got)
	require.NoError(t, err)
	assert.Equal(t, "Planning (moved)", updated.Summary)

	require.NoError(t, svc.DeleteEvent(ctx, calID, created.Id))
	assert.Empty(t, f.events[calID])

	err = svc.DeleteEvent(ctx, calID, created.Id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to delete event")
}

func TestService_EmptyEventID(t *testing.T) {
	_, srv := newFakeCalendar(t)
	svc := newTestService(t, srv)
	ctx := context.Background()

	_, err := svc.GetEvent(ctx, "", "")
	assert.ErrorContains(t, err, "event ID cannot be empty")
	_, err = svc.UpdateEvent(ctx, "", "", &calendar.Event{})
	assert.ErrorContains(t, err, "event ID cannot be empty")
	assert.ErrorContains(t, svc.DeleteEvent(ctx, "", ""), "event ID cannot be empty")
}

func TestService_GetEventNotFound(t *testing.T) {
	_, srv := newFakeCalendar(t)
	svc := newTestService(t, srv)

	_, err := svc.GetEvent(context.Background(), "primary", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to get event")
}

func TestClampMaxResults(t *testing.T) {
	assert.Equal(t, int64(DefaultMaxResults), ClampMaxResults(0))
	assert.Equal(t, int64(50), ClampMaxResults(50))
	assert.Equal(t, int64(MaxResultsLimit), ClampMaxResults(1000))
}
