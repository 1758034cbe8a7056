// ABOUTME: In-memory fake of the Gmail and Calendar APIs for handler tests
// ABOUTME: Serves both APIs from one base URL, the way an ish server does

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	calendarapi "google.golang.org/api/calendar/v3"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/harper/mailcal-mcp/pkg/auth"
	"github.com/harper/mailcal-mcp/pkg/calendar"
	"github.com/harper/mailcal-mcp/pkg/directory"
	"github.com/harper/mailcal-mcp/pkg/gmail"
	"github.com/harper/mailcal-mcp/pkg/logging"
	"github.com/harper/mailcal-mcp/pkg/timezone"
)

const (
	teamCalendarID = "team@group.calendar.google.com"
	myCalendarID   = "mine@group.calendar.google.com"
)

var testNow = time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

type fakeGoogle struct {
	mu         sync.Mutex
	events     map[string]map[string]*calendarapi.Event
	messages   map[string]*gmailapi.Message
	sent       []string
	modified   map[string]*gmailapi.ModifyMessageRequest
	writes     int
	lastList   map[string]string
	calendars  []*calendarapi.CalendarListEntry
	failList   bool
	nextID     int
	lastUpdate *calendarapi.Event
}

func newFakeGoogle(t *testing.T) (*fakeGoogle, *httptest.Server) {
	t.Helper()

	f := &fakeGoogle{
		events: map[string]map[string]*calendarapi.Event{
			"primary": {
				"standup": {
					Id:          "standup",
					Summary:     "Standup",
					Description: "Daily sync",
					Location:    "Room 4",
					Start:       &calendarapi.EventDateTime{DateTime: "2025-03-20T01:00:00Z"},
					End:         &calendarapi.EventDateTime{DateTime: "2025-03-20T01:15:00Z"},
				},
			},
			teamCalendarID: {},
			myCalendarID:   {},
		},
		messages: map[string]*gmailapi.Message{
			"m1": {
				Id: "m1", ThreadId: "t1", Snippet: "Numbers attached", LabelIds: []string{"INBOX", "UNREAD"},
				Payload: &gmailapi.MessagePart{
					MimeType: "text/plain",
					Headers: []*gmailapi.MessagePartHeader{
						{Name: "From", Value: "alice@example.com"},
						{Name: "Subject", Value: "Quarterly report"},
					},
					Body: &gmailapi.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("Numbers attached."))},
				},
			},
		},
		modified: map[string]*gmailapi.ModifyMessageRequest{},
		calendars: []*calendarapi.CalendarListEntry{
			{Id: teamCalendarID, Summary: "Team Calendar"},
			{Id: myCalendarID, Summary: "my.calendar"},
		},
	}

	mux := http.NewServeMux()

	// Calendar API
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failList {
			writeError(w, http.StatusUnauthorized, "Invalid Credentials")
			return
		}
		writeJSON(w, http.StatusOK, &calendarapi.CalendarList{Items: f.calendars})
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		cal := r.PathValue("cal")
		f.lastList = map[string]string{
			"calendar": cal,
			"timeMin":  r.URL.Query().Get("timeMin"),
			"timeMax":  r.URL.Query().Get("timeMax"),
		}
		events, ok := f.events[cal]
		if !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		items := []*calendarapi.Event{}
		for _, e := range events {
			items = append(items, e)
		}
		writeJSON(w, http.StatusOK, &calendarapi.Events{Items: items})
	})
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var e calendarapi.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes++
		cal := r.PathValue("cal")
		if _, ok := f.events[cal]; !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		f.nextID++
		e.Id = fmt.Sprintf("evt%d", f.nextID)
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
		clone := *e
		writeJSON(w, http.StatusOK, &clone)
	})
	mux.HandleFunc("PUT /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		var e calendarapi.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes++
		cal, id := r.PathValue("cal"), r.PathValue("id")
		if _, ok := f.events[cal][id]; !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		e.Id = id
		f.events[cal][id] = &e
		f.lastUpdate = &e
		writeJSON(w, http.StatusOK, &e)
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes++
		cal, id := r.PathValue("cal"), r.PathValue("id")
		if _, ok := f.events[cal][id]; !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		delete(f.events[cal], id)
		w.WriteHeader(http.StatusNoContent)
	})

	// Gmail API
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		refs := []*gmailapi.Message{}
		for id, m := range f.messages {
			refs = append(refs, &gmailapi.Message{Id: id, ThreadId: m.ThreadId})
		}
		writeJSON(w, http.StatusOK, &gmailapi.ListMessagesResponse{Messages: refs})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		m, ok := f.messages[r.PathValue("id")]
		if !ok {
			writeError(w, http.StatusNotFound, "Requested entity was not found.")
			return
		}
		writeJSON(w, http.StatusOK, m)
	})
	mux.HandleFunc("POST /gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var m gmailapi.Message
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		raw, _ := base64.URLEncoding.DecodeString(m.Raw)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes++
		f.sent = append(f.sent, string(raw))
		writeJSON(w, http.StatusOK, &gmailapi.Message{Id: "sent1", ThreadId: "sent-thread", LabelIds: []string{"SENT"}})
	})
	mux.HandleFunc("POST /gmail/v1/users/me/messages/{id}/modify", func(w http.ResponseWriter, r *http.Request) {
		var req gmailapi.ModifyMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes++
		id := r.PathValue("id")
		if _, ok := f.messages[id]; !ok {
			writeError(w, http.StatusNotFound, "Requested entity was not found.")
			return
		}
		f.modified[id] = &req
		writeJSON(w, http.StatusOK, &gmailapi.Message{Id: id, LabelIds: req.AddLabelIds})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeGoogle) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
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

type testEnv struct {
	fake   *fakeGoogle
	server *Server
	logs   *bytes.Buffer
}

// newTestEnv builds a Server against the fake API with a pre-populated
// directory and a fixed clock.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake, httpSrv := newFakeGoogle(t)
	ctx := context.Background()
	endpoint := httpSrv.URL + "/"

	gmailSvc, err := gmail.NewService(ctx, httpSrv.Client(), gmail.WithEndpoint(endpoint))
	require.NoError(t, err)
	calendarSvc, err := calendar.NewService(ctx, httpSrv.Client(), calendar.WithEndpoint(endpoint))
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger := logging.New(logging.Options{Level: "debug", Format: "json", Output: logs})

	dir := directory.New(calendarSvc, directory.WithLogger(logger))
	require.NoError(t, dir.RefreshNow(ctx))

	s, err := New(Deps{
		Gmail:      gmailSvc,
		Calendar:   calendarSvc,
		Directory:  dir,
		Normalizer: timezone.Default(),
		Auth:       auth.NewFakeAuthenticator("alice"),
		Logger:     logger,
		Version:    "test",
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)

	return &testEnv{fake: fake, server: s, logs: logs}
}

// createMockRequest creates a mock CallToolRequest for testing
func createMockRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{
			Method: "tools/call",
		},
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// call invokes a registered tool through its instrumented handler.
func (e *testEnv) call(t *testing.T, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tool, ok := e.server.MCP().ListTools()[name]
	require.True(t, ok, "tool %s not registered", name)
	result, err := tool.Handler(context.Background(), createMockRequest(name, args))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, result.IsError, "unexpected tool error: %s", resultText(t, result))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), v))
}
