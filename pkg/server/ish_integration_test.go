// ABOUTME: End-to-end scenario against a running ish fake Google server
// ABOUTME: Skipped unless ISH_BASE_URL is set

package server

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/mailcal-mcp/pkg/calendar"
	"github.com/harper/mailcal-mcp/pkg/config"
	"github.com/harper/mailcal-mcp/pkg/logging"
)

func newISHServer(t *testing.T) *Server {
	t.Helper()

	baseURL := os.Getenv("ISH_BASE_URL")
	if baseURL == "" {
		t.Skip("ISH_BASE_URL not set; start ish and export ISH_BASE_URL to run")
	}

	cfg := config.Default()
	cfg.ISH.Enabled = true
	cfg.ISH.BaseURL = baseURL
	cfg.ISH.User = "testuser@example.com"

	s, err := NewFromConfig(context.Background(), cfg, nil, logging.Discard(), "test")
	require.NoError(t, err)
	return s
}

func TestISHScenario_ScheduleAndCleanUp(t *testing.T) {
	s := newISHServer(t)
	ctx := context.Background()

	require.NoError(t, s.Directory().RefreshNow(ctx))
	t.Logf("directory has %d calendars", s.Directory().Len())

	start := time.Now().Add(24 * time.Hour).In(s.Normalizer().DisplayZone()).Truncate(time.Hour)
	startInput := start.Format("2006-01-02T15:04:05")
	endInput := start.Add(30 * time.Minute).Format("2006-01-02T15:04:05")

	tool := s.MCP().ListTools()["calendar_create_event"]
	require.NotNil(t, tool)
	result, err := tool.Handler(ctx, createMockRequest("calendar_create_event", map[string]interface{}{
		"summary":    "ish scenario",
		"start_time": startInput,
		"end_time":   endInput,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var view calendar.EventView
	decodeResult(t, result, &view)
	assert.Equal(t, s.Normalizer().Format(start), view.Start)

	tool = s.MCP().ListTools()["calendar_delete_event"]
	result, err = tool.Handler(ctx, createMockRequest("calendar_delete_event", map[string]interface{}{
		"event_id": view.ID,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))
}

func TestISHScenario_EmailTriage(t *testing.T) {
	s := newISHServer(t)
	ctx := context.Background()

	tool := s.MCP().ListTools()["gmail_search_messages"]
	require.NotNil(t, tool)
	result, err := tool.Handler(ctx, createMockRequest("gmail_search_messages", map[string]interface{}{
		"query":       "is:unread",
		"max_results": 5,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var list summaryList
	decodeResult(t, result, &list)
	t.Logf("found %d unread messages", list.Count)
}
