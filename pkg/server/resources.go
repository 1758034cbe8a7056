// ABOUTME: MCP resources exposing calendar and mail data
// ABOUTME: The calendar directory, today's events in the display zone and unread mail

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/mailcal-mcp/pkg/calendar"
)

// Resource URIs
const (
	ResourceDirectory = "mailcal://calendar/directory"
	ResourceToday     = "mailcal://calendar/today"
	ResourceUnread    = "mailcal://gmail/unread"
)

// registerResources registers all MCP resources
func (s *Server) registerResources() {
	s.mcp.AddResource(
		mcp.NewResource(
			ResourceDirectory,
			"Calendar Directory",
			mcp.WithResourceDescription("Calendars known to the name directory, with their IDs"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleDirectoryResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(
			ResourceToday,
			"Today's Calendar",
			mcp.WithResourceDescription("Primary calendar events for today in the display timezone"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleTodayCalendarResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(
			ResourceUnread,
			"Unread Emails",
			mcp.WithResourceDescription("Summary of unread emails"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleUnreadEmailsResource,
	)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// Resource handlers

func (s *Server) handleDirectoryResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, s.directorySnapshot())
}

// displayDay returns the bounds of the display-zone day containing now.
func (s *Server) displayDay() (time.Time, time.Time) {
	now := s.now().In(s.normalizer.DisplayZone())
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return startOfDay, startOfDay.AddDate(0, 0, 1)
}

func (s *Server) handleTodayCalendarResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	startOfDay, endOfDay := s.displayDay()

	events, err := s.calendar.ListEvents(ctx, calendar.PrimaryCalendar, calendar.EventQuery{
		TimeMin:    startOfDay.UTC().Format(time.RFC3339),
		TimeMax:    endOfDay.UTC().Format(time.RFC3339),
		MaxResults: 50,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch today's events: %w", err)
	}

	views := calendar.NewEventViews(events, s.normalizer, s.now())
	return jsonContents(request.Params.URI, map[string]interface{}{
		"date":         startOfDay.Format("2006-01-02"),
		"display_zone": s.normalizer.DisplayZone().String(),
		"event_count":  len(views),
		"events":       views,
	})
}

func (s *Server) handleUnreadEmailsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	messages, err := s.gmail.SearchMessages(ctx, "is:unread", 20)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unread emails: %w", err)
	}

	return jsonContents(request.Params.URI, map[string]interface{}{
		"unread_count": len(messages),
		"messages":     summaries(messages),
		"timestamp":    s.normalizer.Format(s.now()),
	})
}
