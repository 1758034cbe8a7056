// ABOUTME: Calendar tool definitions and handlers
// ABOUTME: Calendar names are resolved through the directory; times are normalized to UTC before writes

package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	calendarapi "google.golang.org/api/calendar/v3"

	"github.com/harper/mailcal-mcp/pkg/calendar"
	"github.com/harper/mailcal-mcp/pkg/directory"
	"github.com/harper/mailcal-mcp/pkg/logging"
	"github.com/harper/mailcal-mcp/pkg/timezone"
)

var calendarIDProperty = map[string]string{
	"type":        "string",
	"description": "Calendar ID or display name (e.g., 'Team Calendar'); defaults to primary",
}

func (s *Server) registerCalendarTools() {
	timeHint := fmt.Sprintf("without a UTC offset the time is read as %s", s.normalizer.ImplicitZone())

	s.mcp.AddTool(mcp.Tool{
		Name:        "calendar_list_events",
		Description: "List calendar events ordered by start time. Times are shown in the display timezone.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"calendar_id": calendarIDProperty,
				"time_min":    map[string]string{"type": "string", "description": "Start of range, ISO 8601; " + timeHint},
				"time_max":    map[string]string{"type": "string", "description": "End of range, ISO 8601; " + timeHint},
				"max_results": map[string]string{"type": "integer", "description": "Maximum number of events to return (default: 10)"},
				"query":       map[string]string{"type": "string", "description": "Free text search over event fields"},
			},
		},
	}, s.instrumented("calendar_list_events", s.handleCalendarListEvents))

	s.mcp.AddTool(mcp.Tool{
		Name:        "calendar_create_event",
		Description: "Create a calendar event. Two plain dates (YYYY-MM-DD) create an all-day event.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"calendar_id": calendarIDProperty,
				"summary":     map[string]string{"type": "string", "description": "Event title"},
				"start_time":  map[string]string{"type": "string", "description": "Start, ISO 8601; " + timeHint},
				"end_time":    map[string]string{"type": "string", "description": "End, ISO 8601; must be after start_time"},
				"description": map[string]string{"type": "string", "description": "Event description"},
				"location":    map[string]string{"type": "string", "description": "Event location"},
				"attendees": map[string]interface{}{
					"type":        "array",
					"items":       map[string]string{"type": "string"},
					"description": "Attendee email addresses",
				},
			},
			Required: []string{"summary", "start_time", "end_time"},
		},
	}, s.instrumented("calendar_create_event", s.handleCalendarCreateEvent))

	s.mcp.AddTool(mcp.Tool{
		Name:        "calendar_update_event",
		Description: "Update fields of an existing event. Omitted fields are kept.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"calendar_id": calendarIDProperty,
				"event_id":    map[string]string{"type": "string", "description": "The event ID to update"},
				"summary":     map[string]string{"type": "string", "description": "New event title"},
				"description": map[string]string{"type": "string", "description": "New event description"},
				"location":    map[string]string{"type": "string", "description": "New event location"},
				"start_time":  map[string]string{"type": "string", "description": "New start, ISO 8601; " + timeHint},
				"end_time":    map[string]string{"type": "string", "description": "New end, ISO 8601"},
			},
			Required: []string{"event_id"},
		},
	}, s.instrumented("calendar_update_event", s.handleCalendarUpdateEvent))

	s.mcp.AddTool(mcp.Tool{
		Name:        "calendar_delete_event",
		Description: "Delete a calendar event",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"calendar_id": calendarIDProperty,
				"event_id":    map[string]string{"type": "string", "description": "The event ID to delete"},
			},
			Required: []string{"event_id"},
		},
	}, s.instrumented("calendar_delete_event", s.handleCalendarDeleteEvent))

	s.mcp.AddTool(mcp.Tool{
		Name:        "calendar_list_calendars",
		Description: "List the calendars known to the name directory",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.instrumented("calendar_list_calendars", s.handleCalendarListCalendars))

	s.mcp.AddTool(mcp.Tool{
		Name:        "calendar_refresh_directory",
		Description: "Re-fetch the calendar list and rebuild the name directory",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.instrumented("calendar_refresh_directory", s.handleCalendarRefreshDirectory))
}

// resolveCalendar maps the calendar_id argument through the directory.
func (s *Server) resolveCalendar(ctx context.Context, request mcp.CallToolRequest) string {
	input := request.GetString("calendar_id", "")
	if input == "" {
		return calendar.PrimaryCalendar
	}

	resolved := s.directory.Resolve(input)
	if resolved != input {
		s.loggerFrom(ctx).Debug("calendar name resolved",
			slog.String("input", input),
			logging.Calendar(resolved))
	}
	return resolved
}

// EventList is the response for calendar_list_events.
type EventList struct {
	CalendarID  string               `json:"calendar_id"`
	DisplayZone string               `json:"display_zone"`
	Count       int                  `json:"count"`
	Events      []calendar.EventView `json:"events"`
}

func (s *Server) handleCalendarListEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	calendarID := s.resolveCalendar(ctx, request)

	limit, err := maxResults(request, calendar.DefaultMaxResults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := calendar.EventQuery{
		MaxResults: limit,
		Query:      request.GetString("query", ""),
	}

	if v := request.GetString("time_min", ""); v != "" {
		if query.TimeMin, err = s.normalizer.ToUTC(v); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid time_min: %v", err)), nil
		}
	}
	if v := request.GetString("time_max", ""); v != "" {
		if query.TimeMax, err = s.normalizer.ToUTC(v); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid time_max: %v", err)), nil
		}
	}
	if query.TimeMin != "" && query.TimeMax != "" {
		if err := timezone.ValidateRange(query.TimeMin, query.TimeMax); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid time range: %v", err)), nil
		}
	}

	events, err := s.calendar.ListEvents(ctx, calendarID, query)
	if err != nil {
		return apiError(err), nil
	}

	views := calendar.NewEventViews(events, s.normalizer, s.now())
	return mcp.NewToolResultJSON(EventList{
		CalendarID:  calendarID,
		DisplayZone: s.normalizer.DisplayZone().String(),
		Count:       len(views),
		Events:      views,
	})
}

// eventSlots normalizes a start/end pair. Two plain dates give an all-day
// event; anything else is converted to UTC instants. end must be after start.
func (s *Server) eventSlots(start, end string) (*calendarapi.EventDateTime, *calendarapi.EventDateTime, error) {
	startUTC, endUTC, err := s.normalizer.NormalizeRange(start, end)
	if err != nil {
		return nil, nil, err
	}
	if calendar.IsDate(start) && calendar.IsDate(end) {
		return calendar.AllDaySlot(start), calendar.AllDaySlot(end), nil
	}
	return calendar.TimedSlot(startUTC), calendar.TimedSlot(endUTC), nil
}

func (s *Server) handleCalendarCreateEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := request.RequireString("summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	startTime, err := request.RequireString("start_time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	endTime, err := request.RequireString("end_time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	attendees, err := stringList(request, "attendees")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Validate times before any write.
	start, end, err := s.eventSlots(startTime, endTime)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid event time: %v", err)), nil
	}

	calendarID := s.resolveCalendar(ctx, request)

	event := &calendarapi.Event{
		Summary:     summary,
		Description: request.GetString("description", ""),
		Location:    request.GetString("location", ""),
		Start:       start,
		End:         end,
		Attendees:   calendar.Attendees(attendees),
	}

	created, err := s.calendar.CreateEvent(ctx, calendarID, event)
	if err != nil {
		return apiError(err), nil
	}

	return mcp.NewToolResultJSON(calendar.NewEventView(created, s.normalizer, s.now()))
}

// slotInput returns the user-facing value of an existing event time.
func slotInput(slot *calendarapi.EventDateTime) string {
	if slot == nil {
		return ""
	}
	if slot.DateTime != "" {
		return slot.DateTime
	}
	return slot.Date
}

func (s *Server) handleCalendarUpdateEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eventID, err := request.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary := request.GetString("summary", "")
	description := request.GetString("description", "")
	location := request.GetString("location", "")
	startTime := request.GetString("start_time", "")
	endTime := request.GetString("end_time", "")

	if summary == "" && description == "" && location == "" && startTime == "" && endTime == "" {
		return mcp.NewToolResultError("nothing to update: provide summary, description, location, start_time or end_time"), nil
	}

	// Reject unparseable input before touching the API.
	for name, v := range map[string]string{"start_time": startTime, "end_time": endTime} {
		if v == "" {
			continue
		}
		if _, err := s.normalizer.ToUTC(v); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid %s: %v", name, err)), nil
		}
	}

	calendarID := s.resolveCalendar(ctx, request)

	event, err := s.calendar.GetEvent(ctx, calendarID, eventID)
	if err != nil {
		return apiError(err), nil
	}

	if summary != "" {
		event.Summary = summary
	}
	if description != "" {
		event.Description = description
	}
	if location != "" {
		event.Location = location
	}

	if startTime != "" || endTime != "" {
		newStart, newEnd := startTime, endTime
		if newStart == "" {
			newStart = slotInput(event.Start)
		}
		if newEnd == "" {
			newEnd = slotInput(event.End)
		}
		if newStart == "" || newEnd == "" {
			return mcp.NewToolResultError("event has no existing start or end; provide both start_time and end_time"), nil
		}

		start, end, err := s.eventSlots(newStart, newEnd)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid event time: %v", err)), nil
		}
		event.Start, event.End = start, end
	}

	updated, err := s.calendar.UpdateEvent(ctx, calendarID, eventID, event)
	if err != nil {
		return apiError(err), nil
	}

	return mcp.NewToolResultJSON(calendar.NewEventView(updated, s.normalizer, s.now()))
}

func (s *Server) handleCalendarDeleteEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eventID, err := request.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	calendarID := s.resolveCalendar(ctx, request)

	if err := s.calendar.DeleteEvent(ctx, calendarID, eventID); err != nil {
		return apiError(err), nil
	}

	return mcp.NewToolResultJSON(map[string]interface{}{
		"deleted":     true,
		"calendar_id": calendarID,
		"event_id":    eventID,
	})
}

// DirectorySnapshot describes the calendar directory.
type DirectorySnapshot struct {
	Populated   bool              `json:"populated"`
	RefreshedAt string            `json:"refreshed_at,omitempty"`
	Refreshed   string            `json:"refreshed,omitempty"`
	Count       int               `json:"count"`
	Calendars   []directory.Entry `json:"calendars"`
}

func (s *Server) directorySnapshot() DirectorySnapshot {
	snap := DirectorySnapshot{
		Populated: s.directory.Populated(),
		Calendars: s.directory.Entries(),
	}
	if snap.Calendars == nil {
		snap.Calendars = []directory.Entry{}
	}
	snap.Count = len(snap.Calendars)
	if at := s.directory.RefreshedAt(); !at.IsZero() {
		snap.RefreshedAt = s.normalizer.Format(at)
		snap.Refreshed = humanize.RelTime(at, s.now(), "ago", "from now")
	}
	return snap
}

func (s *Server) handleCalendarListCalendars(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(s.directorySnapshot())
}

func (s *Server) handleCalendarRefreshDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.directory.RefreshNow(ctx); err != nil {
		kept := s.directory.Len()
		return mcp.NewToolResultError(fmt.Sprintf("%v; keeping previous directory with %d calendars", err, kept)), nil
	}
	return mcp.NewToolResultJSON(s.directorySnapshot())
}
