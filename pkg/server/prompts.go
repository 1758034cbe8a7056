// ABOUTME: MCP prompt templates for common mail and calendar workflows
// ABOUTME: Prompts name the configured timezones and known calendars so agents pass unambiguous input

package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerPrompts registers all MCP prompts
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(
		mcp.NewPrompt(
			"email_triage",
			mcp.WithPromptDescription("Help triage and organize unread emails"),
			mcp.WithArgument("priority", mcp.ArgumentDescription("Priority level to focus on (urgent/all)")),
		),
		s.handleEmailTriagePrompt,
	)

	s.mcp.AddPrompt(
		mcp.NewPrompt(
			"schedule_meeting",
			mcp.WithPromptDescription("Find a free slot and create a calendar event"),
			mcp.WithArgument("duration", mcp.ArgumentDescription("Meeting duration in minutes (default: 30)")),
			mcp.WithArgument("attendees", mcp.ArgumentDescription("Comma-separated list of attendee emails")),
			mcp.WithArgument("calendar", mcp.ArgumentDescription("Calendar name or ID (default: primary)")),
		),
		s.handleScheduleMeetingPrompt,
	)

	s.mcp.AddPrompt(
		mcp.NewPrompt(
			"calendar_summary",
			mcp.WithPromptDescription("Summarize calendar events for a time period"),
			mcp.WithArgument("period", mcp.ArgumentDescription("Time period (today/tomorrow/this_week)")),
			mcp.WithArgument("calendar", mcp.ArgumentDescription("Calendar name or ID (default: primary)")),
		),
		s.handleCalendarSummaryPrompt,
	)
}

func promptArg(request mcp.GetPromptRequest, key, fallback string) string {
	if v, ok := request.Params.Arguments[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// knownCalendars lists directory names for prompt text.
func (s *Server) knownCalendars() string {
	entries := s.directory.Entries()
	if len(entries) == 0 {
		return "(calendar directory not loaded yet; use calendar_refresh_directory)"
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, fmt.Sprintf("%q", e.DisplayName))
	}
	return strings.Join(names, ", ")
}

func (s *Server) handleEmailTriagePrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	priority := promptArg(request, "priority", "all")

	query := "is:unread"
	if priority == "urgent" {
		query = "is:unread is:important"
	}

	promptText := fmt.Sprintf(`I'll help you triage your emails. Here's what I'll do:

1. **Search your %s unread emails** using gmail_search_messages with query: "%s"
2. **Read anything unclear** with gmail_get_message
3. **Sort each email** into: urgent, reply later, informational, or archive
4. **Apply labels** with gmail_modify_labels (remove UNREAD to mark as read, remove INBOX to archive)

**Important:** never delete email. Archive only.`, priority, query)

	messages := []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
	}

	return mcp.NewGetPromptResult("Email triage workflow to help organize your inbox", messages), nil
}

func (s *Server) handleScheduleMeetingPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	duration := promptArg(request, "duration", "30")
	attendees := promptArg(request, "attendees", "")
	cal := promptArg(request, "calendar", "primary")

	attendeeLine := ""
	if attendees != "" {
		attendeeLine = fmt.Sprintf("\n- Invite: %s (pass them in the attendees array)", attendees)
	}

	promptText := fmt.Sprintf(`I'll help you schedule a %s minute meeting on the %q calendar.

1. **Check availability** for the next 7 days with calendar_list_events (calendar_id: %q)
2. **Propose 3 free slots** that avoid conflicts and leave a 15 minute buffer
3. **Create the event** with calendar_create_event once you choose%s

**Timezones:**
- Times without a UTC offset are read as %s
- Event times are shown in %s
- Add an explicit offset (e.g. 2025-03-20T10:00:00+01:00) when scheduling in another zone

Known calendars: %s`,
		duration, cal, cal, attendeeLine,
		s.normalizer.ImplicitZone(), s.normalizer.DisplayZone(), s.knownCalendars())

	messages := []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
	}

	return mcp.NewGetPromptResult("Meeting scheduling assistant", messages), nil
}

func (s *Server) handleCalendarSummaryPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	period := promptArg(request, "period", "today")
	cal := promptArg(request, "calendar", "primary")

	start, _ := s.displayDay()
	var from, to string
	switch period {
	case "tomorrow":
		from, to = start.AddDate(0, 0, 1).Format("2006-01-02T15:04"), start.AddDate(0, 0, 2).Format("2006-01-02T15:04")
	case "this_week":
		from, to = start.Format("2006-01-02T15:04"), start.AddDate(0, 0, 7).Format("2006-01-02T15:04")
	default:
		period = "today"
		from, to = start.Format("2006-01-02T15:04"), start.AddDate(0, 0, 1).Format("2006-01-02T15:04")
	}

	promptText := fmt.Sprintf(`Summarize my calendar for %s.

1. Call calendar_list_events with calendar_id %q, time_min %q and time_max %q (read as %s)
2. Group events by day and flag overlaps
3. Point out gaps longer than an hour`,
		period, cal, from, to, s.normalizer.ImplicitZone())

	messages := []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
	}

	return mcp.NewGetPromptResult(fmt.Sprintf("Calendar summary for %s", period), messages), nil
}
