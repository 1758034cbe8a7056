// ABOUTME: Event construction and display-zone views of calendar events
// ABOUTME: Timed events carry UTC instants; all-day events carry plain dates

package calendar

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"google.golang.org/api/calendar/v3"

	"github.com/harper/mailcal-mcp/pkg/timezone"
)

const dateLayout = "2006-01-02"

// IsDate reports whether s is a plain YYYY-MM-DD date.
func IsDate(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// TimedSlot returns an event time for a UTC instant.
func TimedSlot(utc string) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: utc, TimeZone: "UTC"}
}

// AllDaySlot returns an event time for a whole day.
func AllDaySlot(date string) *calendar.EventDateTime {
	return &calendar.EventDateTime{Date: strings.TrimSpace(date)}
}

// Attendees converts addresses into event attendees, skipping blanks.
func Attendees(emails []string) []*calendar.EventAttendee {
	var out []*calendar.EventAttendee
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		out = append(out, &calendar.EventAttendee{Email: e})
	}
	return out
}

// EventView is the agent-facing rendering of an event. Start and End are in
// the display zone.
type EventView struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	AllDay      bool     `json:"all_day,omitempty"`
	Starts      string   `json:"starts,omitempty"`
	Status      string   `json:"status,omitempty"`
	Link        string   `json:"link,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
}

// NewEventView renders event for display. now anchors the relative
// start description.
func NewEventView(event *calendar.Event, n *timezone.Normalizer, now time.Time) EventView {
	v := EventView{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		Link:        event.HtmlLink,
	}

	if event.Start != nil {
		v.Start, v.AllDay = renderSlot(event.Start, n)
		if start, err := slotTime(event.Start, n); err == nil {
			v.Starts = humanize.RelTime(start, now, "ago", "from now")
		}
	}
	if event.End != nil {
		v.End, _ = renderSlot(event.End, n)
	}

	for _, a := range event.Attendees {
		if a.Email != "" {
			v.Attendees = append(v.Attendees, a.Email)
		}
	}

	return v
}

func renderSlot(slot *calendar.EventDateTime, n *timezone.Normalizer) (string, bool) {
	if slot.DateTime == "" {
		return slot.Date, slot.Date != ""
	}
	out, err := n.ToDisplayZone(slot.DateTime)
	if err != nil {
		return slot.DateTime, false
	}
	return out, false
}

func slotTime(slot *calendar.EventDateTime, n *timezone.Normalizer) (time.Time, error) {
	if slot.DateTime != "" {
		return n.Parse(slot.DateTime)
	}
	return n.Parse(slot.Date)
}

// NewEventViews renders a list of events.
func NewEventViews(events []*calendar.Event, n *timezone.Normalizer, now time.Time) []EventView {
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, NewEventView(e, n, now))
	}
	return views
}
