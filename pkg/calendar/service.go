// ABOUTME: Calendar API service for event management
// ABOUTME: Handles calendar listing, events, creation, updates and deletion

package calendar

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harper/mailcal-mcp/pkg/directory"
	"github.com/harper/mailcal-mcp/pkg/instrumentation"
	"github.com/harper/mailcal-mcp/pkg/ratelimit"
)

const (
	// PrimaryCalendar is the calendar ID used when none is given.
	PrimaryCalendar = "primary"

	// DefaultMaxResults is used when a caller asks for zero events.
	DefaultMaxResults = 10
	// MaxResultsLimit caps a single page.
	MaxResultsLimit = 250
)

// Service wraps Calendar API operations
type Service struct {
	svc     *calendar.Service
	metrics *instrumentation.Metrics
}

type options struct {
	endpoint string
	metrics  *instrumentation.Metrics
	limiter  *ratelimit.Limiter
}

// Option configures NewService.
type Option func(*options)

// WithEndpoint points the client at a fake Calendar API (ish mode) and
// disables Google authentication.
func WithEndpoint(baseURL string) Option {
	return func(o *options) {
		o.endpoint = baseURL
	}
}

// WithMetrics records every API call.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithRateLimiter throttles outgoing requests.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// NewService creates a new Calendar service
func NewService(ctx context.Context, client *http.Client, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []option.ClientOption{}

	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint))
		clientOpts = append(clientOpts, option.WithoutAuthentication())
		if client == nil {
			client = &http.Client{}
		}
	}

	if client != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(ratelimit.WrapClient(client, o.limiter)))
	}

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	return &Service{svc: svc, metrics: o.metrics}, nil
}

func (s *Service) track(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return instrumentation.TrackGoogleAPI(ctx, s.metrics, instrumentation.ServiceCalendar, op, fn)
}

func calendarOrPrimary(calendarID string) string {
	if calendarID == "" {
		return PrimaryCalendar
	}
	return calendarID
}

// ListCalendars returns the calendars visible to the account (single page).
// It satisfies directory.Lister.
func (s *Service) ListCalendars(ctx context.Context) ([]directory.Entry, error) {
	var list *calendar.CalendarList
	err := s.track(ctx, "calendarList.list", func(ctx context.Context) error {
		var err error
		list, err = s.svc.CalendarList.List().Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list calendars: %w", err)
	}

	entries := make([]directory.Entry, 0, len(list.Items))
	for _, item := range list.Items {
		name := item.SummaryOverride
		if name == "" {
			name = item.Summary
		}
		entries = append(entries, directory.Entry{ID: item.Id, DisplayName: name})
	}
	return entries, nil
}

// EventQuery narrows ListEvents. Times are RFC 3339 instants.
type EventQuery struct {
	TimeMin    string
	TimeMax    string
	MaxResults int64
	Query      string
}

// ClampMaxResults applies the default and the page cap.
func ClampMaxResults(n int64) int64 {
	if n <= 0 {
		return DefaultMaxResults
	}
	if n > MaxResultsLimit {
		return MaxResultsLimit
	}
	return n
}

// ListEvents lists single events ordered by start time
func (s *Service) ListEvents(ctx context.Context, calendarID string, q EventQuery) ([]*calendar.Event, error) {
	var events *calendar.Events
	err := s.track(ctx, "events.list", func(ctx context.Context) error {
		call := s.svc.Events.List(calendarOrPrimary(calendarID)).
			MaxResults(ClampMaxResults(q.MaxResults)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx)

		if q.TimeMin != "" {
			call = call.TimeMin(q.TimeMin)
		}
		if q.TimeMax != "" {
			call = call.TimeMax(q.TimeMax)
		}
		if q.Query != "" {
			call = call.Q(q.Query)
		}

		var err error
		events, err = call.Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list events: %w", err)
	}

	return events.Items, nil
}

// CreateEvent creates a new calendar event
func (s *Service) CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	var created *calendar.Event
	err := s.track(ctx, "events.insert", func(ctx context.Context) error {
		var err error
		created, err = s.svc.Events.Insert(calendarOrPrimary(calendarID), event).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create event: %w", err)
	}

	return created, nil
}

// GetEvent retrieves a specific event
func (s *Service) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event ID cannot be empty")
	}

	var event *calendar.Event
	err := s.track(ctx, "events.get", func(ctx context.Context) error {
		var err error
		event, err = s.svc.Events.Get(calendarOrPrimary(calendarID), eventID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get event: %w", err)
	}
	return event, nil
}

// UpdateEvent replaces an existing event
func (s *Service) UpdateEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event ID cannot be empty")
	}

	var updated *calendar.Event
	err := s.track(ctx, "events.update", func(ctx context.Context) error {
		var err error
		updated, err = s.svc.Events.Update(calendarOrPrimary(calendarID), eventID, event).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to update event: %w", err)
	}
	return updated, nil
}

// DeleteEvent deletes an event
func (s *Service) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("event ID cannot be empty")
	}

	err := s.track(ctx, "events.delete", func(ctx context.Context) error {
		return s.svc.Events.Delete(calendarOrPrimary(calendarID), eventID).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("unable to delete event: %w", err)
	}
	return nil
}
