// ABOUTME: Gmail API service for email management
// ABOUTME: Handles listing, hydration, sending and label changes

package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/harper/mailcal-mcp/pkg/instrumentation"
	"github.com/harper/mailcal-mcp/pkg/ratelimit"
)

const (
	userID = "me"

	// DefaultMaxResults is used when a caller asks for zero results.
	DefaultMaxResults = 10
	// MaxResultsLimit caps a single page.
	MaxResultsLimit = 100

	hydrateConcurrency = 4
)

// Message formats accepted by GetMessage
const (
	FormatFull     = "full"
	FormatMetadata = "metadata"
)

var metadataHeaders = []string{"From", "To", "Cc", "Subject", "Date"}

// Service wraps Gmail API operations
type Service struct {
	svc     *gmail.Service
	metrics *instrumentation.Metrics
}

type options struct {
	endpoint string
	metrics  *instrumentation.Metrics
	limiter  *ratelimit.Limiter
}

// Option configures NewService.
type Option func(*options)

// WithEndpoint points the client at a fake Gmail API (ish mode) and
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

// NewService creates a new Gmail service
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

	svc, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return &Service{svc: svc, metrics: o.metrics}, nil
}

func (s *Service) track(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return instrumentation.TrackGoogleAPI(ctx, s.metrics, instrumentation.ServiceGmail, op, fn)
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

// ListMessages lists message IDs matching query (single page)
func (s *Service) ListMessages(ctx context.Context, query string, maxResults int64) ([]*gmail.Message, error) {
	var result *gmail.ListMessagesResponse
	err := s.track(ctx, "messages.list", func(ctx context.Context) error {
		call := s.svc.Users.Messages.List(userID).MaxResults(ClampMaxResults(maxResults)).Context(ctx)
		if query != "" {
			call = call.Q(query)
		}
		var err error
		result, err = call.Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	return result.Messages, nil
}

// GetMessage retrieves a specific message in the given format
func (s *Service) GetMessage(ctx context.Context, messageID, format string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("message ID cannot be empty")
	}
	if format == "" {
		format = FormatFull
	}

	var msg *gmail.Message
	err := s.track(ctx, "messages.get", func(ctx context.Context) error {
		call := s.svc.Users.Messages.Get(userID, messageID).Format(format).Context(ctx)
		if format == FormatMetadata {
			call = call.MetadataHeaders(metadataHeaders...)
		}
		var err error
		msg, err = call.Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get message: %w", err)
	}
	return msg, nil
}

// HydrateMessages fetches metadata for each listed message, preserving order.
func (s *Service) HydrateMessages(ctx context.Context, refs []*gmail.Message) ([]*gmail.Message, error) {
	out := make([]*gmail.Message, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			msg, err := s.GetMessage(ctx, ref.Id, FormatMetadata)
			if err != nil {
				return fmt.Errorf("message %s: %w", ref.Id, err)
			}
			out[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchMessages lists and hydrates messages matching query
func (s *Service) SearchMessages(ctx context.Context, query string, maxResults int64) ([]*gmail.Message, error) {
	refs, err := s.ListMessages(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	return s.HydrateMessages(ctx, refs)
}

// SendMessage sends an email. HTML bodies are detected and sent as text/html.
func (s *Service) SendMessage(ctx context.Context, draft Draft) (*gmail.Message, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	raw := buildMessage(draft)
	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}

	var sent *gmail.Message
	err := s.track(ctx, "messages.send", func(ctx context.Context) error {
		var err error
		sent, err = s.svc.Users.Messages.Send(userID, msg).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to send message: %w", err)
	}

	return sent, nil
}

// ModifyLabels adds and removes label IDs on a message
func (s *Service) ModifyLabels(ctx context.Context, messageID string, add, remove []string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("message ID cannot be empty")
	}
	if len(add) == 0 && len(remove) == 0 {
		return nil, fmt.Errorf("at least one label to add or remove is required")
	}

	req := &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}

	var msg *gmail.Message
	err := s.track(ctx, "messages.modify", func(ctx context.Context) error {
		var err error
		msg, err = s.svc.Users.Messages.Modify(userID, messageID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to modify labels: %w", err)
	}
	return msg, nil
}
