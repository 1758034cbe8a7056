// ABOUTME: OAuth 2.0 authentication for Google APIs from a stored refresh token
// ABOUTME: Builds a refreshing token source and reports masked token status

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"

	"github.com/harper/mailcal-mcp/pkg/instrumentation"
	"github.com/harper/mailcal-mcp/pkg/logging"
)

// DefaultScopes cover reading, labelling and sending mail plus calendar access.
var DefaultScopes = []string{
	gmail.GmailModifyScope,
	gmail.GmailLabelsScope,
	calendar.CalendarScope,
}

// Modes reported by TokenInfo
const (
	ModeOAuth = "oauth"
	ModeISH   = "ish"
)

// Provider supplies authenticated HTTP clients and token status.
type Provider interface {
	Client(ctx context.Context) *http.Client
	TokenInfo(ctx context.Context) (*TokenInfo, error)
}

// Credentials identify the OAuth client and the user's long-lived grant.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Authenticator exchanges a refresh token for access tokens as needed.
type Authenticator struct {
	config  *oauth2.Config
	source  oauth2.TokenSource
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithEndpoint overrides the Google OAuth endpoint.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(a *Authenticator) {
		a.config.Endpoint = endpoint
	}
}

// WithMetrics records token refresh outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// WithLogger sets the logger for token refresh events.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator creates an authenticator from stored credentials. No
// network call is made until a token is first needed.
func NewAuthenticator(ctx context.Context, creds Credentials, opts ...Option) (*Authenticator, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("OAuth client ID and secret are required")
	}
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	a := &Authenticator{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       DefaultScopes,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	base := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	a.source = newObservedTokenSource(ctx, base, a.metrics, a.logger)

	return a, nil
}

// Client returns an HTTP client that attaches a valid access token.
func (a *Authenticator) Client(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, a.source)
}

// Token returns a valid access token, refreshing it if needed.
func (a *Authenticator) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, fmt.Errorf("unable to obtain access token: %w", err)
	}
	return token, nil
}

// observedTokenSource logs and counts access token refreshes.
type observedTokenSource struct {
	ctx       context.Context
	source    oauth2.TokenSource
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
	mu        sync.Mutex
	lastToken string
}

func newObservedTokenSource(ctx context.Context, source oauth2.TokenSource, m *instrumentation.Metrics, logger *slog.Logger) *observedTokenSource {
	return &observedTokenSource{ctx: ctx, source: source, metrics: m, logger: logger}
}

// Token returns the underlying token, recording when it changes.
func (o *observedTokenSource) Token() (*oauth2.Token, error) {
	token, err := o.source.Token()
	if err != nil {
		o.metrics.RecordOAuthTokenRefresh(o.ctx, instrumentation.StatusError)
		o.logger.Error("access token refresh failed",
			logging.Operation("oauth_refresh"),
			logging.Err(err))
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if token.AccessToken != o.lastToken {
		o.lastToken = token.AccessToken
		o.metrics.RecordOAuthTokenRefresh(o.ctx, instrumentation.StatusSuccess)
		o.logger.Debug("access token refreshed",
			logging.Operation("oauth_refresh"),
			slog.String("token", logging.SanitizeToken(token.AccessToken)),
			slog.Time("expiry", token.Expiry))
	}

	return token, nil
}

// TokenInfo contains metadata about the current OAuth token
type TokenInfo struct {
	Mode        string        `json:"mode"`
	Valid       bool          `json:"valid"`
	AccessToken string        `json:"access_token"` // Masked for security
	Expiry      time.Time     `json:"expiry,omitzero"`
	ExpiresIn   time.Duration `json:"expires_in"`
	HasRefresh  bool          `json:"has_refresh"`
	Error       string        `json:"error,omitempty"`
}

// TokenInfo obtains a token and reports its status. A failed refresh is
// reported in the Error field rather than returned.
func (a *Authenticator) TokenInfo(_ context.Context) (*TokenInfo, error) {
	token, err := a.source.Token()
	if err != nil {
		return &TokenInfo{Mode: ModeOAuth, HasRefresh: true, Error: err.Error()}, nil
	}

	info := &TokenInfo{
		Mode:        ModeOAuth,
		Valid:       token.Valid(),
		AccessToken: maskToken(token.AccessToken),
		Expiry:      token.Expiry,
		HasRefresh:  true,
	}
	if !token.Expiry.IsZero() {
		info.ExpiresIn = time.Until(token.Expiry).Round(time.Second)
	}
	return info, nil
}

// maskToken returns a masked version of the token for safe display.
// Shows first 4 and last 4 characters, e.g., "ya29...7890"
func maskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:4] + "..." + token[len(token)-4:]
}
