// ABOUTME: MCP server implementation
// ABOUTME: Exposes Gmail and Calendar services as MCP tools, resources and prompts

package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/harper/mailcal-mcp/pkg/auth"
	"github.com/harper/mailcal-mcp/pkg/calendar"
	"github.com/harper/mailcal-mcp/pkg/config"
	"github.com/harper/mailcal-mcp/pkg/directory"
	"github.com/harper/mailcal-mcp/pkg/gmail"
	"github.com/harper/mailcal-mcp/pkg/instrumentation"
	"github.com/harper/mailcal-mcp/pkg/ratelimit"
	"github.com/harper/mailcal-mcp/pkg/timezone"
)

// Name is the MCP server name reported to clients.
const Name = "mailcal-mcp"

// Server is the MCP server for Gmail and Calendar
type Server struct {
	gmail      *gmail.Service
	calendar   *calendar.Service
	directory  *directory.Directory
	normalizer *timezone.Normalizer
	auth       auth.Provider
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	now        func() time.Time
	mcp        *server.MCPServer
}

// Deps are the collaborators a Server is built from. Gmail, Calendar and
// Directory are required.
type Deps struct {
	Gmail      *gmail.Service
	Calendar   *calendar.Service
	Directory  *directory.Directory
	Normalizer *timezone.Normalizer
	Auth       auth.Provider
	Metrics    *instrumentation.Metrics
	Logger     *slog.Logger
	Version    string
	Now        func() time.Time
}

// New creates a new MCP server from its collaborators
func New(deps Deps) (*Server, error) {
	if deps.Gmail == nil || deps.Calendar == nil || deps.Directory == nil {
		return nil, fmt.Errorf("gmail, calendar and directory are required")
	}

	s := &Server{
		gmail:      deps.Gmail,
		calendar:   deps.Calendar,
		directory:  deps.Directory,
		normalizer: deps.Normalizer,
		auth:       deps.Auth,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.normalizer == nil {
		s.normalizer = timezone.Default()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s.mcp = server.NewMCPServer(
		Name,
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)

	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s, nil
}

// NewFromConfig wires authentication, API services and the calendar
// directory from cfg. m may be nil.
func NewFromConfig(ctx context.Context, cfg config.Config, m *instrumentation.Metrics, logger *slog.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	normalizer, err := cfg.Normalizer()
	if err != nil {
		return nil, err
	}

	var provider auth.Provider
	var gmailOpts = []gmail.Option{
		gmail.WithMetrics(m),
		gmail.WithRateLimiter(ratelimit.NewWithConfig(ratelimit.ServiceGmail, cfg.RateLimit.Gmail)),
	}
	var calendarOpts = []calendar.Option{
		calendar.WithMetrics(m),
		calendar.WithRateLimiter(ratelimit.NewWithConfig(ratelimit.ServiceCalendar, cfg.RateLimit.Calendar)),
	}

	if cfg.ISH.Enabled {
		endpoint := strings.TrimRight(cfg.ISH.BaseURL, "/") + "/"
		provider = auth.NewFakeAuthenticator(cfg.ISH.User)
		gmailOpts = append(gmailOpts, gmail.WithEndpoint(endpoint))
		calendarOpts = append(calendarOpts, calendar.WithEndpoint(endpoint))
		logger.Info("ish mode enabled", slog.String("base_url", endpoint))
	} else {
		provider, err = auth.NewAuthenticator(ctx, auth.Credentials{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RefreshToken: cfg.Google.RefreshToken,
		}, auth.WithMetrics(m), auth.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}

	client := provider.Client(ctx)

	gmailSvc, err := gmail.NewService(ctx, client, gmailOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	calendarSvc, err := calendar.NewService(ctx, client, calendarOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	dir := directory.New(calendarSvc,
		directory.WithLogger(logger),
		directory.WithRecorder(m))

	return New(Deps{
		Gmail:      gmailSvc,
		Calendar:   calendarSvc,
		Directory:  dir,
		Normalizer: normalizer,
		Auth:       provider,
		Metrics:    m,
		Logger:     logger,
		Version:    version,
	})
}

// Directory returns the calendar directory used for name resolution.
func (s *Server) Directory() *directory.Directory {
	return s.directory
}

// Normalizer returns the time normalizer.
func (s *Server) Normalizer() *timezone.Normalizer {
	return s.normalizer
}

// ListTools returns all registered tools
func (s *Server) ListTools() []mcp.Tool {
	serverTools := s.mcp.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, st := range serverTools {
		tools = append(tools, st.Tool)
	}
	return tools
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve populates the calendar directory in the background, then serves
// MCP over the given streams until ctx is cancelled or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	go s.directory.Refresh(ctx)

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio", slog.String("server", Name))
	return stdio.Listen(ctx, in, out)
}
