// ABOUTME: Tool handler wrapper adding spans, metrics and structured logs
// ABOUTME: Each invocation gets a UUID that ties its log lines and span together

package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harper/mailcal-mcp/pkg/instrumentation"
	"github.com/harper/mailcal-mcp/pkg/logging"
)

type loggerKey struct{}

// loggerFrom returns the invocation logger stored by instrumented.
func (s *Server) loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return s.logger
}

// instrumented wraps a tool handler with a span, invocation metrics and a
// completion log line. A result with IsError counts as a failure.
func (s *Server) instrumented(toolName string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		invocationID := uuid.NewString()

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.String(instrumentation.SpanAttrInvocationID, invocationID))
		defer span.End()

		logger := s.logger.With(
			logging.Tool(toolName),
			slog.String(logging.KeyInvocationID, invocationID))
		if traceID := instrumentation.TraceID(ctx); traceID != "" {
			logger = logger.With(slog.String("trace_id", traceID))
		}
		ctx = context.WithValue(ctx, loggerKey{}, logger)

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			span.SetAttributes(attribute.Bool("mcp.result_error", true))
		default:
			instrumentation.SetSpanSuccess(span)
		}

		s.metrics.RecordToolInvocation(ctx, toolName, status, duration)

		level := slog.LevelInfo
		if status == instrumentation.StatusError {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "tool invocation completed",
			logging.Status(status),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))

		return result, err
	}
}
