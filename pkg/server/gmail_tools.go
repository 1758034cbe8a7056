// ABOUTME: Gmail tool definitions and handlers
// ABOUTME: List, search, read, send and relabel messages

package server

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/harper/mailcal-mcp/pkg/gmail"
	"github.com/harper/mailcal-mcp/pkg/logging"
)

func (s *Server) registerGmailTools() {
	s.mcp.AddTool(mcp.Tool{
		Name:        "gmail_list_messages",
		Description: "List Gmail messages (single page)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query":       map[string]string{"type": "string", "description": "Gmail search query (e.g., 'from:me is:unread')"},
				"max_results": map[string]string{"type": "integer", "description": "Maximum number of messages to return (default: 10, max: 100)"},
				"hydrate": map[string]interface{}{
					"type":        "boolean",
					"description": "When true, fetches message headers (from, subject, date, snippet). When false/omitted, returns only message IDs.",
				},
			},
		},
	}, s.instrumented("gmail_list_messages", s.handleGmailListMessages))

	s.mcp.AddTool(mcp.Tool{
		Name:        "gmail_search_messages",
		Description: "Search Gmail and return message headers and snippets",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query":       map[string]string{"type": "string", "description": "Gmail search query"},
				"max_results": map[string]string{"type": "integer", "description": "Maximum number of messages to return (default: 10, max: 100)"},
			},
			Required: []string{"query"},
		},
	}, s.instrumented("gmail_search_messages", s.handleGmailSearchMessages))

	s.mcp.AddTool(mcp.Tool{
		Name:        "gmail_get_message",
		Description: "Get a specific email message by ID, including its body",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message_id": map[string]string{"type": "string", "description": "The message ID to retrieve"},
			},
			Required: []string{"message_id"},
		},
	}, s.instrumented("gmail_get_message", s.handleGmailGetMessage))

	s.mcp.AddTool(mcp.Tool{
		Name:        "gmail_send_message",
		Description: "Send an email. HTML bodies are detected and sent as text/html.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"to":      map[string]string{"type": "string", "description": "Recipient address list"},
				"subject": map[string]string{"type": "string", "description": "Email subject"},
				"body":    map[string]string{"type": "string", "description": "Email body content"},
				"cc":      map[string]string{"type": "string", "description": "Cc address list"},
				"bcc":     map[string]string{"type": "string", "description": "Bcc address list"},
			},
			Required: []string{"to", "subject", "body"},
		},
	}, s.instrumented("gmail_send_message", s.handleGmailSendMessage))

	s.mcp.AddTool(mcp.Tool{
		Name:        "gmail_modify_labels",
		Description: "Add or remove labels on a message (e.g., remove UNREAD to mark as read)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message_id": map[string]string{"type": "string", "description": "The message ID to modify"},
				"add_labels": map[string]interface{}{
					"type":        "array",
					"items":       map[string]string{"type": "string"},
					"description": "Label IDs to add",
				},
				"remove_labels": map[string]interface{}{
					"type":        "array",
					"items":       map[string]string{"type": "string"},
					"description": "Label IDs to remove",
				},
			},
			Required: []string{"message_id"},
		},
	}, s.instrumented("gmail_modify_labels", s.handleGmailModifyLabels))
}

// MessageRef is an un-hydrated list entry.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id,omitempty"`
}

// MessageList is the response for list and search tools.
type MessageList struct {
	Query    string `json:"query,omitempty"`
	Count    int    `json:"count"`
	Messages any    `json:"messages"`
}

func (s *Server) handleGmailListMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")

	limit, err := maxResults(request, gmail.DefaultMaxResults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hydrate, err := boolArg(request, "hydrate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	refs, err := s.gmail.ListMessages(ctx, query, limit)
	if err != nil {
		return apiError(err), nil
	}

	if !hydrate {
		out := make([]MessageRef, 0, len(refs))
		for _, m := range refs {
			out = append(out, MessageRef{ID: m.Id, ThreadID: m.ThreadId})
		}
		return mcp.NewToolResultJSON(MessageList{Query: query, Count: len(out), Messages: out})
	}

	msgs, err := s.gmail.HydrateMessages(ctx, refs)
	if err != nil {
		return apiError(err), nil
	}
	return mcp.NewToolResultJSON(MessageList{Query: query, Count: len(msgs), Messages: summaries(msgs)})
}

func (s *Server) handleGmailSearchMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limit, err := maxResults(request, gmail.DefaultMaxResults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msgs, err := s.gmail.SearchMessages(ctx, query, limit)
	if err != nil {
		return apiError(err), nil
	}
	return mcp.NewToolResultJSON(MessageList{Query: query, Count: len(msgs), Messages: summaries(msgs)})
}

func (s *Server) handleGmailGetMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	messageID, err := request.RequireString("message_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg, err := s.gmail.GetMessage(ctx, messageID, gmail.FormatFull)
	if err != nil {
		return apiError(err), nil
	}

	return mcp.NewToolResultJSON(gmail.Summarize(msg))
}

func (s *Server) handleGmailSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	to, err := request.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	subject, err := request.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body, err := request.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	draft := gmail.Draft{
		To:      to,
		Cc:      request.GetString("cc", ""),
		Bcc:     request.GetString("bcc", ""),
		Subject: subject,
		Body:    body,
	}

	msg, err := s.gmail.SendMessage(ctx, draft)
	if err != nil {
		return apiError(err), nil
	}

	logger := s.loggerFrom(ctx)
	for _, rcpt := range draft.Recipients() {
		logger.Info("message sent", logging.Recipient(rcpt), slog.String("message_id", msg.Id))
	}

	return mcp.NewToolResultJSON(gmail.Summary{ID: msg.Id, ThreadID: msg.ThreadId, Labels: msg.LabelIds})
}

func (s *Server) handleGmailModifyLabels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	messageID, err := request.RequireString("message_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	addLabels, err := stringList(request, "add_labels")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	removeLabels, err := stringList(request, "remove_labels")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg, err := s.gmail.ModifyLabels(ctx, messageID, addLabels, removeLabels)
	if err != nil {
		return apiError(err), nil
	}

	return mcp.NewToolResultJSON(map[string]interface{}{
		"id":             msg.Id,
		"labels":         msg.LabelIds,
		"added_labels":   addLabels,
		"removed_labels": removeLabels,
	})
}

func summaries(msgs []*gmailapi.Message) []gmail.Summary {
	out := make([]gmail.Summary, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, gmail.Summarize(m))
	}
	return out
}
