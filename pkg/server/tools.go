// ABOUTME: Tool registration and the auth status tool
// ABOUTME: auth_status obtains a token and reports it masked

package server

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers all available tools
func (s *Server) registerTools() {
	s.registerGmailTools()
	s.registerCalendarTools()

	s.mcp.AddTool(mcp.Tool{
		Name:        "auth_status",
		Description: "Check whether Google credentials currently yield a valid access token",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.instrumented("auth_status", s.handleAuthStatus))
}

// AuthStatusResponse is the response for auth_status tool
type AuthStatusResponse struct {
	Mode        string `json:"mode"`
	Valid       bool   `json:"valid"`
	AccessToken string `json:"access_token,omitempty"`
	Expiry      string `json:"expiry,omitempty"`
	Expires     string `json:"expires,omitempty"`
	HasRefresh  bool   `json:"has_refresh"`
	Message     string `json:"message,omitempty"`
}

func (s *Server) handleAuthStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.auth == nil {
		return mcp.NewToolResultError("no credential provider configured"), nil
	}

	info, err := s.auth.TokenInfo(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := AuthStatusResponse{
		Mode:        info.Mode,
		Valid:       info.Valid,
		AccessToken: info.AccessToken,
		HasRefresh:  info.HasRefresh,
		Message:     info.Error,
	}
	if !info.Expiry.IsZero() {
		resp.Expiry = s.normalizer.Format(info.Expiry)
		resp.Expires = humanize.RelTime(info.Expiry, s.now(), "ago", "from now")
	}
	if resp.Valid && resp.Message == "" {
		resp.Message = "authentication is valid"
	}

	return mcp.NewToolResultJSON(resp)
}
