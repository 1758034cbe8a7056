// ABOUTME: Tool argument coercion and error result helpers
// ABOUTME: Accepts arrays or comma-separated strings for list arguments

package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/harper/mailcal-mcp/pkg/apierrors"
)

// stringList reads an optional list argument. JSON arrays and
// comma-separated strings are both accepted; blanks are dropped.
func stringList(request mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var values []string
	switch v := raw.(type) {
	case string:
		values = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			switch item.(type) {
			case string, json.Number, float64, int, int64:
			default:
				return nil, fmt.Errorf("%s must be an array of strings", key)
			}
		}
		values = cast.ToStringSlice(v)
	default:
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("%s must be an array of strings", key)
		}
		values = list
	}

	out := make([]string, 0, len(values))
	for _, s := range values {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// maxResults reads max_results as an int64, accepting numbers or numeric strings.
func maxResults(request mcp.CallToolRequest, fallback int64) (int64, error) {
	raw, ok := request.GetArguments()["max_results"]
	if !ok || raw == nil {
		return fallback, nil
	}
	n, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("max_results must be a number")
	}
	if n < 0 {
		return 0, fmt.Errorf("max_results must not be negative")
	}
	return n, nil
}

// boolArg reads an optional boolean, accepting "true"/"false" strings.
func boolArg(request mcp.CallToolRequest, key string) (bool, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return false, nil
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}

// apiError renders a failed API call, appending a remedy when the failure
// is a known Google API status.
func apiError(err error) *mcp.CallToolResult {
	msg := err.Error()
	if hint := apierrors.Hint(err); hint != "" {
		msg += " (" + hint + ")"
	}
	return mcp.NewToolResultError(msg)
}
