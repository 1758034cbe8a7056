// ABOUTME: Classification of Google API errors by HTTP status
// ABOUTME: Gives tool handlers a short hint for the common failure modes

package apierrors

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Common Google API errors.
var (
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")
	ErrForbidden    = errors.New("google: forbidden (insufficient permissions)")
	ErrNotFound     = errors.New("google: resource not found")
	ErrGone         = errors.New("google: resource deleted")
	ErrRateLimited  = errors.New("google: rate limit exceeded")
)

func code(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || code(err) == http.StatusUnauthorized
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) || code(err) == http.StatusForbidden
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || code(err) == http.StatusNotFound
}

// IsGone returns true if the resource was already deleted.
func IsGone(err error) bool {
	return errors.Is(err, ErrGone) || code(err) == http.StatusGone
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited) || code(err) == http.StatusTooManyRequests
}

// Hint returns a short remedy for a classified error, or "".
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case IsUnauthorized(err):
		return "credentials were rejected; check the refresh token and OAuth client"
	case IsForbidden(err):
		return "the account or token lacks permission for this resource"
	case IsNotFound(err):
		return "no such resource; check the ID (calendar names are resolved, event and message IDs are not)"
	case IsGone(err):
		return "the resource has already been deleted"
	case IsRateLimited(err):
		return "Google is rate limiting requests; wait before retrying"
	}
	return ""
}
