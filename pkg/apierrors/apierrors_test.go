// ABOUTME: Tests for Google API error classification
// ABOUTME: Checks wrapped googleapi errors and sentinel errors

package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassification(t *testing.T) {
	wrap := func(code int) error {
		return fmt.Errorf("unable to get event: %w", &googleapi.Error{Code: code, Message: http.StatusText(code)})
	}

	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"401", wrap(http.StatusUnauthorized), IsUnauthorized},
		{"403", wrap(http.StatusForbidden), IsForbidden},
		{"404", wrap(http.StatusNotFound), IsNotFound},
		{"410", wrap(http.StatusGone), IsGone},
		{"429", wrap(http.StatusTooManyRequests), IsRateLimited},
		{"sentinel", fmt.Errorf("x: %w", ErrNotFound), IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
			assert.NotEmpty(t, Hint(tt.err))
		})
	}
}

func TestHint_Unclassified(t *testing.T) {
	assert.Empty(t, Hint(nil))
	assert.Empty(t, Hint(errors.New("boom")))
	assert.Empty(t, Hint(&googleapi.Error{Code: http.StatusInternalServerError}))
	assert.False(t, IsNotFound(errors.New("not found")))
}
