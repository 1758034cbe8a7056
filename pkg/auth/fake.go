// ABOUTME: Fake authentication for ish mode testing
// ABOUTME: Provides Bearer token auth without real OAuth

package auth

import (
	"context"
	"fmt"
	"net/http"
)

// DefaultISHUser is used when no ish user is configured.
const DefaultISHUser = "testuser"

// fakeTransport adds Bearer token authentication to requests
type fakeTransport struct {
	token string
	base  http.RoundTripper
}

func (t *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t.token))
	return t.base.RoundTrip(req)
}

// FakeAuthenticator authenticates against an ish server as a fixed user.
type FakeAuthenticator struct {
	user string
}

// NewFakeAuthenticator creates a fake authenticator for user.
func NewFakeAuthenticator(user string) *FakeAuthenticator {
	if user == "" {
		user = DefaultISHUser
	}
	return &FakeAuthenticator{user: user}
}

// User returns the ish user name.
func (f *FakeAuthenticator) User() string {
	return f.user
}

func (f *FakeAuthenticator) token() string {
	return fmt.Sprintf("user:%s", f.user)
}

// Client returns an HTTP client with fake Bearer token auth.
func (f *FakeAuthenticator) Client(_ context.Context) *http.Client {
	return &http.Client{
		Transport: &fakeTransport{
			token: f.token(),
			base:  http.DefaultTransport,
		},
	}
}

// TokenInfo reports the fake token as always valid.
func (f *FakeAuthenticator) TokenInfo(_ context.Context) (*TokenInfo, error) {
	return &TokenInfo{
		Mode:        ModeISH,
		Valid:       true,
		AccessToken: maskToken(f.token()),
	}, nil
}
