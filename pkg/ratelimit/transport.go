// ABOUTME: HTTP transport that throttles outgoing requests through a Limiter
// ABOUTME: Reads Retry-After from 429 responses to pause later requests

package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Transport waits on a Limiter before every request.
type Transport struct {
	Limiter *Limiter
	Base    http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%s rate limiter: %w", t.Limiter.Service(), err)
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		t.Limiter.RecordRateLimited(retryAfter(resp.Header.Get("Retry-After")))
	}

	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// WrapClient returns a shallow copy of client whose transport is throttled
// by limiter. A nil client wraps http.DefaultTransport.
func WrapClient(client *http.Client, limiter *Limiter) *http.Client {
	if limiter == nil {
		return client
	}

	wrapped := &http.Client{}
	if client != nil {
		*wrapped = *client
	}
	wrapped.Transport = &Transport{Limiter: limiter, Base: wrapped.Transport}
	return wrapped
}

// retryAfter parses a Retry-After header given as seconds or an HTTP date.
func retryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return time.Until(at)
	}
	return 0
}
