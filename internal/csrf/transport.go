package csrf

import (
	"net/http"
	"strings"
)

// Transport is an http.RoundTripper that attaches the CSRF token to unsafe requests
// for the token endpoint's host. Safe methods and other hosts pass through unchanged.
type Transport struct {
	// Source provides the token. Required.
	Source *Bootstrapper
	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// Compile-time check that Transport implements http.RoundTripper.
var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements http.RoundTripper interface.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// The token is only ever sent to the backend that issued it
	if isSafeMethod(req.Method) || !strings.EqualFold(req.URL.Host, t.Source.endpoint.Host) {
		return base.RoundTrip(req)
	}

	ctx := req.Context()
	// RoundTrippers must not modify the caller's request
	newReq := req.Clone(ctx)

	token := t.Source.ReadToken()
	if token == "" {
		// Falls back to the token from the response body when no cookie was set.
		token = t.Source.IssueToken(ctx)
		// http.Client read the jar before the token existed
		t.Source.attachCookies(newReq)
	}
	newReq.Header.Set(HeaderName, token)

	// Secure backends reject unsafe requests without a matching Origin or Referer.
	if newReq.Header.Get("Origin") == "" {
		newReq.Header.Set("Origin", origin(t.Source.endpoint.Scheme, t.Source.endpoint.Host))
	}

	return base.RoundTrip(newReq)
}

// isSafeMethod reports whether the method is exempt from CSRF validation.
func isSafeMethod(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func origin(scheme, host string) string {
	return scheme + "://" + host
}
