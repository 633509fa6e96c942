package proxy

import (
	"net/http"
)

// cookieTransport attaches the jar's cookies to upstream requests and stores the
// cookies upstream responses set. ReverseProxy uses a bare RoundTripper, so the
// jar handling http.Client would do happens here.
type cookieTransport struct {
	jar  http.CookieJar
	base http.RoundTripper
}

// Compile-time check that cookieTransport implements http.RoundTripper.
var _ http.RoundTripper = (*cookieTransport)(nil)

// RoundTrip implements http.RoundTripper interface.
func (t *cookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	newReq := req.Clone(req.Context())
	for _, c := range t.jar.Cookies(req.URL) {
		if _, err := newReq.Cookie(c.Name); err == nil {
			continue
		}
		newReq.AddCookie(c)
	}

	resp, err := t.base.RoundTrip(newReq)
	if err != nil {
		return nil, err
	}

	if cookies := resp.Cookies(); len(cookies) > 0 {
		t.jar.SetCookies(req.URL, cookies)
	}
	// The session stays with the proxy
	resp.Header.Del("Set-Cookie")

	return resp, nil
}
