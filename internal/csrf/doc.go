// Package csrf bootstraps and attaches the backend's anti-forgery token.
//
// The backend issues its CSRF token as a cookie (__Secure-csrftoken on secure
// deployments, csrftoken otherwise) from GET /api/csrf/, and validates it on
// every state-mutating request through the X-CSRFToken header.
//
// # Bootstrapper
//
// A Bootstrapper reads the token from the client's cookie jar and, when it is
// missing, requests a fresh one. At most one issuing request is outstanding at
// any time; concurrent callers share its result:
//
//	b, err := csrf.New(client, "https://app.example.com")
//	b.EnsureInitialized(ctx) // no-op when the cookie is already present
//	token := b.ReadToken()
//
// Failures never escape the bootstrapper. They are logged and reported as an
// empty token, or as an unavailable Result via Issue.
//
// # Transport
//
// Transport attaches the token to unsafe requests and can be used as the
// transport of any http.Client talking to the backend:
//
//	client := &http.Client{
//		Jar:       jar,
//		Transport: &csrf.Transport{Source: b},
//	}
package csrf
