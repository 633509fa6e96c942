package csrf

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
)

func TestTransport(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		cookie      string
		origin      string
		wantToken   string
		wantOrigin  bool
		wantIssued  int32
		wantNoToken bool
	}{
		{
			name:        "safe method untouched",
			method:      http.MethodGet,
			cookie:      "abc",
			wantNoToken: true,
		},
		{
			name:       "unsafe method uses cookie token",
			method:     http.MethodPost,
			cookie:     "abc",
			wantToken:  "abc",
			wantOrigin: true,
		},
		{
			name:       "unsafe method issues token when missing",
			method:     http.MethodDelete,
			wantToken:  "issued",
			wantOrigin: true,
			wantIssued: 1,
		},
		{
			name:      "existing origin kept",
			method:    http.MethodPut,
			cookie:    "abc",
			origin:    "http://frontend.local",
			wantToken: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var issued atomic.Int32
			var gotHeader http.Header
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == DefaultEndpointPath {
					issued.Add(1)
					_, _ = io.WriteString(w, `{"csrfToken":"issued"}`)
					return
				}
				gotHeader = r.Header.Clone()
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			client, tr := newClient(t)
			defer tr.CloseIdleConnections()
			if tt.cookie != "" {
				u, _ := url.Parse(srv.URL)
				client.Jar.SetCookies(u, []*http.Cookie{{Name: CookieName, Value: tt.cookie, Path: "/"}})
			}

			b, err := New(client, srv.URL)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			apiClient := &http.Client{Jar: client.Jar, Transport: &Transport{Source: b, Base: tr}}

			req, err := http.NewRequest(tt.method, srv.URL+"/api/todos/", strings.NewReader("{}"))
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			resp, err := apiClient.Do(req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			_ = resp.Body.Close()

			if req.Header.Get(HeaderName) != "" {
				t.Error("caller's request was modified")
			}
			if tt.wantNoToken {
				if _, ok := gotHeader[http.CanonicalHeaderKey(HeaderName)]; ok {
					t.Errorf("%s header set on safe request", HeaderName)
				}
			} else if got := gotHeader.Get(HeaderName); got != tt.wantToken {
				t.Errorf("%s = %q, want %q", HeaderName, got, tt.wantToken)
			}
			if tt.wantOrigin {
				if got := gotHeader.Get("Origin"); got != srv.URL {
					t.Errorf("Origin = %q, want %q", got, srv.URL)
				}
			}
			if tt.origin != "" {
				if got := gotHeader.Get("Origin"); got != tt.origin {
					t.Errorf("Origin = %q, want %q", got, tt.origin)
				}
			}
			if got := issued.Load(); got != tt.wantIssued {
				t.Errorf("token requests = %d, want %d", got, tt.wantIssued)
			}
		})
	}
}

func TestTransportSendsEmptyTokenWhenUnavailable(t *testing.T) {
	var gotToken []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultEndpointPath {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		gotToken = r.Header.Values(HeaderName)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client, tr := newClient(t)
	defer tr.CloseIdleConnections()
	b, err := New(client, srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	apiClient := &http.Client{Jar: client.Jar, Transport: &Transport{Source: b, Base: tr}}

	resp, err := apiClient.Post(srv.URL+"/api/todos/", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	if len(gotToken) != 1 || gotToken[0] != "" {
		t.Errorf("%s values = %q, want one empty value", HeaderName, gotToken)
	}
}

func TestTransportAttachesFreshlyIssuedCookie(t *testing.T) {
	var gotCookie, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultEndpointPath {
			http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "fresh", Path: "/"})
			_, _ = io.WriteString(w, `{"status":"ok"}`)
			return
		}
		if c, err := r.Cookie(CookieName); err == nil {
			gotCookie = c.Value
		}
		gotToken = r.Header.Get(HeaderName)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, tr := newClient(t)
	defer tr.CloseIdleConnections()
	b, err := New(client, srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	apiClient := &http.Client{Jar: client.Jar, Transport: &Transport{Source: b, Base: tr}}

	resp, err := apiClient.Post(srv.URL+"/api/todos/", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	_ = resp.Body.Close()

	if gotToken != "fresh" || gotCookie != "fresh" {
		t.Errorf("token header = %q, cookie = %q, want both %q", gotToken, gotCookie, "fresh")
	}
}

func TestTransportSkipsOtherHosts(t *testing.T) {
	var issued atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issued.Add(1)
		http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "secret", Path: "/"})
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer backend.Close()

	var gotHeader http.Header
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer other.Close()

	client, tr := newClient(t)
	defer tr.CloseIdleConnections()
	b, err := New(client, backend.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	apiClient := &http.Client{Jar: client.Jar, Transport: &Transport{Source: b, Base: tr}}

	resp, err := apiClient.Post(other.URL+"/hook", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	_ = resp.Body.Close()

	if _, ok := gotHeader[http.CanonicalHeaderKey(HeaderName)]; ok {
		t.Errorf("%s sent to foreign host", HeaderName)
	}
	if got := gotHeader.Get("Origin"); got != "" {
		t.Errorf("Origin = %q sent to foreign host", got)
	}
	if got := issued.Load(); got != 0 {
		t.Errorf("token requests = %d, want 0", got)
	}
}
