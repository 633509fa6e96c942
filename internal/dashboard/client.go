// Package dashboard is a typed client for the backend REST endpoints behind the
// user dashboard: account, todos, membership and billing, plus the headless
// authentication API.
//
// The client does not manage sessions or CSRF tokens itself. The *http.Client
// it is given must carry the session cookie jar and a csrf.Transport.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/florianilch/dashctl/internal/dashboard"

// RequestIDHeader carries a per-request identifier for correlating logs.
const RequestIDHeader = "X-Request-Id"

// Client talks to the backend API.
type Client struct {
	httpClient *http.Client
	noRedirect *http.Client
	baseURL    *url.URL
	validate   *validator.Validate
	tracer     trace.Tracer
}

// New creates a Client for the backend at baseURL.
func New(httpClient *http.Client, baseURL string) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("missing http client")
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	// Billing endpoints answer with redirects to the payment provider; the target is the result.
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		httpClient: httpClient,
		noRedirect: &noRedirect,
		baseURL:    base,
		validate:   validator.New(),
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, c.httpClient, http.MethodGet, "/api/health/", nil, nil, http.StatusOK)
}

// do sends a request and decodes a JSON response into out when out is non-nil.
// Any status not in expect yields an *APIError.
func (c *Client) do(ctx context.Context, client *http.Client, method, path string, in, out any, expect ...int) error {
	_, _, err := c.send(ctx, client, method, path, in, out, expect...)
	return err
}

// send is do returning the response status and headers, for callers that need them.
func (c *Client) send(ctx context.Context, client *http.Client, method, path string, in, out any, expect ...int) (http.Header, int, error) {
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	header, status, err := c.roundTrip(ctx, client, method, path, requestID, in, out, expect)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.DebugContext(ctx, "backend request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, status, err
	}

	slog.DebugContext(ctx, "backend request", "method", method, "path", path, "status", status, "request_id", requestID)
	return header, status, nil
}

func (c *Client) roundTrip(ctx context.Context, client *http.Client, method, path, requestID string, in, out any, expect []int) (http.Header, int, error) {
	// Paths are relative to the base URL's path, matching the proxy
	target := c.baseURL.JoinPath(path)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !slices.Contains(expect, resp.StatusCode) {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, resp.StatusCode, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(text)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}

	return resp.Header, resp.StatusCode, nil
}
