// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph talks to the Microsoft Graph v1.0 API: it resolves
// SharePoint sites and document libraries, ensures folders, and moves
// bytes in and out of a drive, including server-side PDF rendition.
//
// The client performs no retries and caches no tokens. Every request
// fetches a fresh bearer token from the injected TokenProvider.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/graphpdf/internal/httputil"
	"github.com/pdiddy/graphpdf/pkg/types"
)

// Tracking headers. Graph echoes client-request-id when asked to, and
// stamps its own request-id on every response.
const (
	headerClientRequestID       = "client-request-id"
	headerReturnClientRequestID = "return-client-request-id"
	headerRequestID             = "request-id"
	headerMSClientRequestID     = "x-ms-client-request-id"
)

// TokenProvider returns a short-lived bearer token for Graph.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f(ctx).
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Client issues authenticated requests against BaseURL. It is safe for
// concurrent use as long as BaseURL is not changed after the first call.
type Client struct {
	// HTTP is the configured transport. Timeouts belong here.
	HTTP *http.Client

	// Tokens supplies a bearer token for each request.
	Tokens TokenProvider

	// BaseURL is the Graph surface, with trailing slash. NewClient sets it
	// to types.DefaultGraphBaseURL.
	BaseURL string
}

// NewClient returns a Client for the Graph v1.0 surface. A nil httpClient
// uses http.DefaultClient.
func NewClient(httpClient *http.Client, tokens TokenProvider) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		HTTP:    httpClient,
		Tokens:  tokens,
		BaseURL: types.DefaultGraphBaseURL,
	}
}

// NewRequest builds a request for path (relative to BaseURL, already
// escaped) with optional query parameters.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	base := c.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u := base + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return req, nil
}

// Send attaches a fresh bearer token and, when correlationID is non-empty,
// the client-request-id tracking headers, then dispatches req. Token
// failures are returned as errors of this call. Non-2xx responses are not
// errors here; callers judge the status.
func (c *Client) Send(req *http.Request, correlationID string) (*http.Response, error) {
	if c.Tokens == nil {
		return nil, fmt.Errorf("graph client has no token provider")
	}
	token, err := c.Tokens.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccessToken, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if strings.TrimSpace(correlationID) != "" {
		req.Header.Set(headerClientRequestID, correlationID)
		req.Header.Set(headerReturnClientRequestID, "true")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

// do builds, sends, and returns the response for one Graph call.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType, correlationID string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.Send(req, correlationID)
}

// decodeJSON decodes resp.Body into v and closes it.
func decodeJSON(op string, resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: parsing response: %w", op, err)
	}
	return nil
}

// discard drains and closes a response whose body is not needed.
func discard(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// escapePath percent-escapes each segment of a slash-separated path,
// dropping empty segments.
func escapePath(p string) string {
	parts := splitPath(p)
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// splitPath returns the non-empty, trimmed segments of a slash-separated path.
func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// drivePath returns "drives/{driveID}/" + rest.
func drivePath(driveID, rest string) string {
	return "drives/" + url.PathEscape(driveID) + "/" + rest
}

// newRequestError captures status, a bounded body, and tracking ids.
func newRequestError(op string, resp *http.Response) *RequestError {
	e := &RequestError{
		Op:         op,
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get(headerRequestID),
	}
	e.ClientRequestID = resp.Header.Get(headerClientRequestID)
	if e.ClientRequestID == "" {
		e.ClientRequestID = resp.Header.Get(headerMSClientRequestID)
	}
	e.Body = httputil.ReadBodySafe(resp, httputil.MaxCapturedBody)
	return e
}
