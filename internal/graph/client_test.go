// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/graphpdf/internal/graph/graphtest"
)

func staticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

func newTestClient(t *testing.T) (*Client, *graphtest.Server) {
	t.Helper()
	srv := graphtest.NewServer()
	t.Cleanup(srv.Close)
	c := NewClient(srv.Client(), staticToken(graphtest.Token))
	c.BaseURL = srv.BaseURL()
	return c, srv
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(nil, staticToken("x"))
	assert.Equal(t, http.DefaultClient, c.HTTP)
	assert.Equal(t, "https://graph.microsoft.com/v1.0/", c.BaseURL)
}

func TestNewRequestJoinsBaseAndQuery(t *testing.T) {
	c := NewClient(nil, nil)
	c.BaseURL = "https://example.test/v1.0"

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/sites/abc", map[string][]string{"format": {"pdf"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/v1.0/sites/abc?format=pdf", req.URL.String())
}

func TestSendSetsTrackingHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := NewClient(ts.Client(), staticToken("abc"))
	c.BaseURL = ts.URL + "/"

	req, err := c.NewRequest(context.Background(), http.MethodGet, "me", nil, nil)
	require.NoError(t, err)
	resp, err := c.Send(req, "corr-1")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, "corr-1", got.Get("client-request-id"))
	assert.Equal(t, "true", got.Get("return-client-request-id"))
}

func TestSendOmitsTrackingHeadersWithoutCorrelationID(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer ts.Close()

	c := NewClient(ts.Client(), staticToken("abc"))
	c.BaseURL = ts.URL

	req, err := c.NewRequest(context.Background(), http.MethodGet, "me", nil, nil)
	require.NoError(t, err)
	resp, err := c.Send(req, "  ")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, got.Get("client-request-id"))
	assert.Empty(t, got.Get("return-client-request-id"))
}

func TestSendFetchesTokenPerRequest(t *testing.T) {
	c, srv := newTestClient(t)
	calls := 0
	c.Tokens = TokenFunc(func(context.Context) (string, error) {
		calls++
		return graphtest.Token, nil
	})
	srv.AddSite("contoso.sharepoint.com", "/sites/Docs", "site-1")

	for range 3 {
		_, err := c.ResolveSite(context.Background(), "https://contoso.sharepoint.com/sites/Docs", "")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestSendTokenFailure(t *testing.T) {
	c, srv := newTestClient(t)
	boom := errors.New("tenant unreachable")
	c.Tokens = TokenFunc(func(context.Context) (string, error) { return "", boom })

	_, err := c.ResolveSite(context.Background(), "https://contoso.sharepoint.com/sites/Docs", "corr")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrAccessToken)
	assert.Contains(t, err.Error(), "acquiring access token")
	assert.Empty(t, srv.Calls(), "no request may be sent without a token")
}

func TestSendWithoutTokenProvider(t *testing.T) {
	c := NewClient(nil, nil)
	req, err := c.NewRequest(context.Background(), http.MethodGet, "me", nil, nil)
	require.NoError(t, err)
	_, err = c.Send(req, "")
	assert.Error(t, err)
}

func TestRequestErrorCapturesTrackingIDs(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Fail(graphtest.OpResolveSite, http.StatusForbidden, `{"error":{"code":"accessDenied"}}`)

	_, err := c.ResolveSite(context.Background(), "https://contoso.sharepoint.com/sites/Docs", "corr-42")

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "resolveSite", reqErr.Op)
	assert.Equal(t, http.StatusForbidden, reqErr.StatusCode)
	assert.Equal(t, "corr-42", reqErr.ClientRequestID)
	assert.NotEmpty(t, reqErr.RequestID)
	assert.Contains(t, reqErr.Body, "accessDenied")
	assert.Equal(t, "resolveSite failed: HTTP 403 Forbidden", reqErr.Error())
}

func TestNewRequestErrorFallsBackToMSHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("x-ms-client-request-id", "ms-corr")
	rec.WriteHeader(http.StatusBadGateway)
	rec.WriteString("upstream")

	e := newRequestError("upload", rec.Result())
	assert.Equal(t, "ms-corr", e.ClientRequestID)
	assert.Equal(t, "upstream", e.Body)
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/", ""},
		{"Temp", "Temp"},
		{"/a//b/", "a/b"},
		{`a\b`, "a/b"},
		{"My Folder/x#1", "My%20Folder/x%231"},
		{" spaced / out ", "spaced/out"},
	}
	for _, tt := range tests {
		if got := escapePath(tt.in); got != tt.want {
			t.Errorf("escapePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
