// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAccessToken wraps a token provider failure. The request was not sent.
var ErrAccessToken = errors.New("acquiring access token")

// Domain errors: the remote call succeeded but the answer is unusable.
var (
	// ErrInvalidSiteURL means the site URL has no server-relative path.
	ErrInvalidSiteURL = errors.New("site URL must include a site path like https://tenant.sharepoint.com/sites/SiteName")

	// ErrLibraryNotFound means no drive on the site matched the library name.
	ErrLibraryNotFound = errors.New("document library not found")

	// ErrMissingField means a successful response lacked a required field.
	ErrMissingField = errors.New("required field missing from Graph response")
)

// RequestError is a non-success HTTP status returned by Graph.
type RequestError struct {
	// Op names the Graph operation, e.g. "resolveSite" or "ensureFolder(get)".
	Op         string
	StatusCode int

	// Body is the response body, bounded by httputil.MaxCapturedBody.
	Body string

	// RequestID is Graph's request-id header; ClientRequestID echoes the
	// correlation id sent with the request.
	RequestID       string
	ClientRequestID string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s failed: HTTP %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

func missingField(op, field string) error {
	return fmt.Errorf("%s: %w: %q", op, ErrMissingField, field)
}
