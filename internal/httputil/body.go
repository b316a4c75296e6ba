// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the remote client and
// the pipeline's failure log.
package httputil

import (
	"io"
	"net/http"
	"unicode/utf8"
)

// MaxCapturedBody bounds how much of an error response body is kept in memory.
const MaxCapturedBody = 64 << 10

// TruncatedSuffix marks a string shortened by Truncate.
const TruncatedSuffix = "...(truncated)"

// ReadBodySafe reads at most limit bytes of resp.Body and returns them as a
// string. Read errors yield whatever was read so far; a failing body never
// masks the status code that led to reading it. The body is drained and
// closed.
func ReadBodySafe(resp *http.Response, limit int64) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	defer resp.Body.Close()
	if limit <= 0 {
		limit = MaxCapturedBody
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, limit))
	io.Copy(io.Discard, resp.Body)
	return string(data)
}

// Truncate shortens s to at most max bytes plus TruncatedSuffix, cutting on
// a rune boundary.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncatedSuffix
}
