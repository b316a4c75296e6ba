// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pdiddy/graphpdf/internal/graph"
	"github.com/pdiddy/graphpdf/internal/httputil"
	"github.com/pdiddy/graphpdf/pkg/types"
)

// MaxLoggedBody bounds the Graph response body stored in a failure row.
const MaxLoggedBody = 2000

// payload is the JSON object stored with an event log row.
type payload map[string]any

// JSON renders p compactly. Values are plain strings, numbers, bools and
// nested payloads, so encoding cannot fail in practice.
func (p payload) JSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf(`{"payloadError":%q}`, err.Error())
	}
	return string(b)
}

// failurePayload describes runErr for the single error row of a run.
func (r *run) failurePayload(stage types.Stage, runErr error) payload {
	p := payload{
		"runId":     r.runID,
		"stage":     stage,
		"success":   false,
		"kind":      Classify(runErr),
		"errorType": errorType(runErr),
		"message":   runErr.Error(),
		"graph":     nil,
		"file":      r.fileInfo(),
	}
	if r.correlationID != "" {
		p["correlationId"] = r.correlationID
	}

	var reqErr *graph.RequestError
	if errors.As(runErr, &reqErr) {
		p["graph"] = payload{
			"op":              reqErr.Op,
			"statusCode":      reqErr.StatusCode,
			"requestId":       reqErr.RequestID,
			"clientRequestId": reqErr.ClientRequestID,
			"responseBody":    httputil.Truncate(reqErr.Body, MaxLoggedBody),
		}
	}
	return p
}

// errorType names the innermost error type, e.g. "*graph.RequestError".
func errorType(err error) string {
	var reqErr *graph.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("%T", reqErr)
	}
	return fmt.Sprintf("%T", rootCause(err))
}
