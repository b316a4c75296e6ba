// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/graphpdf/pkg/types"
)

type itemResponse struct {
	ID string `json:"id"`
}

// DeleteResult reports how a delete ended.
type DeleteResult struct {
	// AlreadyGone is true when Graph answered 404: the item did not exist.
	AlreadyGone bool
}

// UploadToFolder PUTs content to root:/{folder}/{fileName}:/content with
// the given conflict behavior and returns the new item id. An empty folder
// uploads to the drive root.
func (c *Client) UploadToFolder(ctx context.Context, driveID, folder, fileName string, content []byte, conflict types.ConflictBehavior, correlationID string) (string, error) {
	const op = "upload"

	target := strings.TrimRight(strings.TrimSpace(folder), "/")
	if target != "" {
		target += "/"
	}
	target += fileName

	query := url.Values{"@microsoft.graph.conflictBehavior": {conflict.GraphValue()}}
	path := drivePath(driveID, "root:/"+escapePath(target)+":/content")

	resp, err := c.do(ctx, http.MethodPut, path, query, bytes.NewReader(content), "application/octet-stream", correlationID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", newRequestError(op, resp)
	}

	var item itemResponse
	if err := decodeJSON(op, resp, &item); err != nil {
		return "", err
	}
	if strings.TrimSpace(item.ID) == "" {
		return "", missingField(op, "id")
	}
	return item.ID, nil
}

// DownloadPDF asks Graph to render the item as PDF
// (GET items/{itemID}/content?format=pdf) and returns the bytes. Only
// HTTP 200 is success; the HTTP client follows Graph's redirect to the
// rendition.
func (c *Client) DownloadPDF(ctx context.Context, driveID, itemID, correlationID string) ([]byte, error) {
	const op = "convert"

	query := url.Values{"format": {"pdf"}}
	resp, err := c.do(ctx, http.MethodGet, drivePath(driveID, "items/"+url.PathEscape(itemID)+"/content"), query, nil, "", correlationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newRequestError(op, resp)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading PDF body: %w", op, err)
	}
	return data, nil
}

// DeleteItem removes an item. 204 and 200 are success; 404 is also
// success, reported as AlreadyGone, so repeating a cleanup is harmless.
// Any other status is a RequestError.
func (c *Client) DeleteItem(ctx context.Context, driveID, itemID, correlationID string) (DeleteResult, error) {
	const op = "cleanup(delete)"

	resp, err := c.do(ctx, http.MethodDelete, drivePath(driveID, "items/"+url.PathEscape(itemID)), nil, nil, "", correlationID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		discard(resp)
		return DeleteResult{}, nil
	case http.StatusNotFound:
		discard(resp)
		return DeleteResult{AlreadyGone: true}, nil
	default:
		return DeleteResult{}, newRequestError(op, resp)
	}
}
