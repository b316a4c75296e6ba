// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type createFolderRequest struct {
	Name             string   `json:"name"`
	Folder           struct{} `json:"folder"`
	ConflictBehavior string   `json:"@microsoft.graph.conflictBehavior"`
}

// EnsureFolder makes sure folderPath exists under the drive root. An empty
// path is a no-op. Nested paths ("a/b/c") are created one level at a time,
// checking each level with GET root:/{prefix} first. Creation uses
// conflict behavior "fail", so losing a creation race is an error rather
// than a silent success.
func (c *Client) EnsureFolder(ctx context.Context, driveID, folderPath, correlationID string) error {
	segments := splitPath(folderPath)
	for i := range segments {
		parent := strings.Join(segments[:i], "/")
		current := strings.Join(segments[:i+1], "/")

		exists, err := c.folderExists(ctx, driveID, current, correlationID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := c.createFolder(ctx, driveID, parent, segments[i], correlationID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) folderExists(ctx context.Context, driveID, path, correlationID string) (bool, error) {
	const op = "ensureFolder(get)"

	resp, err := c.do(ctx, http.MethodGet, drivePath(driveID, "root:/"+escapePath(path)), nil, nil, "", correlationID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		discard(resp)
		return true, nil
	case http.StatusNotFound:
		discard(resp)
		return false, nil
	default:
		return false, newRequestError(op, resp)
	}
}

func (c *Client) createFolder(ctx context.Context, driveID, parent, name, correlationID string) error {
	const op = "ensureFolder(post)"

	children := "root/children"
	if parent != "" {
		children = "root:/" + escapePath(parent) + ":/children"
	}

	body, err := json.Marshal(createFolderRequest{Name: name, ConflictBehavior: "fail"})
	if err != nil {
		return fmt.Errorf("%s: encoding body: %w", op, err)
	}

	resp, err := c.do(ctx, http.MethodPost, drivePath(driveID, children), nil, bytes.NewReader(body), "application/json", correlationID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return newRequestError(op, resp)
	}
	discard(resp)
	return nil
}
