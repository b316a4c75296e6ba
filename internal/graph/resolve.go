// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type siteResponse struct {
	ID string `json:"id"`
}

type driveResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type driveListResponse struct {
	Value []driveResponse `json:"value"`
}

// SiteAddress splits a SharePoint site URL into the host and
// server-relative path Graph addresses sites by. The path must contain
// more than the root.
func SiteAddress(siteURL string) (host, path string, err error) {
	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil {
		return "", "", fmt.Errorf("parsing site URL %q: %w", siteURL, err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("site URL %q has no host: %w", siteURL, ErrInvalidSiteURL)
	}
	path = strings.TrimRight(u.Path, "/")
	if path == "" {
		return "", "", fmt.Errorf("site URL %q: %w", siteURL, ErrInvalidSiteURL)
	}
	return u.Hostname(), path, nil
}

// ResolveSite returns the Graph site id for siteURL via
// GET sites/{host}:{path}. A URL without a site path fails before any
// request is made.
func (c *Client) ResolveSite(ctx context.Context, siteURL, correlationID string) (string, error) {
	const op = "resolveSite"

	host, path, err := SiteAddress(siteURL)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodGet, "sites/"+url.PathEscape(host)+":/"+escapePath(path), nil, nil, "", correlationID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", newRequestError(op, resp)
	}

	var site siteResponse
	if err := decodeJSON(op, resp, &site); err != nil {
		return "", err
	}
	if strings.TrimSpace(site.ID) == "" {
		return "", missingField(op, "id")
	}
	return site.ID, nil
}

// ResolveDrive lists the site's drives and returns the id of the first one
// whose name equals libraryName, ignoring case. No match is
// ErrLibraryNotFound.
func (c *Client) ResolveDrive(ctx context.Context, siteID, libraryName, correlationID string) (string, error) {
	const op = "resolveDrive"

	resp, err := c.do(ctx, http.MethodGet, "sites/"+url.PathEscape(siteID)+"/drives", nil, nil, "", correlationID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", newRequestError(op, resp)
	}

	var list driveListResponse
	if err := decodeJSON(op, resp, &list); err != nil {
		return "", err
	}
	for _, d := range list.Value {
		if !strings.EqualFold(d.Name, libraryName) {
			continue
		}
		if strings.TrimSpace(d.ID) == "" {
			return "", missingField(op, "id")
		}
		return d.ID, nil
	}
	return "", fmt.Errorf("%s: %w: %q", op, ErrLibraryNotFound, libraryName)
}
