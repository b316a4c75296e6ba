// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package auth obtains app-only bearer tokens for Microsoft Graph using the
// Azure AD client-credentials flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultAuthority is the Azure AD login host.
const DefaultAuthority = "https://login.microsoftonline.com"

// GraphScope requests every application permission granted to the app.
const GraphScope = "https://graph.microsoft.com/.default"

// ClientCredentials is a graph.TokenProvider backed by an app registration.
// Each call to Token performs a token request; nothing is cached.
type ClientCredentials struct {
	cfg    clientcredentials.Config
	tenant string
	http   *http.Client
}

// NewClientCredentials returns a provider for tenantID/clientID/secret.
// An empty authority uses DefaultAuthority. httpClient may be nil.
// Missing credentials are reported by Token, not here.
func NewClientCredentials(authority, tenantID, clientID, clientSecret string, httpClient *http.Client) *ClientCredentials {
	tenantID = strings.TrimSpace(tenantID)
	clientID = strings.TrimSpace(clientID)
	if strings.TrimSpace(authority) == "" {
		authority = DefaultAuthority
	}
	return &ClientCredentials{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     TokenURL(authority, tenantID),
			Scopes:       []string{GraphScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		tenant: tenantID,
		http:   httpClient,
	}
}

// ErrMissingCredentials means the tenant, client id or secret is empty.
var ErrMissingCredentials = errors.New("tenant id, client id and client secret are required")

// TokenURL returns the v2.0 token endpoint for a tenant.
func TokenURL(authority, tenantID string) string {
	return strings.TrimRight(authority, "/") + "/" + tenantID + "/oauth2/v2.0/token"
}

// Token requests a fresh access token.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	if c.tenant == "" || c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", ErrMissingCredentials
	}
	if c.http != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	}
	tok, err := c.cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("client credentials token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("client credentials token: empty access token")
	}
	return tok.AccessToken, nil
}
