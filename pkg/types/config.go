// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultGraphBaseURL is the Microsoft Graph v1.0 surface.
const DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0/"

// GraphConfig holds transport settings for the remote client.
type GraphConfig struct {
	// BaseURL is the Graph endpoint every request path is resolved against.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each HTTP exchange at the transport level. The
	// pipeline itself imposes no per-call deadline.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// AuthConfig holds token endpoint settings.
type AuthConfig struct {
	// Authority is the Azure AD host, e.g. https://login.microsoftonline.com.
	Authority string `json:"authority" yaml:"authority" mapstructure:"authority"`
}

// AppConfig groups process-level configuration loaded through viper.
// Conversion settings live in the database, not here.
type AppConfig struct {
	// DBPath is the SQLite database file (default ./data/graphpdf.db).
	DBPath string `json:"db" yaml:"db" mapstructure:"db"`

	// SecretsDir holds one file per secret (e.g. client-secret).
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir" mapstructure:"secrets_dir"`

	// LogLevel is the zap level for diagnostics on stderr.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	Graph GraphConfig `json:"graph" yaml:"graph" mapstructure:"graph"`
	Auth  AuthConfig  `json:"auth" yaml:"auth" mapstructure:"auth"`
}
