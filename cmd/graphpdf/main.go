// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the graphpdf CLI.
// graphpdf converts one local document to PDF through a SharePoint drive
// and keeps the audit trail in a local SQLite database.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/graphpdf/internal/auth"
	"github.com/pdiddy/graphpdf/internal/secrets"
	"github.com/pdiddy/graphpdf/internal/store"
	"github.com/pdiddy/graphpdf/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds values loaded from the secrets directory at startup.
var loadedSecrets map[string]string

// logger writes diagnostics to stderr. Replaced in PersistentPreRunE.
var logger = zap.NewNop()

// errRunFailed is returned when a conversion fails. The summary line has
// already been printed, so main only sets the exit code.
var errRunFailed = errors.New("conversion failed")

// rootCmd is the base command for the graphpdf CLI.
var rootCmd = &cobra.Command{
	Use:   "graphpdf",
	Short: "Convert documents to PDF through SharePoint and Microsoft Graph",
	Long: `graphpdf uploads a local document to a SharePoint document library,
asks Microsoft Graph for a PDF rendition, optionally stores the PDF back in
SharePoint or on disk, and removes the temporary upload.

Every run is journaled in a local SQLite database. Use "graphpdf init" once
to create it, "graphpdf settings" to configure the target site and
credentials, and "graphpdf history" to inspect past runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetString("log_level"))
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./graphpdf.yaml or ~/.config/graphpdf/graphpdf.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (default ./data/graphpdf.db)")
	rootCmd.PersistentFlags().String("secrets-dir", "", "directory of secret files (default .secrets/)")
	rootCmd.PersistentFlags().String("log-level", "", "diagnostic log level: debug, info, warn, error")

	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("secrets_dir", rootCmd.PersistentFlags().Lookup("secrets-dir"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.SetDefault("db", filepath.Join("data", "graphpdf.db"))
	viper.SetDefault("secrets_dir", ".secrets/")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("graph.base_url", types.DefaultGraphBaseURL)
	viper.SetDefault("graph.timeout", "100s")
	viper.SetDefault("auth.authority", auth.DefaultAuthority)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("graphpdf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "graphpdf"))
		}
	}

	viper.SetEnvPrefix("GRAPHPDF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// appConfig decodes the process-level configuration.
func appConfig() (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the database with the client secret resolved from the
// secrets directory when present.
func openStore(cfg types.AppConfig) (*store.Store, error) {
	return store.Open(cfg.DBPath, store.WithSecrets(secrets.NewFiles(loadedSecrets)))
}

// newLogger builds a console logger on stderr at level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
