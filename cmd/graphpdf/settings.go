// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/graphpdf/internal/store"
	"github.com/pdiddy/graphpdf/pkg/types"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update the persisted conversion settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted settings (client secret redacted)",
	RunE:  runSettingsShow,
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	cfg, err := appConfig()
	if err != nil {
		return err
	}
	// Read the row as stored; the secrets directory is not consulted.
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	s, err := st.GetSettings(context.Background())
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return writeSettings(cmd.OutOrStdout(), s.Redacted(), jsonOutput)
}

func writeSettings(w io.Writer, s types.Settings, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update persisted settings from flags",
	Long: `Set updates only the fields whose flags are given, validates the
result, and writes it back. Unlike "run", environment variables and the
config file are not read here.`,
	RunE: runSettingsSet,
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	lookup := changedLookup(cmd)
	if v, ok := lookup("conflict_behavior"); ok {
		var c types.ConflictBehavior
		if err := c.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}
	o, err := collectOverrides(lookup)
	if err != nil {
		return err
	}

	cfg, err := appConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	current, err := st.GetSettings(ctx)
	if err != nil {
		return err
	}
	updated := current.Apply(o)
	if err := updated.Validate(); err != nil {
		return err
	}
	if err := st.UpdateSettings(ctx, updated); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK settings updated db='%s'\n", st.Path())
	return nil
}

func init() {
	settingsShowCmd.Flags().Bool("json", false, "output as JSON instead of YAML")
	addSettingFlags(settingsSetCmd)

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
