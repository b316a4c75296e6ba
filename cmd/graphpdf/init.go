// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and seed default settings",
	Long: `Init creates the SQLite schema and seeds the settings row with
placeholder values. Running it again leaves existing settings untouched.
Edit the seeded values with "graphpdf settings set".`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := appConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	seeded, err := st.Init(context.Background())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !seeded {
		fmt.Fprintf(out, "OK init db='%s' (settings already present, unchanged)\n", st.Path())
		return nil
	}
	fmt.Fprintf(out, "OK init db='%s' (settings seeded with placeholders)\n", st.Path())
	fmt.Fprintln(out, "Next: graphpdf settings set --site-url ... --tenant-id ... --client-id ... --client-secret ...")
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
