// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/graphpdf/pkg/types"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List conversion counts per source/target extension",
	RunE:  runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := appConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	metrics, err := st.TopMetrics(context.Background(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), metrics)
	}
	formatMetrics(cmd.OutOrStdout(), metrics)
	return nil
}

func formatMetrics(w io.Writer, metrics []types.ConversionMetric) {
	if len(metrics) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return
	}
	fmt.Fprintf(w, "%-8s  %-6s  %8s  %8s  %8s  %s\n",
		"Source", "Target", "Total", "OK", "Failed", "Last attempt")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, m := range metrics {
		last := "-"
		if m.LastAttemptAt != nil {
			last = m.LastAttemptAt.Format(time.DateTime)
		}
		fmt.Fprintf(w, "%-8s  %-6s  %8d  %8d  %8d  %s\n",
			m.SourceExtension, m.TargetExtension, m.ConversionCount, m.SuccessCount, m.FailureCount, last)
	}
}

func init() {
	metricsCmd.Flags().Int("limit", 25, "maximum extension pairs to list")
	metricsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(metricsCmd)
}
