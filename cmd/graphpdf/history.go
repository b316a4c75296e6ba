// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/graphpdf/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the run journal (runs, events, export)",
}

// --- runs subcommand ---

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs, newest first",
	RunE:  runHistoryRuns,
}

func runHistoryRuns(cmd *cobra.Command, args []string) error {
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
	runs, err := st.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), runs)
	}
	formatRuns(cmd.OutOrStdout(), runs)
	return nil
}

func formatRuns(w io.Writer, runs []types.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-20s  %-6s  %12s  %12s  %s\n",
		"Run", "Started", "Result", "InputBytes", "PdfBytes", "Elapsed")
	fmt.Fprintln(w, strings.Repeat("-", 104))
	for _, r := range runs {
		result := "FAIL"
		if r.Success {
			result = "OK"
		}
		elapsed := "-"
		if r.EndedAt == nil {
			result = "OPEN"
		} else {
			elapsed = r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-6s  %12d  %12d  %s\n",
			r.RunID, r.StartedAt.Format(time.DateTime), result, r.TotalInputBytes, r.TotalPdfBytes, elapsed)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

// --- events subcommand ---

var historyEventsCmd = &cobra.Command{
	Use:   "events <run-id>",
	Short: "Print the event log of one run in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryEvents,
}

func runHistoryEvents(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := appConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if _, err := st.GetRun(ctx, args[0]); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	events, err := st.ListEvents(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), events)
	}
	formatEvents(cmd.OutOrStdout(), events)
	return nil
}

func formatEvents(w io.Writer, events []types.EventLog) {
	for _, e := range events {
		fmt.Fprintf(w, "%s %-5s %-14s %s\n",
			e.Timestamp.Format(time.RFC3339), e.Level, e.Stage, e.PayloadJSON)
	}
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export [run-id...]",
	Short: "Export runs with their file events and event logs to YAML or JSON",
	Long: `Export writes the full journal of the given runs, or of the most
recent --limit runs when none are given, to --output (default stdout).`,
	RunE: runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	limit, _ := cmd.Flags().GetInt("limit")

	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	cfg, err := appConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()

	ids := args
	if len(ids) == 0 {
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			ids = append(ids, r.RunID)
		}
	}
	histories := make([]types.RunHistory, 0, len(ids))
	for _, id := range ids {
		h, err := st.History(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		histories = append(histories, h)
	}

	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := writeHistories(w, histories, format); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d runs to %s\n", len(histories), output)
	}
	return nil
}

func writeHistories(w io.Writer, histories []types.RunHistory, format string) error {
	if format == "json" {
		return writeJSON(w, histories)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(histories); err != nil {
		return err
	}
	return enc.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	historyRunsCmd.Flags().Int("limit", 20, "maximum runs to list")
	historyRunsCmd.Flags().Bool("json", false, "output as JSON")
	historyEventsCmd.Flags().Bool("json", false, "output as JSON")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("output", "", "output file (default stdout)")
	historyExportCmd.Flags().Int("limit", 20, "runs to export when no run ids are given")

	historyCmd.AddCommand(historyRunsCmd)
	historyCmd.AddCommand(historyEventsCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
