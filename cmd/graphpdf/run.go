// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/graphpdf/internal/auth"
	"github.com/pdiddy/graphpdf/internal/graph"
	"github.com/pdiddy/graphpdf/internal/pipeline"
	"github.com/pdiddy/graphpdf/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Convert one document to PDF",
	Long: `Run uploads --file to the temp folder of the configured library,
downloads the PDF rendition, optionally stores it in the PDF folder and on
disk, and deletes the temporary upload.

Settings come from the database. Any setting flag, GRAPHPDF_SETTINGS_*
environment variable, or settings: key in the config file overrides the
persisted value for this run only. A single OK or FAIL line is printed;
details are in the event log ("graphpdf history events <run-id>").`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindSettingFlags(cmd)
	},
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	filePath, _ := cmd.Flags().GetString("file")
	runID, _ := cmd.Flags().GetString("run-id")
	failuresOnly, _ := cmd.Flags().GetBool("log-failures-only")

	cfg, err := appConfig()
	if err != nil {
		return err
	}
	overrides, err := collectOverrides(viperLookup)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persisted, err := st.GetSettings(ctx)
	if err != nil {
		return err
	}
	settings := persisted.Apply(overrides)

	p := pipeline.New(newRemote(cfg, settings), st,
		pipeline.WithMetrics(st),
		pipeline.WithLogger(logger),
	)
	res, err := p.Run(ctx, pipeline.Request{
		RunID:           runID,
		FilePath:        filePath,
		Settings:        settings,
		LogFailuresOnly: failuresOnly,
	})
	if res.Summary != "" {
		printResult(cmd.OutOrStdout(), res)
	}
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if !res.Success {
		return errRunFailed
	}
	return nil
}

// newRemote builds the Graph client for one run.
func newRemote(cfg types.AppConfig, s types.Settings) *graph.Client {
	httpClient := &http.Client{Timeout: cfg.Graph.Timeout}
	tokens := auth.NewClientCredentials(cfg.Auth.Authority, s.TenantID, s.ClientID, s.ClientSecret, httpClient)
	client := graph.NewClient(httpClient, tokens)
	if cfg.Graph.BaseURL != "" {
		client.BaseURL = cfg.Graph.BaseURL
	}
	return client
}

// printResult writes the one-line outcome.
func printResult(w io.Writer, res pipeline.Result) {
	status := "OK"
	if !res.Success {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s runId=%s elapsedMs=%d inputBytes=%d pdfBytes=%d",
		status, res.RunID, res.Elapsed.Milliseconds(), res.InputBytes, res.PdfBytes)
	if !res.Success {
		fmt.Fprintf(w, " stage=%s kind=%s", res.FailedStage, res.FailureKind)
	}
	fmt.Fprintln(w)
}

func init() {
	runCmd.Flags().String("file", "", "document to convert (required)")
	runCmd.Flags().String("run-id", "", "run identifier (default: generated UUID)")
	runCmd.Flags().Bool("log-failures-only", false, "record only failure rows in the event log")
	_ = runCmd.MarkFlagRequired("file")
	addSettingFlags(runCmd)

	rootCmd.AddCommand(runCmd)
}
