// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline converts one local document to PDF by staging it in a
// SharePoint drive. Stages run strictly in order:
//
//	resolveSite → resolveDrive → ensureFolder → upload → convert
//	  → [storePdf] → [savePdfLocal] → [cleanup] → done
//
// The first failure ends the run. Every run is journaled: a Run row, a
// FileEvent row and one EventLog row per completed stage, plus exactly one
// error row on failure. The Run and FileEvent rows are finalized whatever
// the outcome, including cancellation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/graphpdf/internal/graph"
	"github.com/pdiddy/graphpdf/internal/pdfinfo"
	"github.com/pdiddy/graphpdf/pkg/types"
)

// Remote is the subset of the Graph client the pipeline drives.
type Remote interface {
	ResolveSite(ctx context.Context, siteURL, correlationID string) (string, error)
	ResolveDrive(ctx context.Context, siteID, libraryName, correlationID string) (string, error)
	EnsureFolder(ctx context.Context, driveID, folderPath, correlationID string) error
	UploadToFolder(ctx context.Context, driveID, folder, fileName string, content []byte, conflict types.ConflictBehavior, correlationID string) (string, error)
	DownloadPDF(ctx context.Context, driveID, itemID, correlationID string) ([]byte, error)
	DeleteItem(ctx context.Context, driveID, itemID, correlationID string) (graph.DeleteResult, error)
}

// Journal records run lifecycle and the event log.
type Journal interface {
	InsertRunStarted(ctx context.Context, run types.Run) error
	UpdateRunFinished(ctx context.Context, runID string, totals types.RunTotals) error
	InsertFileStarted(ctx context.Context, fe types.FileEvent) (int64, error)
	UpdateFileFinished(ctx context.Context, id int64, outcome types.FileOutcome) error
	InsertEvent(ctx context.Context, e types.EventLog) error
}

// MetricsSink receives one conversion attempt per run.
type MetricsSink interface {
	TrackConversion(ctx context.Context, sourceExt, targetExt string, success bool, at time.Time) error
}

// Request describes one conversion.
type Request struct {
	// RunID identifies the run. Empty generates a UUID.
	RunID string

	FilePath string
	Settings types.Settings

	// LogFailuresOnly suppresses event rows for successful stages.
	LogFailuresOnly bool
}

// Result is the outcome of Run.
type Result struct {
	RunID   string
	Success bool

	// Summary is a one-line description, e.g. "OK file='a.docx' pdfBytes=1234".
	Summary string

	// InputBytes is the input file length once known, even on failure.
	InputBytes int64

	// PdfBytes is zero unless conversion completed.
	PdfBytes int64

	Elapsed time.Duration

	// FailedStage and FailureKind are set when Success is false.
	FailedStage types.Stage
	FailureKind Kind
}

// Pipeline wires the remote drive to the journal.
type Pipeline struct {
	remote  Remote
	journal Journal
	metrics MetricsSink
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records each attempt in sink.
func WithMetrics(sink MetricsSink) Option {
	return func(p *Pipeline) { p.metrics = sink }
}

// WithLogger sets the diagnostics logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the timestamp source for journal rows.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New returns a Pipeline.
func New(remote Remote, journal Journal, opts ...Option) *Pipeline {
	p := &Pipeline{
		remote:  remote,
		journal: journal,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one conversion. The returned error is non-nil only when
// the journal itself could not be written; a conversion failure is
// reported through Result with a nil error. If the run start cannot be
// recorded nothing else is attempted.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	clock := time.Now()
	r := &run{
		p:        p,
		req:      req,
		runID:    strings.TrimSpace(req.RunID),
		started:  p.now(),
		filePath: req.FilePath,
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.log = p.logger.With(zap.String("run_id", r.runID))

	if err := p.journal.InsertRunStarted(ctx, types.Run{RunID: r.runID, StartedAt: r.started}); err != nil {
		return Result{RunID: r.runID, Elapsed: time.Since(clock)}, fmt.Errorf("recording run start: %w", err)
	}

	runErr := r.execute(ctx)

	var journalErrs []error
	if runErr != nil {
		if err := r.recordFailure(context.WithoutCancel(ctx), runErr); err != nil {
			journalErrs = append(journalErrs, err)
		}
	} else if err := r.event(context.WithoutCancel(ctx), types.LevelInfo, types.StageDone, payload{
		"elapsedMs":  time.Since(clock).Milliseconds(),
		"inputBytes": r.inputBytes,
		"pdfBytes":   int64(len(r.pdf)),
	}); err != nil {
		// The conversion itself succeeded; only the closing row is missing.
		journalErrs = append(journalErrs, err)
	}

	success := runErr == nil
	journalErrs = append(journalErrs, r.finalize(context.WithoutCancel(ctx), success)...)

	res := Result{
		RunID:      r.runID,
		Success:    success,
		InputBytes: r.inputBytes,
		Elapsed:    time.Since(clock),
	}
	if r.converted {
		res.PdfBytes = int64(len(r.pdf))
	}
	if success {
		res.Summary = fmt.Sprintf("OK file='%s' pdfBytes=%d", r.fileName, res.PdfBytes)
		r.log.Info("run finished", zap.Int64("input_bytes", res.InputBytes), zap.Int64("pdf_bytes", res.PdfBytes), zap.Duration("elapsed", res.Elapsed))
	} else {
		res.FailedStage = StageOf(runErr)
		res.FailureKind = Classify(runErr)
		res.Summary = fmt.Sprintf("FAIL file='%s' stage=%s kind=%s (%s)", r.fileName, res.FailedStage, res.FailureKind, errorType(runErr))
		r.log.Warn("run failed", zap.String("stage", string(res.FailedStage)), zap.String("kind", string(res.FailureKind)), zap.Error(runErr))
	}
	return res, errors.Join(journalErrs...)
}

// run is the state of one Run call.
type run struct {
	p   *Pipeline
	req Request
	log *zap.Logger

	runID         string
	correlationID string
	started       time.Time

	filePath    string
	fileName    string
	extension   string
	input       []byte
	inputBytes  int64
	fileEventID *int64

	driveID    string
	tempItemID string
	pdfItemID  string
	pdf        []byte
	converted  bool
}

func (r *run) execute(ctx context.Context) error {
	s := r.req.Settings

	if err := r.validate(); err != nil {
		return stageErr(types.StageValidateInput, err)
	}
	if err := r.readInput(ctx); err != nil {
		return stageErr(types.StageReadInput, err)
	}

	id, err := r.p.journal.InsertFileStarted(ctx, types.FileEvent{
		RunID:     r.runID,
		FilePath:  r.filePath,
		FileName:  r.fileName,
		Extension: r.extension,
		SizeBytes: r.inputBytes,
		StartedAt: r.p.now(),
	})
	if err != nil {
		return persistenceErr(types.StageReadInput, fmt.Errorf("recording file start: %w", err))
	}
	r.fileEventID = &id
	r.correlationID = uuid.NewString()
	r.log = r.log.With(zap.String("correlation_id", r.correlationID))

	siteID, err := r.p.remote.ResolveSite(ctx, s.SiteURL, r.correlationID)
	if err != nil {
		return stageErr(types.StageResolveSite, err)
	}
	if err := r.stageDone(ctx, types.StageResolveSite, payload{"siteId": siteID, "file": r.fileInfo()}); err != nil {
		return err
	}

	r.driveID, err = r.p.remote.ResolveDrive(ctx, siteID, s.LibraryName, r.correlationID)
	if err != nil {
		return stageErr(types.StageResolveDrive, err)
	}
	if err := r.stageDone(ctx, types.StageResolveDrive, payload{"siteId": siteID, "driveId": r.driveID, "libraryName": s.LibraryName}); err != nil {
		return err
	}

	if err := r.p.remote.EnsureFolder(ctx, r.driveID, s.TempFolder, r.correlationID); err != nil {
		return stageErr(types.StageEnsureFolder, err)
	}
	if s.StoresPdf() {
		if err := r.p.remote.EnsureFolder(ctx, r.driveID, s.PdfFolder, r.correlationID); err != nil {
			return stageErr(types.StageEnsureFolder, err)
		}
	}
	if err := r.stageDone(ctx, types.StageEnsureFolder, payload{"tempFolder": s.TempFolder, "pdfFolder": s.PdfFolder}); err != nil {
		return err
	}

	r.tempItemID, err = r.p.remote.UploadToFolder(ctx, r.driveID, s.TempFolder, r.fileName, r.input, s.ConflictBehavior, r.correlationID)
	if err != nil {
		return stageErr(types.StageUpload, err)
	}
	if err := r.stageDone(ctx, types.StageUpload, payload{
		"driveId":          r.driveID,
		"tempItemId":       r.tempItemID,
		"conflictBehavior": s.ConflictBehavior.GraphValue(),
		"uploadedBytes":    r.inputBytes,
	}); err != nil {
		return err
	}

	r.pdf, err = r.p.remote.DownloadPDF(ctx, r.driveID, r.tempItemID, r.correlationID)
	if err != nil {
		return stageErr(types.StageConvert, err)
	}
	r.converted = true
	convertPayload := payload{"driveId": r.driveID, "tempItemId": r.tempItemID, "pdfBytes": int64(len(r.pdf))}
	if pages, err := pdfinfo.PageCount(r.pdf); err == nil {
		convertPayload["pdfPages"] = pages
	} else {
		r.log.Debug("page count unavailable", zap.Error(err))
	}
	if err := r.stageDone(ctx, types.StageConvert, convertPayload); err != nil {
		return err
	}

	if s.StoresPdf() {
		pdfName := pdfFileName(r.fileName)
		// PDF storage always replaces, whatever the upload policy.
		r.pdfItemID, err = r.p.remote.UploadToFolder(ctx, r.driveID, s.PdfFolder, pdfName, r.pdf, types.ConflictReplace, r.correlationID)
		if err != nil {
			return stageErr(types.StageStorePdf, err)
		}
		if err := r.stageDone(ctx, types.StageStorePdf, payload{
			"driveId":                   r.driveID,
			"pdfItemId":                 r.pdfItemID,
			"pdfName":                   pdfName,
			"pdfFolder":                 s.PdfFolder,
			"conflictBehavior":          types.ConflictReplace.GraphValue(),
			"requestedConflictBehavior": s.ConflictBehavior.GraphValue(),
		}); err != nil {
			return err
		}
	}

	if s.SaveLocalPdf {
		dir := s.LocalPdfDir
		if strings.TrimSpace(dir) == "" {
			dir = filepath.Dir(r.filePath)
		}
		path, err := writeFileAtomic(ctx, dir, pdfFileName(r.fileName), r.pdf)
		if err != nil {
			return stageErr(types.StageSavePdfLocal, err)
		}
		if err := r.stageDone(ctx, types.StageSavePdfLocal, payload{"localPath": path, "pdfBytes": int64(len(r.pdf))}); err != nil {
			return err
		}
	}

	if s.CleanupTemp && r.tempItemID != "" {
		res, err := r.p.remote.DeleteItem(ctx, r.driveID, r.tempItemID, r.correlationID)
		if err != nil {
			return stageErr(types.StageCleanup, err)
		}
		if err := r.stageDone(ctx, types.StageCleanup, payload{
			"driveId":     r.driveID,
			"tempItemId":  r.tempItemID,
			"alreadyGone": res.AlreadyGone,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) validate() error {
	if strings.TrimSpace(r.filePath) == "" {
		return ErrNoInputFile
	}
	if abs, err := filepath.Abs(r.filePath); err == nil {
		r.filePath = abs
	}
	r.fileName = filepath.Base(r.filePath)
	r.extension = strings.ToLower(strings.TrimPrefix(filepath.Ext(r.fileName), "."))

	info, err := os.Stat(r.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrInputNotFound, r.filePath)
	}
	if err != nil {
		return fmt.Errorf("checking input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInputIsDir, r.filePath)
	}
	// Reported even when settings are rejected.
	r.inputBytes = info.Size()

	if err := r.req.Settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}

func (r *run) readInput(ctx context.Context) error {
	data, err := readFile(ctx, r.filePath)
	if err != nil {
		return err
	}
	r.input = data
	r.inputBytes = int64(len(data))
	return nil
}

// stageDone logs a completed stage to zap and, unless suppressed, to the
// event log.
func (r *run) stageDone(ctx context.Context, stage types.Stage, p payload) error {
	r.log.Debug("stage complete", zap.String("stage", string(stage)))
	if err := r.event(ctx, types.LevelInfo, stage, p); err != nil {
		return persistenceErr(stage, err)
	}
	return nil
}

// event writes a success row. Rows are skipped when only failures are logged.
func (r *run) event(ctx context.Context, level types.Level, stage types.Stage, p payload) error {
	if r.req.LogFailuresOnly {
		return nil
	}
	p["runId"] = r.runID
	p["stage"] = stage
	p["success"] = true
	return r.insertEvent(ctx, level, stage, p)
}

func (r *run) insertEvent(ctx context.Context, level types.Level, stage types.Stage, p payload) error {
	return r.p.journal.InsertEvent(ctx, types.EventLog{
		RunID:       r.runID,
		FileEventID: r.fileEventID,
		Timestamp:   r.p.now(),
		Level:       level,
		Stage:       stage,
		PayloadJSON: p.JSON(),
	})
}

// recordFailure writes the single error row for runErr. Callers pass a
// context detached from cancellation so an aborted run still leaves its
// trace.
func (r *run) recordFailure(ctx context.Context, runErr error) error {
	stage := StageOf(runErr)
	if err := r.insertEvent(ctx, types.LevelError, stage, r.failurePayload(stage, runErr)); err != nil {
		return fmt.Errorf("recording %s failure: %w", stage, err)
	}
	return nil
}

// finalize closes the FileEvent (if one was opened), the Run and the
// metrics row. Each write is attempted even if an earlier one fails.
func (r *run) finalize(ctx context.Context, success bool) []error {
	var errs []error
	ended := r.p.now()

	if r.fileEventID != nil {
		err := r.p.journal.UpdateFileFinished(ctx, *r.fileEventID, types.FileOutcome{
			EndedAt:    ended,
			Success:    success,
			DriveID:    r.driveID,
			TempItemID: r.tempItemID,
			PdfItemID:  r.pdfItemID,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("finalizing file event: %w", err))
		}
	}

	totals := types.RunTotals{
		EndedAt:         ended,
		Success:         success,
		Total:           1,
		TotalInputBytes: r.inputBytes,
	}
	if success {
		totals.Succeeded = 1
	} else {
		totals.Failed = 1
	}
	if r.converted {
		totals.TotalPdfBytes = int64(len(r.pdf))
	}
	if err := r.p.journal.UpdateRunFinished(ctx, r.runID, totals); err != nil {
		errs = append(errs, fmt.Errorf("finalizing run: %w", err))
	}

	if r.p.metrics != nil && r.extension != "" {
		if err := r.p.metrics.TrackConversion(ctx, r.extension, "pdf", success, ended); err != nil {
			// Metrics never change the outcome.
			r.log.Warn("tracking conversion metrics", zap.Error(err))
		}
	}
	return errs
}

func (r *run) fileInfo() payload {
	return payload{
		"path":      r.filePath,
		"name":      r.fileName,
		"extension": r.extension,
		"sizeBytes": r.inputBytes,
	}
}

// pdfFileName replaces the extension of name with ".pdf".
func pdfFileName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".pdf"
}
