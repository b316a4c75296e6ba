// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Stage names a pipeline phase. The same strings are persisted in the
// event log, so values must not change.
type Stage string

const (
	StageValidateInput Stage = "validateInput"
	StageReadInput     Stage = "readInput"
	StageResolveSite   Stage = "resolveSite"
	StageResolveDrive  Stage = "resolveDrive"
	StageEnsureFolder  Stage = "ensureFolder"
	StageUpload        Stage = "upload"
	StageConvert       Stage = "convert"
	StageStorePdf      Stage = "storePdf"
	StageSavePdfLocal  Stage = "savePdfLocal"
	StageCleanup       Stage = "cleanup"
	StageDone          Stage = "done"
	StageUnknown       Stage = "unknown"
)

// Level is the severity of an event log row.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Run is one invocation of the pipeline.
type Run struct {
	RunID     string     `json:"run_id" yaml:"run_id"`
	StartedAt time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Success   bool       `json:"success" yaml:"success"`

	FileCountTotal     int   `json:"file_count_total" yaml:"file_count_total"`
	FileCountSucceeded int   `json:"file_count_succeeded" yaml:"file_count_succeeded"`
	FileCountFailed    int   `json:"file_count_failed" yaml:"file_count_failed"`
	TotalInputBytes    int64 `json:"total_input_bytes" yaml:"total_input_bytes"`
	TotalPdfBytes      int64 `json:"total_pdf_bytes" yaml:"total_pdf_bytes"`
}

// RunTotals is the final outcome written when a run finishes.
type RunTotals struct {
	EndedAt         time.Time
	Success         bool
	Total           int
	Succeeded       int
	Failed          int
	TotalInputBytes int64
	TotalPdfBytes   int64
}

// FileEvent is one file's journey within a run. Remote identifiers stay
// empty until observed and are never revised afterwards.
type FileEvent struct {
	ID        int64      `json:"id" yaml:"id"`
	RunID     string     `json:"run_id" yaml:"run_id"`
	FilePath  string     `json:"file_path" yaml:"file_path"`
	FileName  string     `json:"file_name" yaml:"file_name"`
	Extension string     `json:"extension" yaml:"extension"`
	SizeBytes int64      `json:"size_bytes" yaml:"size_bytes"`
	StartedAt time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Success   bool       `json:"success" yaml:"success"`

	DriveID    string `json:"drive_id,omitempty" yaml:"drive_id,omitempty"`
	TempItemID string `json:"temp_item_id,omitempty" yaml:"temp_item_id,omitempty"`
	PdfItemID  string `json:"pdf_item_id,omitempty" yaml:"pdf_item_id,omitempty"`
}

// FileOutcome is the final state written when a file finishes.
type FileOutcome struct {
	EndedAt    time.Time
	Success    bool
	DriveID    string
	TempItemID string
	PdfItemID  string
}

// EventLog is one append-only audit row. FileEventID is nil for
// run-level events.
type EventLog struct {
	ID          int64     `json:"id" yaml:"id"`
	RunID       string    `json:"run_id" yaml:"run_id"`
	FileEventID *int64    `json:"file_event_id,omitempty" yaml:"file_event_id,omitempty"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Level       Level     `json:"level" yaml:"level"`
	Stage       Stage     `json:"stage" yaml:"stage"`
	PayloadJSON string    `json:"payload_json" yaml:"payload_json"`
}

// ConversionMetric aggregates attempts for one source/target extension pair.
type ConversionMetric struct {
	SourceExtension string     `json:"source_extension" yaml:"source_extension"`
	TargetExtension string     `json:"target_extension" yaml:"target_extension"`
	ConversionCount int        `json:"conversion_count" yaml:"conversion_count"`
	SuccessCount    int        `json:"success_count" yaml:"success_count"`
	FailureCount    int        `json:"failure_count" yaml:"failure_count"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty" yaml:"last_attempt_at,omitempty"`
	LastSuccessAt   *time.Time `json:"last_success_at,omitempty" yaml:"last_success_at,omitempty"`
	LastFailureAt   *time.Time `json:"last_failure_at,omitempty" yaml:"last_failure_at,omitempty"`
}

// RunHistory is a run with its file events and event log, as exported by
// `graphpdf history export`.
type RunHistory struct {
	Run    Run         `json:"run" yaml:"run"`
	Files  []FileEvent `json:"files" yaml:"files"`
	Events []EventLog  `json:"events" yaml:"events"`
}
