// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pdiddy/graphpdf/pkg/types"
)

// InsertRunStarted records a run in its started state.
func (s *Store) InsertRunStarted(ctx context.Context, run types.Run) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
			run.RunID, formatTime(run.StartedAt))
		if err != nil {
			return fmt.Errorf("inserting run %s: %w", run.RunID, err)
		}
		return nil
	})
}

// UpdateRunFinished writes the outcome and totals of a run.
func (s *Store) UpdateRunFinished(ctx context.Context, runID string, t types.RunTotals) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE runs SET ended_at = ?, success = ?, file_count_total = ?,
				file_count_succeeded = ?, file_count_failed = ?,
				total_input_bytes = ?, total_pdf_bytes = ?
			WHERE run_id = ?`,
			formatTime(t.EndedAt), boolInt(t.Success), t.Total, t.Succeeded, t.Failed,
			t.TotalInputBytes, t.TotalPdfBytes, runID)
		if err != nil {
			return fmt.Errorf("updating run %s: %w", runID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("updating run %s: %w", runID, ErrRunNotFound)
		}
		return nil
	})
}

// InsertFileStarted records a file event and returns its id.
func (s *Store) InsertFileStarted(ctx context.Context, fe types.FileEvent) (int64, error) {
	var id int64
	err := s.withDB(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO file_events (run_id, file_path, file_name, extension, size_bytes, started_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			fe.RunID, fe.FilePath, fe.FileName, fe.Extension, fe.SizeBytes, formatTime(fe.StartedAt))
		if err != nil {
			return fmt.Errorf("inserting file event for run %s: %w", fe.RunID, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// UpdateFileFinished writes the outcome of a file event. Identifiers that
// are already set are kept; empty identifiers leave the column untouched.
func (s *Store) UpdateFileFinished(ctx context.Context, id int64, o types.FileOutcome) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`UPDATE file_events SET ended_at = ?, success = ?,
				drive_id = COALESCE(drive_id, ?),
				temp_item_id = COALESCE(temp_item_id, ?),
				pdf_item_id = COALESCE(pdf_item_id, ?)
			WHERE id = ?`,
			formatTime(o.EndedAt), boolInt(o.Success),
			nullString(o.DriveID), nullString(o.TempItemID), nullString(o.PdfItemID), id)
		if err != nil {
			return fmt.Errorf("updating file event %d: %w", id, err)
		}
		return nil
	})
}

// InsertEvent appends one event log row.
func (s *Store) InsertEvent(ctx context.Context, e types.EventLog) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		var fileEventID sql.NullInt64
		if e.FileEventID != nil {
			fileEventID = sql.NullInt64{Int64: *e.FileEventID, Valid: true}
		}
		payload := e.PayloadJSON
		if payload == "" {
			payload = "{}"
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO event_logs (run_id, file_event_id, timestamp, level, stage, payload_json)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.RunID, fileEventID, formatTime(e.Timestamp), string(e.Level), string(e.Stage), payload)
		if err != nil {
			return fmt.Errorf("inserting %s event for run %s: %w", e.Stage, e.RunID, err)
		}
		return nil
	})
}
