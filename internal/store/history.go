// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pdiddy/graphpdf/pkg/types"
)

const runColumns = `run_id, started_at, ended_at, success, file_count_total,
	file_count_succeeded, file_count_failed, total_input_bytes, total_pdf_bytes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (types.Run, error) {
	var r types.Run
	var started string
	var ended sql.NullString
	var success int
	err := row.Scan(&r.RunID, &started, &ended, &success, &r.FileCountTotal,
		&r.FileCountSucceeded, &r.FileCountFailed, &r.TotalInputBytes, &r.TotalPdfBytes)
	if err != nil {
		return types.Run{}, err
	}
	r.StartedAt = parseTime(started)
	r.EndedAt = parseNullTime(ended)
	r.Success = success != 0
	return r, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]types.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []types.Run
	err := s.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("querying runs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRun(rows)
			if err != nil {
				return fmt.Errorf("scanning run: %w", err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// GetRun returns one run. An unknown id is ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (types.Run, error) {
	var r types.Run
	err := s.withDB(ctx, func(db *sql.DB) error {
		var err error
		r, err = scanRun(db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		if err != nil {
			return fmt.Errorf("reading run %s: %w", runID, err)
		}
		return nil
	})
	return r, err
}

// ListFileEvents returns the file events of a run in insertion order.
func (s *Store) ListFileEvents(ctx context.Context, runID string) ([]types.FileEvent, error) {
	var out []types.FileEvent
	err := s.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT id, run_id, file_path, file_name, extension, size_bytes, started_at, ended_at,
				success, drive_id, temp_item_id, pdf_item_id
			FROM file_events WHERE run_id = ? ORDER BY id`, runID)
		if err != nil {
			return fmt.Errorf("querying file events: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var fe types.FileEvent
			var started string
			var ended, drive, temp, pdf sql.NullString
			var success int
			if err := rows.Scan(&fe.ID, &fe.RunID, &fe.FilePath, &fe.FileName, &fe.Extension,
				&fe.SizeBytes, &started, &ended, &success, &drive, &temp, &pdf); err != nil {
				return fmt.Errorf("scanning file event: %w", err)
			}
			fe.StartedAt = parseTime(started)
			fe.EndedAt = parseNullTime(ended)
			fe.Success = success != 0
			fe.DriveID, fe.TempItemID, fe.PdfItemID = drive.String, temp.String, pdf.String
			out = append(out, fe)
		}
		return rows.Err()
	})
	return out, err
}

// ListEvents returns the event log of a run in append order.
func (s *Store) ListEvents(ctx context.Context, runID string) ([]types.EventLog, error) {
	var out []types.EventLog
	err := s.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT id, run_id, file_event_id, timestamp, level, stage, payload_json
			FROM event_logs WHERE run_id = ? ORDER BY id`, runID)
		if err != nil {
			return fmt.Errorf("querying event log: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var e types.EventLog
			var fileEventID sql.NullInt64
			var ts, level, stage string
			if err := rows.Scan(&e.ID, &e.RunID, &fileEventID, &ts, &level, &stage, &e.PayloadJSON); err != nil {
				return fmt.Errorf("scanning event: %w", err)
			}
			if fileEventID.Valid {
				id := fileEventID.Int64
				e.FileEventID = &id
			}
			e.Timestamp = parseTime(ts)
			e.Level = types.Level(level)
			e.Stage = types.Stage(stage)
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

// History collects a run with its file events and event log.
func (s *Store) History(ctx context.Context, runID string) (types.RunHistory, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return types.RunHistory{}, err
	}
	files, err := s.ListFileEvents(ctx, runID)
	if err != nil {
		return types.RunHistory{}, err
	}
	events, err := s.ListEvents(ctx, runID)
	if err != nil {
		return types.RunHistory{}, err
	}
	return types.RunHistory{Run: run, Files: files, Events: events}, nil
}
