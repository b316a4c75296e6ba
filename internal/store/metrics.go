// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/graphpdf/pkg/types"
)

// NormalizeExtension returns ext lower-cased with a single leading dot.
// Blank input returns "".
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.TrimLeft(ext, ".")
	if ext == "" {
		return ""
	}
	return "." + ext
}

// TrackConversion counts one attempt for the source/target pair. Pairs
// with a blank extension are ignored.
func (s *Store) TrackConversion(ctx context.Context, sourceExt, targetExt string, success bool, at time.Time) error {
	src, dst := NormalizeExtension(sourceExt), NormalizeExtension(targetExt)
	if src == "" || dst == "" {
		return nil
	}

	now := formatTime(at)
	var lastSuccess, lastFailure sql.NullString
	successInc, failureInc := 0, 1
	if success {
		successInc, failureInc = 1, 0
		lastSuccess = nullString(now)
	} else {
		lastFailure = nullString(now)
	}

	return s.withDB(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO conversion_metrics (
				source_extension, target_extension, conversion_count, success_count, failure_count,
				last_attempt_at, last_success_at, last_failure_at
			) VALUES (?, ?, 1, ?, ?, ?, ?, ?)
			ON CONFLICT(source_extension, target_extension) DO UPDATE SET
				conversion_count = conversion_count + 1,
				success_count = success_count + excluded.success_count,
				failure_count = failure_count + excluded.failure_count,
				last_attempt_at = excluded.last_attempt_at,
				last_success_at = COALESCE(excluded.last_success_at, last_success_at),
				last_failure_at = COALESCE(excluded.last_failure_at, last_failure_at)`,
			src, dst, successInc, failureInc, now, lastSuccess, lastFailure)
		if err != nil {
			return fmt.Errorf("tracking conversion %s->%s: %w", src, dst, err)
		}
		return nil
	})
}

// TopMetrics returns up to limit pairs, most attempted first.
func (s *Store) TopMetrics(ctx context.Context, limit int) ([]types.ConversionMetric, error) {
	if limit <= 0 {
		limit = 25
	}
	var out []types.ConversionMetric
	err := s.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT source_extension, target_extension, conversion_count, success_count, failure_count,
				last_attempt_at, last_success_at, last_failure_at
			FROM conversion_metrics
			ORDER BY conversion_count DESC, source_extension, target_extension
			LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("querying conversion metrics: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var m types.ConversionMetric
			var attempt, succ, fail sql.NullString
			if err := rows.Scan(&m.SourceExtension, &m.TargetExtension, &m.ConversionCount,
				&m.SuccessCount, &m.FailureCount, &attempt, &succ, &fail); err != nil {
				return fmt.Errorf("scanning conversion metric: %w", err)
			}
			m.LastAttemptAt = parseNullTime(attempt)
			m.LastSuccessAt = parseNullTime(succ)
			m.LastFailureAt = parseNullTime(fail)
			out = append(out, m)
		}
		return rows.Err()
	})
	return out, err
}
