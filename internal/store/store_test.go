// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/graphpdf/internal/secrets"
	"github.com/pdiddy/graphpdf/pkg/types"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "graphpdf.db"), opts...)
	require.NoError(t, err)
	_, err = s.Init(context.Background())
	require.NoError(t, err)
	return s
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	s, err := Open(filepath.Join(dir, "x.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	_, err = os.Stat(filepath.Join(dir, "x.db"))
	assert.NoError(t, err)
}

func TestInitSeedsOnce(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "g.db"))
	require.NoError(t, err)
	ctx := context.Background()

	seeded, err := s.Init(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	custom := types.DefaultSettings()
	custom.LibraryName = "Documents"
	require.NoError(t, s.UpdateSettings(ctx, custom))

	seeded, err = s.Init(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Documents", got.LibraryName, "re-running init must not reset settings")
}

func TestGetSettingsUninitialized(t *testing.T) {
	ctx := context.Background()

	t.Run("no schema", func(t *testing.T) {
		s, err := Open(filepath.Join(t.TempDir(), "g.db"))
		require.NoError(t, err)
		_, err = s.GetSettings(ctx)
		assert.ErrorIs(t, err, ErrSettingsNotInitialized)
	})

	t.Run("schema without row", func(t *testing.T) {
		s, err := Open(filepath.Join(t.TempDir(), "g.db"))
		require.NoError(t, err)
		require.NoError(t, s.Migrate(ctx))
		_, err = s.GetSettings(ctx)
		assert.ErrorIs(t, err, ErrSettingsNotInitialized)
	})
}

func TestHasTable(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "g.db"))
	require.NoError(t, err)

	check := func(name string) bool {
		var ok bool
		require.NoError(t, s.withDB(ctx, func(db *sql.DB) error {
			var err error
			ok, err = hasTable(ctx, db, name)
			return err
		}))
		return ok
	}

	assert.False(t, check("app_settings"))
	require.NoError(t, s.Migrate(ctx))
	assert.True(t, check("app_settings"))
	assert.True(t, check("event_logs"))
	assert.False(t, check("no_such"))
}

func TestGetSettingsWithoutSettingsTable(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "g.db"))
	require.NoError(t, err)
	require.NoError(t, s.withDB(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `CREATE TABLE runs (run_id TEXT PRIMARY KEY)`)
		return err
	}))

	_, err = s.GetSettings(ctx)
	assert.ErrorIs(t, err, ErrSettingsNotInitialized)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := types.Settings{
		SiteURL:              "https://t.sharepoint.com/sites/S",
		LibraryName:          "Documents",
		TempFolder:           "tmp",
		PdfFolder:            "pdf",
		ConflictBehavior:     types.ConflictRename,
		CleanupTemp:          false,
		StorePdfInSharePoint: true,
		SaveLocalPdf:         true,
		LocalPdfDir:          "/out",
		TenantID:             "tenant",
		ClientID:             "client",
		ClientSecret:         "secret",
	}
	require.NoError(t, s.UpdateSettings(ctx, want))

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetSettingsResolvesClientSecret(t *testing.T) {
	s := newTestStore(t, WithSecrets(secrets.NewFiles(map[string]string{
		secrets.ClientSecretFile: "from-file",
	})))

	got, err := s.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-file", got.ClientSecret)
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertRunStarted(ctx, types.Run{RunID: "run-1", StartedAt: start}))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, run.Success)
	assert.Nil(t, run.EndedAt)
	assert.True(t, start.Equal(run.StartedAt))

	end := start.Add(3 * time.Second)
	require.NoError(t, s.UpdateRunFinished(ctx, "run-1", types.RunTotals{
		EndedAt: end, Success: true, Total: 1, Succeeded: 1,
		TotalInputBytes: 1000, TotalPdfBytes: 2048,
	}))

	run, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, run.Success)
	require.NotNil(t, run.EndedAt)
	assert.True(t, end.Equal(*run.EndedAt))
	assert.Equal(t, 1, run.FileCountTotal)
	assert.Equal(t, 1, run.FileCountSucceeded)
	assert.Equal(t, int64(1000), run.TotalInputBytes)
	assert.Equal(t, int64(2048), run.TotalPdfBytes)
}

func TestUpdateRunFinishedUnknownRun(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateRunFinished(context.Background(), "missing", types.RunTotals{EndedAt: time.Now()})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestFileEventIdentifiersAreWriteOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.InsertRunStarted(ctx, types.Run{RunID: "run-1", StartedAt: now}))

	id, err := s.InsertFileStarted(ctx, types.FileEvent{
		RunID: "run-1", FilePath: "/in/report.docx", FileName: "report.docx",
		Extension: ".docx", SizeBytes: 1000, StartedAt: now,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	require.NoError(t, s.UpdateFileFinished(ctx, id, types.FileOutcome{
		EndedAt: now, Success: false, DriveID: "drive-1", TempItemID: "item-1",
	}))
	require.NoError(t, s.UpdateFileFinished(ctx, id, types.FileOutcome{
		EndedAt: now, Success: true, DriveID: "drive-2", TempItemID: "item-2", PdfItemID: "pdf-1",
	}))

	files, err := s.ListFileEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	fe := files[0]
	assert.Equal(t, "drive-1", fe.DriveID)
	assert.Equal(t, "item-1", fe.TempItemID)
	assert.Equal(t, "pdf-1", fe.PdfItemID)
	assert.True(t, fe.Success)
	assert.Equal(t, int64(1000), fe.SizeBytes)
}

func TestFileEventNullIdentifiers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.InsertRunStarted(ctx, types.Run{RunID: "run-1", StartedAt: now}))
	id, err := s.InsertFileStarted(ctx, types.FileEvent{RunID: "run-1", FilePath: "a", FileName: "a", StartedAt: now})
	require.NoError(t, err)
	require.NoError(t, s.UpdateFileFinished(ctx, id, types.FileOutcome{EndedAt: now}))

	files, err := s.ListFileEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Empty(t, files[0].DriveID)
	assert.Empty(t, files[0].PdfItemID)
}

func TestEventsAppendInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.InsertRunStarted(ctx, types.Run{RunID: "run-1", StartedAt: now}))
	feID, err := s.InsertFileStarted(ctx, types.FileEvent{RunID: "run-1", FilePath: "a", FileName: "a", StartedAt: now})
	require.NoError(t, err)

	require.NoError(t, s.InsertEvent(ctx, types.EventLog{
		RunID: "run-1", Timestamp: now, Level: types.LevelError, Stage: types.StageReadInput,
		PayloadJSON: `{"success":false}`,
	}))
	require.NoError(t, s.InsertEvent(ctx, types.EventLog{
		RunID: "run-1", FileEventID: &feID, Timestamp: now, Level: types.LevelInfo, Stage: types.StageResolveSite,
	}))

	events, err := s.ListEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Nil(t, events[0].FileEventID)
	assert.Equal(t, types.StageReadInput, events[0].Stage)
	assert.Equal(t, types.LevelError, events[0].Level)
	require.NotNil(t, events[1].FileEventID)
	assert.Equal(t, feID, *events[1].FileEventID)
	assert.Equal(t, "{}", events[1].PayloadJSON)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.InsertRunStarted(ctx, types.Run{RunID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
}

func TestHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.InsertRunStarted(ctx, types.Run{RunID: "run-1", StartedAt: now}))
	_, err := s.InsertFileStarted(ctx, types.FileEvent{RunID: "run-1", FilePath: "a", FileName: "a", StartedAt: now})
	require.NoError(t, err)
	require.NoError(t, s.InsertEvent(ctx, types.EventLog{RunID: "run-1", Timestamp: now, Level: types.LevelInfo, Stage: types.StageDone}))

	h, err := s.History(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", h.Run.RunID)
	assert.Len(t, h.Files, 1)
	assert.Len(t, h.Events, 1)

	_, err = s.History(ctx, "other")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
