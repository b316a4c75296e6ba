// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/graphpdf/pkg/types"
)

const insertSettingsSQL = `INSERT INTO app_settings (
		id, site_url, library_name, temp_folder, pdf_folder, conflict_behavior,
		cleanup_temp, store_pdf_in_sharepoint, save_local_pdf, local_pdf_dir,
		tenant_id, client_id, client_secret, updated_at
	) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func settingsArgs(st types.Settings) []any {
	return []any{
		st.SiteURL, st.LibraryName, st.TempFolder, st.PdfFolder, st.ConflictBehavior.GraphValue(),
		boolInt(st.CleanupTemp), boolInt(st.StorePdfInSharePoint), boolInt(st.SaveLocalPdf), st.LocalPdfDir,
		st.TenantID, st.ClientID, st.ClientSecret, formatTime(time.Now()),
	}
}

// GetSettings returns the persisted settings. The client secret passes
// through the store's secrets provider. A missing row is
// ErrSettingsNotInitialized.
func (s *Store) GetSettings(ctx context.Context) (types.Settings, error) {
	var st types.Settings
	err := s.withDB(ctx, func(db *sql.DB) error {
		ok, err := hasTable(ctx, db, "app_settings")
		if err != nil {
			return err
		}
		if !ok {
			return ErrSettingsNotInitialized
		}

		var conflict string
		var cleanup, storePdf, saveLocal int
		err = db.QueryRowContext(ctx,
			`SELECT site_url, library_name, temp_folder, pdf_folder, conflict_behavior,
				cleanup_temp, store_pdf_in_sharepoint, save_local_pdf, local_pdf_dir,
				tenant_id, client_id, client_secret
			FROM app_settings WHERE id = 1`,
		).Scan(&st.SiteURL, &st.LibraryName, &st.TempFolder, &st.PdfFolder, &conflict,
			&cleanup, &storePdf, &saveLocal, &st.LocalPdfDir,
			&st.TenantID, &st.ClientID, &st.ClientSecret)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSettingsNotInitialized
		}
		if err != nil {
			return fmt.Errorf("reading settings: %w", err)
		}
		st.ConflictBehavior = types.ParseConflictBehavior(conflict, types.ConflictReplace)
		st.CleanupTemp = cleanup != 0
		st.StorePdfInSharePoint = storePdf != 0
		st.SaveLocalPdf = saveLocal != 0
		return nil
	})
	if err != nil {
		return types.Settings{}, err
	}

	secret, err := s.secrets.Resolve("ClientSecret", st.ClientSecret)
	if err != nil {
		return types.Settings{}, fmt.Errorf("resolving client secret: %w", err)
	}
	st.ClientSecret = secret
	return st, nil
}

// UpdateSettings replaces the settings row, creating it if needed.
func (s *Store) UpdateSettings(ctx context.Context, st types.Settings) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, insertSettingsSQL+` ON CONFLICT(id) DO UPDATE SET
				site_url = excluded.site_url,
				library_name = excluded.library_name,
				temp_folder = excluded.temp_folder,
				pdf_folder = excluded.pdf_folder,
				conflict_behavior = excluded.conflict_behavior,
				cleanup_temp = excluded.cleanup_temp,
				store_pdf_in_sharepoint = excluded.store_pdf_in_sharepoint,
				save_local_pdf = excluded.save_local_pdf,
				local_pdf_dir = excluded.local_pdf_dir,
				tenant_id = excluded.tenant_id,
				client_id = excluded.client_id,
				client_secret = excluded.client_secret,
				updated_at = excluded.updated_at`,
			settingsArgs(st)...)
		if err != nil {
			return fmt.Errorf("updating settings: %w", err)
		}
		return nil
	})
}
