// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/graphpdf/pkg/types"
)

// settingFlag maps a command-line flag to a Settings field. key is the
// field's YAML name and, under "settings.", its viper key.
type settingFlag struct {
	name   string
	key    string
	usage  string
	isBool bool
}

var settingFlags = []settingFlag{
	{name: "site-url", key: "site_url", usage: "SharePoint site URL, e.g. https://tenant.sharepoint.com/sites/Name"},
	{name: "library", key: "library_name", usage: "document library display name"},
	{name: "temp-folder", key: "temp_folder", usage: "drive folder that receives the source upload"},
	{name: "pdf-folder", key: "pdf_folder", usage: "drive folder that receives the PDF (empty disables SharePoint storage)"},
	{name: "conflict-behavior", key: "conflict_behavior", usage: "upload conflict policy: fail, replace, or rename"},
	{name: "cleanup-temp", key: "cleanup_temp", usage: "delete the uploaded source after conversion", isBool: true},
	{name: "store-pdf", key: "store_pdf_in_sharepoint", usage: "upload the PDF to the PDF folder", isBool: true},
	{name: "save-local-pdf", key: "save_local_pdf", usage: "write the PDF to the local PDF directory", isBool: true},
	{name: "local-pdf-dir", key: "local_pdf_dir", usage: "local PDF directory (empty = next to the input file)"},
	{name: "tenant-id", key: "tenant_id", usage: "Azure AD tenant id"},
	{name: "client-id", key: "client_id", usage: "app registration client id"},
	{name: "client-secret", key: "client_secret", usage: "app registration client secret"},
}

func addSettingFlags(cmd *cobra.Command) {
	for _, f := range settingFlags {
		if f.isBool {
			cmd.Flags().Bool(f.name, false, f.usage)
		} else {
			cmd.Flags().String(f.name, "", f.usage)
		}
	}
}

// bindSettingFlags binds cmd's setting flags into viper so that env vars
// (GRAPHPDF_SETTINGS_SITE_URL) and the config file's settings: section
// supply overrides too. It runs in PreRunE so only the executing command
// owns the keys.
func bindSettingFlags(cmd *cobra.Command) error {
	for _, f := range settingFlags {
		if err := viper.BindPFlag("settings."+f.key, cmd.Flags().Lookup(f.name)); err != nil {
			return err
		}
	}
	return nil
}

// viperLookup reports settings values that were explicitly provided.
func viperLookup(key string) (string, bool) {
	k := "settings." + key
	if !viper.IsSet(k) {
		return "", false
	}
	return viper.GetString(k), true
}

// changedLookup reports flags changed on cmd's command line only.
func changedLookup(cmd *cobra.Command) func(string) (string, bool) {
	byKey := make(map[string]string, len(settingFlags))
	for _, f := range settingFlags {
		byKey[f.key] = f.name
	}
	return func(key string) (string, bool) {
		name := byKey[key]
		if !cmd.Flags().Changed(name) {
			return "", false
		}
		return cmd.Flags().Lookup(name).Value.String(), true
	}
}

// collectOverrides builds Overrides from lookup, which returns ok=false
// for keys that keep the persisted value.
func collectOverrides(lookup func(key string) (string, bool)) (types.Overrides, error) {
	var o types.Overrides
	strs := map[string]**string{
		"site_url":          &o.SiteURL,
		"library_name":      &o.LibraryName,
		"temp_folder":       &o.TempFolder,
		"pdf_folder":        &o.PdfFolder,
		"conflict_behavior": &o.ConflictBehavior,
		"local_pdf_dir":     &o.LocalPdfDir,
		"tenant_id":         &o.TenantID,
		"client_id":         &o.ClientID,
		"client_secret":     &o.ClientSecret,
	}
	bools := map[string]**bool{
		"cleanup_temp":            &o.CleanupTemp,
		"store_pdf_in_sharepoint": &o.StorePdfInSharePoint,
		"save_local_pdf":          &o.SaveLocalPdf,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = &v
		}
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return o, fmt.Errorf("setting %s: %q is not a boolean", key, v)
		}
		*dst = &b
	}
	return o, nil
}
