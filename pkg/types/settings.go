// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// ConflictBehavior is the server-side rule applied when an upload targets a
// name that already exists in the drive.
type ConflictBehavior int

const (
	ConflictFail ConflictBehavior = iota
	ConflictReplace
	ConflictRename
)

// GraphValue returns the value Graph expects in
// @microsoft.graph.conflictBehavior.
func (c ConflictBehavior) GraphValue() string {
	switch c {
	case ConflictFail:
		return "fail"
	case ConflictRename:
		return "rename"
	default:
		return "replace"
	}
}

func (c ConflictBehavior) String() string { return c.GraphValue() }

// ParseConflictBehavior maps s (case-insensitive, trimmed) to a
// ConflictBehavior. Empty or unrecognized input yields def.
func ParseConflictBehavior(s string, def ConflictBehavior) ConflictBehavior {
	c, ok := lookupConflictBehavior(s)
	if !ok {
		return def
	}
	return c
}

func lookupConflictBehavior(s string) (ConflictBehavior, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail":
		return ConflictFail, true
	case "replace":
		return ConflictReplace, true
	case "rename":
		return ConflictRename, true
	default:
		return ConflictReplace, false
	}
}

// MarshalText renders the Graph value so YAML and JSON output stay readable.
func (c ConflictBehavior) MarshalText() ([]byte, error) {
	return []byte(c.GraphValue()), nil
}

// UnmarshalText rejects unknown values; lenient parsing is ParseConflictBehavior.
func (c *ConflictBehavior) UnmarshalText(b []byte) error {
	v, ok := lookupConflictBehavior(string(b))
	if !ok {
		return fmt.Errorf("unknown conflict behavior %q (want fail, replace, or rename)", string(b))
	}
	*c = v
	return nil
}

// Settings is the target and behavior configuration for one conversion.
// A Settings value is not modified once a run starts; Apply returns a copy.
type Settings struct {
	// SiteURL is the SharePoint site, e.g. https://tenant.sharepoint.com/sites/Name.
	SiteURL string `json:"site_url" yaml:"site_url"`

	// LibraryName is the document library (drive) display name.
	LibraryName string `json:"library_name" yaml:"library_name"`

	// TempFolder receives the source document before conversion.
	TempFolder string `json:"temp_folder" yaml:"temp_folder"`

	// PdfFolder receives the converted PDF. Empty disables SharePoint storage.
	PdfFolder string `json:"pdf_folder" yaml:"pdf_folder"`

	// ConflictBehavior applies to the source upload.
	ConflictBehavior ConflictBehavior `json:"conflict_behavior" yaml:"conflict_behavior"`

	CleanupTemp          bool `json:"cleanup_temp" yaml:"cleanup_temp"`
	StorePdfInSharePoint bool `json:"store_pdf_in_sharepoint" yaml:"store_pdf_in_sharepoint"`

	// SaveLocalPdf writes the PDF to LocalPdfDir (or next to the input when empty).
	SaveLocalPdf bool   `json:"save_local_pdf" yaml:"save_local_pdf"`
	LocalPdfDir  string `json:"local_pdf_dir" yaml:"local_pdf_dir"`

	TenantID     string `json:"tenant_id" yaml:"tenant_id"`
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
}

// DefaultSettings returns the placeholder row seeded by `graphpdf init`.
func DefaultSettings() Settings {
	return Settings{
		SiteURL:              "https://tenant.sharepoint.com/sites/SiteName",
		LibraryName:          "Shared Documents",
		TempFolder:           "GraphPdfTemp",
		PdfFolder:            "GraphPdf",
		ConflictBehavior:     ConflictReplace,
		CleanupTemp:          true,
		StorePdfInSharePoint: true,
		TenantID:             "00000000-0000-0000-0000-000000000000",
		ClientID:             "00000000-0000-0000-0000-000000000000",
		ClientSecret:         "REPLACE_ME",
	}
}

// StoresPdf reports whether the PDF is uploaded back to SharePoint.
func (s Settings) StoresPdf() bool {
	return s.StorePdfInSharePoint && strings.TrimSpace(s.PdfFolder) != ""
}

// Validate checks the fields a run cannot start without.
func (s Settings) Validate() error {
	required := []struct {
		name, value string
	}{
		{"site_url", s.SiteURL},
		{"library_name", s.LibraryName},
		{"temp_folder", s.TempFolder},
		{"tenant_id", s.TenantID},
		{"client_id", s.ClientID},
		{"client_secret", s.ClientSecret},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if s.ConflictBehavior < ConflictFail || s.ConflictBehavior > ConflictRename {
		return fmt.Errorf("invalid conflict behavior %d", int(s.ConflictBehavior))
	}
	return nil
}

// Overrides carries caller-supplied values. A nil field keeps the persisted value.
type Overrides struct {
	SiteURL              *string
	LibraryName          *string
	TempFolder           *string
	PdfFolder            *string
	ConflictBehavior     *string
	CleanupTemp          *bool
	StorePdfInSharePoint *bool
	SaveLocalPdf         *bool
	LocalPdfDir          *string
	TenantID             *string
	ClientID             *string
	ClientSecret         *string
}

// Apply returns a copy of s with every non-nil override applied. An
// unrecognized conflict behavior keeps the persisted policy.
func (s Settings) Apply(o Overrides) Settings {
	setString(&s.SiteURL, o.SiteURL)
	setString(&s.LibraryName, o.LibraryName)
	setString(&s.TempFolder, o.TempFolder)
	setString(&s.PdfFolder, o.PdfFolder)
	setString(&s.LocalPdfDir, o.LocalPdfDir)
	setString(&s.TenantID, o.TenantID)
	setString(&s.ClientID, o.ClientID)
	setString(&s.ClientSecret, o.ClientSecret)
	setBool(&s.CleanupTemp, o.CleanupTemp)
	setBool(&s.StorePdfInSharePoint, o.StorePdfInSharePoint)
	setBool(&s.SaveLocalPdf, o.SaveLocalPdf)
	if o.ConflictBehavior != nil {
		s.ConflictBehavior = ParseConflictBehavior(*o.ConflictBehavior, s.ConflictBehavior)
	}
	return s
}

// Redacted returns a copy safe for printing.
func (s Settings) Redacted() Settings {
	if s.ClientSecret != "" {
		s.ClientSecret = "********"
	}
	return s
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
