// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files and
// resolves secret-bearing settings before they are handed to callers.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Supported key files: client-secret.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ClientSecretFile is the secrets-directory file holding the app
// registration's client secret.
const ClientSecretFile = "client-secret"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Provider turns a stored setting value into the value callers use.
// key is the settings field name, raw the persisted value.
type Provider interface {
	Resolve(key, raw string) (string, error)
}

// Passthrough returns stored values unchanged.
type Passthrough struct{}

// Resolve returns raw.
func (Passthrough) Resolve(_, raw string) (string, error) { return raw, nil }

// Files resolves settings from a loaded secrets map, falling back to the
// stored value when no file is present for the key.
type Files struct {
	// Values is the result of Load.
	Values map[string]string

	// Names maps a settings key to a secrets file name.
	Names map[string]string
}

// NewFiles maps the ClientSecret setting to ClientSecretFile.
func NewFiles(values map[string]string) Files {
	return Files{
		Values: values,
		Names:  map[string]string{"ClientSecret": ClientSecretFile},
	}
}

// Resolve returns the file value for key when one exists, else raw.
func (f Files) Resolve(key, raw string) (string, error) {
	name, ok := f.Names[key]
	if !ok {
		return raw, nil
	}
	if v, ok := f.Values[name]; ok && v != "" {
		return v, nil
	}
	return raw, nil
}
