// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const ioChunk = 1 << 20

// readFile reads path fully, checking ctx between chunks.
func readFile(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if info, err := f.Stat(); err == nil {
		buf.Grow(int(info.Size()))
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, err := io.CopyN(&buf, f, ioChunk)
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
	}
}

// writeFileAtomic writes data to dir/name through a temp file and a
// rename, so readers never see a partial PDF. It returns the final path.
func writeFileAtomic(ctx context.Context, dir, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	for off := 0; off < len(data); off += ioChunk {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return "", err
		}
		end := min(off+ioChunk, len(data))
		if _, err := tmp.Write(data[off:end]); err != nil {
			tmp.Close()
			return "", fmt.Errorf("writing %s: %w", tmpPath, err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", tmpPath, err)
	}

	final := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, final); err != nil {
		return "", fmt.Errorf("renaming to %s: %w", final, err)
	}
	return final, nil
}
