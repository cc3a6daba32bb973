// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirSaver writes results into a local directory.
type DirSaver struct {
	Dir       string
	Overwrite bool
}

// Save writes r to Dir/name through a temporary file that is renamed into
// place on success and removed on any failure. Without Overwrite an
// existing name gets a numeric suffix: "merged (1).pdf".
func (s *DirSaver) Save(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	dest := filepath.Join(dir, safeName(name))
	if !s.Overwrite {
		dest = uniquePath(dest)
	}

	tmpFile, err := os.CreateTemp(dir, ".docconv-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	done := false
	defer func() {
		if !done {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, ctxReader{ctx: ctx, r: r}); err != nil {
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	done = true
	return dest, nil
}

// safeName strips directories so a server-influenced name cannot escape Dir.
func safeName(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return "download"
	}
	return base
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
