// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data shared between docconv packages: selected
// files, submission parameters, transfer results, and client configuration.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// MaxFileSize is the largest file accepted for submission (50 MiB).
const MaxFileSize int64 = 50 * 1024 * 1024

// PendingFile is a user-selected file awaiting submission.
type PendingFile struct {
	// ID is a synthetic identifier assigned when the file is accepted.
	// It is independent of Name, so two files with the same name stay distinct.
	ID string `json:"id" yaml:"id"`

	// Name is the display name (base name of the source file).
	Name string `json:"name" yaml:"name"`

	// Size is the content length in bytes.
	Size int64 `json:"size" yaml:"size"`

	// ContentType is the sniffed MIME type (e.g. "application/pdf").
	ContentType string `json:"content_type" yaml:"content_type"`

	// Path is the local filesystem path, empty for in-memory files.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	data []byte
}

// NewPathFile returns a PendingFile backed by a file on disk.
func NewPathFile(id, name, path string, size int64, contentType string) PendingFile {
	return PendingFile{ID: id, Name: name, Path: path, Size: size, ContentType: contentType}
}

// NewMemoryFile returns a PendingFile backed by an in-memory buffer.
func NewMemoryFile(id, name string, data []byte, contentType string) PendingFile {
	return PendingFile{ID: id, Name: name, Size: int64(len(data)), ContentType: contentType, data: data}
}

// Open returns a reader for the file content. The caller closes it.
func (f PendingFile) Open() (io.ReadCloser, error) {
	if f.Path != "" {
		fh, err := os.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Path, err)
		}
		return fh, nil
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// ReadAll returns the full file content.
func (f PendingFile) ReadAll() ([]byte, error) {
	if f.Path == "" {
		return f.data, nil
	}
	return os.ReadFile(f.Path)
}

// Rotation is a page rotation request. Page is 1-based; Degrees is one of
// 0, 90, 180, 270. It encodes to JSON as a two-element array [page, degrees].
type Rotation struct {
	Page    int `yaml:"page"`
	Degrees int `yaml:"degrees"`
}

// MarshalJSON encodes the rotation as [page, degrees].
func (r Rotation) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Page, r.Degrees})
}

// UnmarshalJSON decodes a [page, degrees] pair.
func (r *Rotation) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decoding rotation pair: %w", err)
	}
	r.Page, r.Degrees = pair[0], pair[1]
	return nil
}

// SubmissionParameters holds the workflow-specific scalar values collected
// at submission time. Unused fields are ignored by workflows that do not
// declare them.
type SubmissionParameters struct {
	// Compression is the compression percentage in [10, 90].
	Compression int `json:"compression,omitempty" yaml:"compression,omitempty"`

	// Password is the plaintext password for protect/unlock.
	Password string `json:"-" yaml:"-"`

	// Format is the target image format for PDF rasterisation (png or jpg).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Target is the target format for batch image conversion.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// Rotations lists per-page rotations in page order.
	Rotations []Rotation `json:"rotations,omitempty" yaml:"rotations,omitempty"`
}

// ResultKind distinguishes binary downloads from inline text.
type ResultKind string

const (
	ResultBinary ResultKind = "binary"
	ResultText   ResultKind = "text"
)

// TransferResult is the materialised response of one submission.
type TransferResult struct {
	Kind        ResultKind `json:"kind" yaml:"kind"`
	Filename    string     `json:"filename" yaml:"filename"`
	ContentType string     `json:"content_type" yaml:"content_type"`
	Data        []byte     `json:"-" yaml:"-"`
}

// Text returns the payload as a string. Meaningful for ResultText.
func (r *TransferResult) Text() string {
	return string(r.Data)
}
