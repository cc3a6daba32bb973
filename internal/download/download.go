// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download materialises submission results. Binary results are
// handed to a FileSaver; text results are returned for inline display and
// can be saved as a .txt file or copied to the clipboard. The savers and the
// clipboard are capabilities injected by the caller, so the delivery logic
// runs without a terminal, a desktop session, or a cloud account.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/docconv/pkg/types"
)

// ErrNoClipboard is returned by CopyText when no clipboard is configured.
var ErrNoClipboard = errors.New("no clipboard available")

// FileSaver stores a named result and returns where it ended up.
type FileSaver interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (location string, err error)
}

// ClipboardWriter places text on the system clipboard.
type ClipboardWriter interface {
	WriteText(text string) error
}

// Delivery describes what happened to a result.
type Delivery struct {
	// Location is where a binary or saved-text result was written.
	Location string
	// Text is the inline payload of a text result.
	Text string
}

// Downloader routes results to the injected capabilities.
type Downloader struct {
	saver FileSaver
	clip  ClipboardWriter
}

// New returns a Downloader. clip may be nil when no clipboard exists.
func New(saver FileSaver, clip ClipboardWriter) *Downloader {
	return &Downloader{saver: saver, clip: clip}
}

// Deliver saves binary results and returns text results for display.
func (d *Downloader) Deliver(ctx context.Context, res *types.TransferResult) (Delivery, error) {
	if res.Kind == types.ResultText {
		return Delivery{Text: res.Text()}, nil
	}
	loc, err := d.saver.Save(ctx, res.Filename, res.ContentType, bytes.NewReader(res.Data))
	if err != nil {
		return Delivery{}, fmt.Errorf("saving %s: %w", res.Filename, err)
	}
	return Delivery{Location: loc}, nil
}

// SaveText writes text to "<original>-text.txt" with exactly that content.
func (d *Downloader) SaveText(ctx context.Context, original, text string) (string, error) {
	name := TextFileName(original)
	loc, err := d.saver.Save(ctx, name, "text/plain; charset=utf-8", strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	return loc, nil
}

// CopyText places exactly text on the clipboard.
func (d *Downloader) CopyText(text string) error {
	if d.clip == nil {
		return ErrNoClipboard
	}
	if err := d.clip.WriteText(text); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}

// TextFileName returns the name used for saved OCR text. An unknown
// original name falls back to "ocr".
func TextFileName(original string) string {
	if original == "" {
		original = "ocr"
	}
	return original + "-text.txt"
}
