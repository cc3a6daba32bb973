// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package preview renders a PDF into per-page JPEG previews and tracks a
// rotation angle for each page. Rotation here is advisory: the angles are
// sent to the conversion service, which applies them to the document.
package preview

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/docconv/pkg/types"
)

var (
	// ErrDecode is returned when a document cannot be decoded into pages.
	ErrDecode = errors.New("cannot decode document")

	// ErrPageRange is returned for a page number outside the document.
	ErrPageRange = errors.New("page out of range")

	// ErrInvalidRotation is returned for angles that are not a multiple of 90.
	ErrInvalidRotation = errors.New("rotation must be a multiple of 90 degrees")
)

// Page is one rendered page. Num is 1-based. Image holds JPEG bytes and is
// nil for viewers built from a page count alone.
type Page struct {
	Num      int
	Rotation int
	Image    []byte
}

// Renderer decodes a document into page images.
type Renderer interface {
	Render(data []byte) ([]Page, error)
}

// Viewer pages through a document one page at a time.
type Viewer struct {
	pages []Page
	index int
}

// Load renders data and returns a viewer positioned on the first page.
// Render failures and empty documents are reported as ErrDecode.
func Load(r Renderer, data []byte) (*Viewer, error) {
	pages, err := r.Render(data)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrDecode)
	}
	return NewViewer(pages), nil
}

// NewViewer wraps already rendered pages. Page numbers are reassigned in
// order and every rotation starts at 0.
func NewViewer(pages []Page) *Viewer {
	v := &Viewer{pages: make([]Page, len(pages))}
	for i, p := range pages {
		v.pages[i] = Page{Num: i + 1, Image: p.Image}
	}
	return v
}

// Blank returns a viewer for n pages without images.
func Blank(n int) *Viewer {
	return NewViewer(make([]Page, n))
}

// Len returns the number of pages.
func (v *Viewer) Len() int { return len(v.pages) }

// Index returns the 0-based position of the current page.
func (v *Viewer) Index() int { return v.index }

// Current returns the page under view.
func (v *Viewer) Current() Page {
	if len(v.pages) == 0 {
		return Page{}
	}
	return v.pages[v.index]
}

// Next advances one page. It reports false, without moving, on the last page.
func (v *Viewer) Next() bool {
	if v.index+1 >= len(v.pages) {
		return false
	}
	v.index++
	return true
}

// Prev steps back one page. It reports false, without moving, on the first page.
func (v *Viewer) Prev() bool {
	if v.index == 0 {
		return false
	}
	v.index--
	return true
}

// Rotate turns the current page a further 90 degrees clockwise and returns
// its new angle. Four calls bring a page back to 0.
func (v *Viewer) Rotate() int {
	if len(v.pages) == 0 {
		return 0
	}
	p := &v.pages[v.index]
	p.Rotation = (p.Rotation + 90) % 360
	return p.Rotation
}

// SetRotation sets the angle of a 1-based page. Negative and large angles
// are normalised into 0, 90, 180, or 270.
func (v *Viewer) SetRotation(page, degrees int) error {
	if page < 1 || page > len(v.pages) {
		return fmt.Errorf("%w: page %d of %d", ErrPageRange, page, len(v.pages))
	}
	if degrees%90 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRotation, degrees)
	}
	v.pages[page-1].Rotation = ((degrees % 360) + 360) % 360
	return nil
}

// Rotations returns the angle of every page in page order.
func (v *Viewer) Rotations() []types.Rotation {
	out := make([]types.Rotation, len(v.pages))
	for i, p := range v.pages {
		out[i] = types.Rotation{Page: p.Num, Degrees: p.Rotation}
	}
	return out
}

// ExportPages writes each rendered page to dir as page-<n>.jpg and returns
// the written paths. Pages without an image are skipped.
func (v *Viewer) ExportPages(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", dir, err)
	}
	var paths []string
	for _, p := range v.pages {
		if len(p.Image) == 0 {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("page-%d.jpg", p.Num))
		if err := os.WriteFile(path, p.Image, 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
