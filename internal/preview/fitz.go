// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
)

// DefaultQuality is the JPEG quality used for previews.
const DefaultQuality = 80

// FitzRenderer rasterises PDF pages with MuPDF.
type FitzRenderer struct {
	// Quality is the JPEG quality, 1-100. Zero means DefaultQuality.
	Quality int
	// DPI is the render resolution. Zero uses the library default.
	DPI float64
}

// Render decodes data and returns one JPEG per page.
func (r FitzRenderer) Render(data []byte) ([]Page, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer doc.Close()

	quality := r.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	n := doc.NumPage()
	pages := make([]Page, 0, n)
	for i := 0; i < n; i++ {
		var img image.Image
		if r.DPI > 0 {
			img, err = doc.ImageDPI(i, r.DPI)
		} else {
			img, err = doc.Image(i)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrDecode, i+1, err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encoding page %d: %w", i+1, err)
		}
		pages = append(pages, Page{Num: i + 1, Image: buf.Bytes()})
	}
	return pages, nil
}

// PageCount returns the number of pages without rasterising them.
func (FitzRenderer) PageCount(data []byte) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
