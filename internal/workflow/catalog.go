// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docconv/pkg/types"
)

const (
	mimePDF  = "application/pdf"
	mimeZip  = "application/zip"
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
)

var (
	acceptPDF  = []Accept{{MIME: mimePDF, Extensions: []string{".pdf"}}}
	acceptJPEG = []Accept{{MIME: mimeJPEG, Extensions: []string{".jpeg", ".jpg"}}}
	acceptPNG  = []Accept{{MIME: mimePNG, Extensions: []string{".png"}}}
)

// builtin lists the workflows offered by the conversion service, in menu order.
func builtin() []Workflow {
	return []Workflow{
		{
			Name: "compress", Title: "PDF Compressor",
			Route: "/pdf/compress", Endpoint: "/compress-pdf",
			Accept: acceptPDF, FileField: "file", Parts: PartsPlain,
			Params: []Param{
				{Field: "compression", Kind: KindCompression, Min: 10, Max: 90, Default: "50"},
			},
			Response: types.ResultBinary, ContentType: mimePDF,
			Output:         "compressed-{name}",
			FailureMessage: "Compression failed. Please try again.",
		},
		{
			Name: "merge", Title: "Merge PDF Files",
			Route: "/pdf/merge", Endpoint: "/merge",
			Accept: acceptPDF, Multi: true, Append: true,
			FileField: "files", Parts: PartsNumbered,
			Response: types.ResultBinary, ContentType: mimePDF, ForceContentType: true,
			Output:         "merged.pdf",
			FailureMessage: "Merge failed. Please try again.",
		},
		{
			Name: "ocr", Title: "OCR PDF (Extract Text)",
			Route: "/pdf/ocr", Endpoint: "/ocr-pdf",
			Accept: acceptPDF, FileField: "file", Parts: PartsPlain,
			Response: types.ResultText, ContentType: "text/plain; charset=utf-8",
			Output:         "{name}-text.txt",
			FailureMessage: "Failed to extract text from PDF.",
		},
		{
			Name: "pdf-to-image", Title: "PDF to Images",
			Route: "/pdf/pdf-to-image", Endpoint: "/pdf-to-image",
			Accept: acceptPDF, FileField: "file", Parts: PartsPlain,
			Params: []Param{
				{Field: "format", Kind: KindFormat, Choices: []string{"png", "jpg"}, Default: "png"},
			},
			Response: types.ResultBinary, ContentType: mimeZip, ForceContentType: true,
			Output:         "images-{base}.zip",
			FailureMessage: "Conversion failed. Please try again.",
		},
		{
			Name: "pdf-to-md", Title: "PDF to Markdown",
			Route: "/docs/pdf-to-md", Endpoint: "/convert-pdf-md",
			Aliases: []string{"/docs/md-to-pdf"},
			Accept: acceptPDF, FileField: "file", Parts: PartsPlain,
			Response: types.ResultBinary, ContentType: "text/markdown",
			Output:         "{base}.md",
			FailureMessage: "Conversion failed. Please try again.",
		},
		{
			Name: "rotate", Title: "PDF Rotator",
			Route: "/pdf/rotate", Endpoint: "/rotate",
			Accept: acceptPDF, FileField: "file", Parts: PartsPlain,
			Params: []Param{
				{Field: "rotations", Kind: KindRotations, Required: true},
			},
			Response: types.ResultBinary, ContentType: mimePDF,
			Output:         "{base}_rotated.pdf",
			FailureMessage: "Rotation failed. Please try again.",
		},
		{
			Name: "protect", Title: "Protect PDF",
			Route: "/pdf/protect", Endpoint: "/protect-pdf",
			Accept: acceptPDF, FileField: "file", Parts: PartsPlain,
			Params: []Param{
				{Field: "password", Kind: KindPassword, Required: true},
			},
			Response: types.ResultBinary, ContentType: mimePDF, ForceContentType: true,
			Output:         "protected-{name}",
			FailureMessage: "Failed to protect PDF. Please try again.",
		},
		{
			Name: "unlock", Title: "Unlock PDF",
			Route: "/pdf/unlock", Endpoint: "/unlock",
			Accept: acceptPDF, FileField: "file", Parts: PartsPlain,
			Params: []Param{
				{Field: "password", Kind: KindPassword, Required: true, NonBlank: true},
			},
			Response: types.ResultBinary, ContentType: mimePDF,
			Output:         "{base}_unlocked.pdf",
			FailureMessage: "Unlock failed. Please check the password and try again.",
		},
		{
			Name: "jpg-to-png", Title: "JPEG to PNG",
			Route: "/image/jpg-to-png", Endpoint: "/convert",
			Accept: acceptJPEG, Multi: true,
			FileField: "files", Parts: PartsPlain,
			Params: []Param{
				{Field: "target", Kind: KindTarget, Fixed: true, Default: "png"},
			},
			Response: types.ResultBinary, ContentType: mimeZip, ForceContentType: true,
			Output:         "converted_images.zip",
			FailureMessage: "Conversion failed. Please try again.",
		},
		{
			Name: "png-to-jpg", Title: "PNG to JPEG",
			Route: "/image/png-to-jpg", Endpoint: "/convert",
			Accept: acceptPNG, Multi: true,
			FileField: "files", Parts: PartsPlain,
			Params: []Param{
				{Field: "target", Kind: KindTarget, Fixed: true, Default: "jpg"},
			},
			Response: types.ResultBinary, ContentType: mimeZip, ForceContentType: true,
			Output:         "converted_images.zip",
			FailureMessage: "Conversion failed. Please try again.",
		},
	}
}

// Catalog is an ordered, name-indexed set of workflows.
type Catalog struct {
	order  []string
	byName map[string]Workflow
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{byName: make(map[string]Workflow)}
	for _, w := range builtin() {
		c.order = append(c.order, w.Name)
		c.byName[w.Name] = w
	}
	return c
}

// Lookup returns the workflow with the given name.
func (c *Catalog) Lookup(name string) (Workflow, error) {
	w, ok := c.byName[name]
	if !ok {
		return Workflow{}, fmt.Errorf("%w: %q", ErrUnknownWorkflow, name)
	}
	return w, nil
}

// ByRoute returns the workflow served at the given gateway route.
func (c *Catalog) ByRoute(route string) (Workflow, error) {
	for _, name := range c.order {
		if w := c.byName[name]; w.Route == route {
			return w, nil
		}
	}
	return Workflow{}, fmt.Errorf("%w: route %q", ErrUnknownWorkflow, route)
}

// All returns the workflows in catalog order.
func (c *Catalog) All() []Workflow {
	out := make([]Workflow, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// override is the YAML shape of a per-workflow override. Only non-empty
// fields replace the built-in values.
type override struct {
	Title          string   `yaml:"title"`
	Route          string   `yaml:"route"`
	Endpoint       string   `yaml:"endpoint"`
	ContentType    string   `yaml:"content_type"`
	Output         string   `yaml:"output"`
	FailureMessage string   `yaml:"failure_message"`
	Defaults       []string `yaml:"defaults"` // field=value
}

type overrideFile struct {
	Workflows map[string]override `yaml:"workflows"`
}

// LoadOverrides reads a YAML override file and applies it to the catalog.
// A missing file is not an error.
func (c *Catalog) LoadOverrides(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening catalog overrides %s: %w", path, err)
	}
	defer f.Close()
	return c.ApplyOverrides(f)
}

// ApplyOverrides decodes YAML overrides from r and applies them. Either
// every override is applied or, on error, none is.
//
//	workflows:
//	  compress:
//	    endpoint: /v2/compress-pdf
//	    defaults: ["compression=70"]
func (c *Catalog) ApplyOverrides(r io.Reader) error {
	var file overrideFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parsing catalog overrides: %w", err)
	}

	next := maps.Clone(c.byName)
	for name, o := range file.Workflows {
		w, ok := next[name]
		if !ok {
			return fmt.Errorf("%w: %q in overrides", ErrUnknownWorkflow, name)
		}
		if o.Title != "" {
			w.Title = o.Title
		}
		if o.Route != "" {
			w.Route = o.Route
		}
		if o.Endpoint != "" {
			if !strings.HasPrefix(o.Endpoint, "/") {
				return fmt.Errorf("%w: endpoint %q for %s must start with /", ErrInvalidParam, o.Endpoint, name)
			}
			w.Endpoint = o.Endpoint
		}
		if o.ContentType != "" {
			w.ContentType = o.ContentType
		}
		if o.Output != "" {
			w.Output = o.Output
		}
		if o.FailureMessage != "" {
			w.FailureMessage = o.FailureMessage
		}
		if len(o.Defaults) > 0 {
			params := slices.Clone(w.Params)
			for _, kv := range o.Defaults {
				field, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("%w: default %q for %s is not field=value", ErrInvalidParam, kv, name)
				}
				found := false
				for i := range params {
					if params[i].Field == field {
						params[i].Default = value
						found = true
					}
				}
				if !found {
					return fmt.Errorf("%w: %s has no parameter %q", ErrInvalidParam, name, field)
				}
			}
			w.Params = params
		}
		next[name] = w
	}
	c.byName = next
	return nil
}
