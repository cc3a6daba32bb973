// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docconv/pkg/types"
)

func mustLookup(t *testing.T, name string) Workflow {
	t.Helper()
	w, err := Default().Lookup(name)
	require.NoError(t, err)
	return w
}

func TestDefaultCatalog_Endpoints(t *testing.T) {
	want := map[string]string{
		"compress":     "/compress-pdf",
		"merge":        "/merge",
		"ocr":          "/ocr-pdf",
		"pdf-to-image": "/pdf-to-image",
		"pdf-to-md":    "/convert-pdf-md",
		"rotate":       "/rotate",
		"protect":      "/protect-pdf",
		"unlock":       "/unlock",
		"jpg-to-png":   "/convert",
		"png-to-jpg":   "/convert",
	}
	all := Default().All()
	require.Len(t, all, len(want))
	for _, w := range all {
		assert.Equal(t, want[w.Name], w.Endpoint, w.Name)
		assert.True(t, strings.HasPrefix(w.Route, "/pdf/") ||
			strings.HasPrefix(w.Route, "/docs/") ||
			strings.HasPrefix(w.Route, "/image/"), "route %s", w.Route)
	}
}

func TestCatalog_LookupUnknown(t *testing.T) {
	_, err := Default().Lookup("split")
	assert.ErrorIs(t, err, ErrUnknownWorkflow)

	_, err = Default().ByRoute("/pdf/split")
	assert.ErrorIs(t, err, ErrUnknownWorkflow)
}

func TestCatalog_ByRoute(t *testing.T) {
	w, err := Default().ByRoute("/image/png-to-jpg")
	require.NoError(t, err)
	assert.Equal(t, "png-to-jpg", w.Name)
}

func TestAccepts(t *testing.T) {
	pdf := mustLookup(t, "compress")
	jpg := mustLookup(t, "jpg-to-png")

	tests := []struct {
		name     string
		w        Workflow
		file     string
		mimeType string
		want     bool
	}{
		{"pdf by mime", pdf, "scan", "application/pdf", true},
		{"pdf by extension", pdf, "scan.PDF", "", true},
		{"docx rejected", pdf, "letter.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", false},
		{"jpeg extension", jpg, "photo.jpeg", "", true},
		{"jpg extension", jpg, "photo.jpg", "image/jpeg", true},
		{"png rejected by jpeg workflow", jpg, "photo.png", "image/png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.Accepts(tt.file, tt.mimeType))
		})
	}
}

func TestFields_Compression(t *testing.T) {
	w := mustLookup(t, "compress")

	fields, err := w.Fields(types.SubmissionParameters{Compression: 70})
	require.NoError(t, err)
	assert.Equal(t, []Field{{Name: "compression", Value: "70"}}, fields)

	fields, err = w.Fields(types.SubmissionParameters{})
	require.NoError(t, err)
	assert.Equal(t, "50", fields[0].Value, "default compression")

	for _, bad := range []int{5, 9, 91, 100} {
		_, err := w.Fields(types.SubmissionParameters{Compression: bad})
		assert.ErrorIs(t, err, ErrInvalidParam, "compression %d", bad)
	}
	for _, ok := range []int{10, 90} {
		assert.NoError(t, w.Validate(types.SubmissionParameters{Compression: ok}))
	}
}

func TestParam_CheckRange(t *testing.T) {
	p, ok := mustLookup(t, "compress").Param(KindCompression)
	require.True(t, ok)

	assert.NoError(t, p.CheckRange(10))
	assert.NoError(t, p.CheckRange(90))
	for _, bad := range []int{0, -5, 9, 91} {
		assert.ErrorIs(t, p.CheckRange(bad), ErrInvalidParam, "compression %d", bad)
	}
}

func TestFields_Password(t *testing.T) {
	protect := mustLookup(t, "protect")
	unlock := mustLookup(t, "unlock")

	assert.ErrorIs(t, protect.Validate(types.SubmissionParameters{}), ErrMissingParam)
	assert.NoError(t, protect.Validate(types.SubmissionParameters{Password: "  "}))

	assert.ErrorIs(t, unlock.Validate(types.SubmissionParameters{Password: "  "}), ErrMissingParam)

	fields, err := unlock.Fields(types.SubmissionParameters{Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, []Field{{Name: "password", Value: "s3cret"}}, fields)
}

func TestFields_FormatAndTarget(t *testing.T) {
	img := mustLookup(t, "pdf-to-image")

	fields, err := img.Fields(types.SubmissionParameters{})
	require.NoError(t, err)
	assert.Equal(t, "png", fields[0].Value)

	fields, err = img.Fields(types.SubmissionParameters{Format: "JPG"})
	require.NoError(t, err)
	assert.Equal(t, "jpg", fields[0].Value)

	_, err = img.Fields(types.SubmissionParameters{Format: "gif"})
	assert.ErrorIs(t, err, ErrInvalidParam)

	// Fixed targets ignore the caller's value.
	conv := mustLookup(t, "png-to-jpg")
	fields, err = conv.Fields(types.SubmissionParameters{Target: "png"})
	require.NoError(t, err)
	assert.Equal(t, []Field{{Name: "target", Value: "jpg"}}, fields)
}

func TestFields_Rotations(t *testing.T) {
	w := mustLookup(t, "rotate")

	fields, err := w.Fields(types.SubmissionParameters{Rotations: []types.Rotation{
		{Page: 1, Degrees: 0}, {Page: 2, Degrees: 90}, {Page: 3, Degrees: 270},
	}})
	require.NoError(t, err)
	assert.Equal(t, `[[1,0],[2,90],[3,270]]`, fields[0].Value)

	_, err = w.Fields(types.SubmissionParameters{})
	assert.ErrorIs(t, err, ErrMissingParam)

	bad := [][]types.Rotation{
		{{Page: 0, Degrees: 90}},
		{{Page: 1, Degrees: 45}},
		{{Page: 1, Degrees: 360}},
		{{Page: 1, Degrees: 90}, {Page: 1, Degrees: 180}},
	}
	for _, rots := range bad {
		_, err := w.Fields(types.SubmissionParameters{Rotations: rots})
		assert.ErrorIs(t, err, ErrInvalidParam, "%v", rots)
	}
}

func TestOutputName(t *testing.T) {
	files := []types.PendingFile{{Name: "report.pdf"}}
	tests := map[string]string{
		"compress":     "compressed-report.pdf",
		"merge":        "merged.pdf",
		"ocr":          "report.pdf-text.txt",
		"pdf-to-image": "images-report.zip",
		"pdf-to-md":    "report.md",
		"rotate":       "report_rotated.pdf",
		"protect":      "protected-report.pdf",
		"unlock":       "report_unlocked.pdf",
		"jpg-to-png":   "converted_images.zip",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, mustLookup(t, name).OutputName(files))
		})
	}
}

func TestPartName(t *testing.T) {
	merge := mustLookup(t, "merge")
	f := types.PendingFile{Name: "c.pdf"}
	assert.Equal(t, "file1.pdf", merge.PartName(0, f))
	assert.Equal(t, "file3.pdf", merge.PartName(2, f))

	conv := mustLookup(t, "jpg-to-png")
	assert.Equal(t, "c.pdf", conv.PartName(0, f))
}

func TestApplyOverrides(t *testing.T) {
	c := Default()
	err := c.ApplyOverrides(strings.NewReader(`
workflows:
  compress:
    endpoint: /v2/compress-pdf
    output: small-{base}.pdf
    defaults: ["compression=70"]
`))
	require.NoError(t, err)

	w, err := c.Lookup("compress")
	require.NoError(t, err)
	assert.Equal(t, "/v2/compress-pdf", w.Endpoint)
	assert.Equal(t, "small-a.pdf", w.OutputName([]types.PendingFile{{Name: "a.pdf"}}))

	fields, err := w.Fields(types.SubmissionParameters{})
	require.NoError(t, err)
	assert.Equal(t, "70", fields[0].Value)

	// The built-in catalog is untouched.
	orig := mustLookup(t, "compress")
	assert.Equal(t, "/compress-pdf", orig.Endpoint)
}

func TestApplyOverrides_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown workflow": "workflows:\n  split:\n    endpoint: /split\n",
		"relative path":    "workflows:\n  merge:\n    endpoint: merge\n",
		"bad default":      "workflows:\n  compress:\n    defaults: [\"compression\"]\n",
		"unknown field":    "workflows:\n  compress:\n    defaults: [\"quality=3\"]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Default().ApplyOverrides(strings.NewReader(doc)))
		})
	}
}

func TestApplyOverrides_Empty(t *testing.T) {
	assert.NoError(t, Default().ApplyOverrides(strings.NewReader("")))
	assert.NoError(t, Default().LoadOverrides("/nonexistent/catalog.yaml"))
}

func TestApplyOverrides_AllOrNothing(t *testing.T) {
	c := Default()
	err := c.ApplyOverrides(strings.NewReader(`
workflows:
  compress:
    endpoint: /v2/compress-pdf
  merge:
    endpoint: /v2/merge
  ocr:
    defaults: ["quality=3"]
`))
	require.ErrorIs(t, err, ErrInvalidParam)

	for name, endpoint := range map[string]string{"compress": "/compress-pdf", "merge": "/merge"} {
		w, err := c.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, endpoint, w.Endpoint, "%s keeps its built-in endpoint", name)
	}
}

func TestCatalog_Aliases(t *testing.T) {
	w := mustLookup(t, "pdf-to-md")
	assert.Equal(t, "/docs/pdf-to-md", w.Route)
	assert.Equal(t, []string{"/docs/md-to-pdf"}, w.Aliases)
}
