// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docconv/internal/history"
	"github.com/pdiddy/docconv/internal/preview"
	"github.com/pdiddy/docconv/internal/workflow"
)

// fakeService answers every request with body and records the form.
type fakeService struct {
	path   string
	fields map[string]string
	files  []string
	status int
	body   string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.path = r.URL.Path
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.fields = map[string]string{}
	for k, v := range r.MultipartForm.Value {
		f.fields[k] = v[0]
	}
	f.files = nil
	for _, fh := range r.MultipartForm.File["files"] {
		f.files = append(f.files, fh.Filename)
	}
	for _, fh := range r.MultipartForm.File["file"] {
		f.files = append(f.files, fh.Filename)
	}
	if f.status != 0 {
		http.Error(w, f.body, f.status)
		return
	}
	io.WriteString(w, f.body)
}

type env struct {
	svc     *fakeService
	server  string
	outDir  string
	histDB  string
	workDir string
}

func newEnv(t *testing.T, body string) *env {
	t.Helper()
	svc := &fakeService{body: body}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	return &env{
		svc:     svc,
		server:  srv.URL,
		outDir:  filepath.Join(dir, "out"),
		histDB:  filepath.Join(dir, "history.db"),
		workDir: dir,
	}
}

// run executes the root command against the fake service with fresh flag
// values, a temporary output directory and history, and no secrets.
func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	args = append(args,
		"--server", e.server,
		"--output", e.outDir,
		"--history", e.histDB,
		"--secrets-dir", filepath.Join(e.workDir, "no-secrets"),
	)
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(bytes.NewBufferString(stdin))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores every flag to its default so commands can be run
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (e *env) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.workDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompressCommand(t *testing.T) {
	e := newEnv(t, "compressed bytes")
	src := e.file(t, "report.pdf", "%PDF-1.4 report")

	out, err := e.run(t, "", "compress", src, "--compression", "70")
	require.NoError(t, err, out)

	assert.Equal(t, "/compress-pdf", e.svc.path)
	assert.Equal(t, "70", e.svc.fields["compression"])
	assert.Equal(t, []string{"report.pdf"}, e.svc.files)

	data, err := os.ReadFile(filepath.Join(e.outDir, "compressed-report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "compressed bytes", string(data))
	assert.Contains(t, out, "saved")

	store, err := history.Open(e.histDB)
	require.NoError(t, err)
	defer store.Close()
	entries, err := store.List(context.Background(), "compress", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.StatusOK, entries[0].Status)
}

func TestMergeCommand_Move(t *testing.T) {
	e := newEnv(t, "merged")
	a := e.file(t, "a.pdf", "%PDF-a")
	b := e.file(t, "b.pdf", "%PDF-b")
	c := e.file(t, "c.pdf", "%PDF-c")

	out, err := e.run(t, "", "merge", a, b, c, "--move", "c.pdf:1")
	require.NoError(t, err, out)

	assert.Equal(t, []string{"file1.pdf", "file2.pdf", "file3.pdf"}, e.svc.files)
	_, err = os.Stat(filepath.Join(e.outDir, "merged.pdf"))
	assert.NoError(t, err)
}

func TestOCRCommand_Save(t *testing.T) {
	e := newEnv(t, "Hello World")
	src := e.file(t, "scan.pdf", "%PDF-1.4 scan")

	out, err := e.run(t, "", "ocr", src, "--save")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Hello World")

	data, err := os.ReadFile(filepath.Join(e.outDir, "scan.pdf-text.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(data))
}

func TestProtectCommand_PromptsForPassword(t *testing.T) {
	oldRead, oldTTY := readPassword, stdinIsTerminal
	t.Cleanup(func() { readPassword, stdinIsTerminal = oldRead, oldTTY })
	stdinIsTerminal = func() bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte("hunter2"), nil }

	e := newEnv(t, "locked")
	src := e.file(t, "plain.pdf", "%PDF-1.4 plain")

	out, err := e.run(t, "", "protect", src)
	require.NoError(t, err, out)
	assert.Equal(t, "hunter2", e.svc.fields["password"])
	_, err = os.Stat(filepath.Join(e.outDir, "protected-plain.pdf"))
	assert.NoError(t, err)
}

func TestCommand_OversizedRejectedLocally(t *testing.T) {
	e := newEnv(t, "x")
	src := filepath.Join(e.workDir, "huge.pdf")
	f, err := os.Create(src)
	require.NoError(t, err)
	_, err = f.WriteString("%PDF-1.4")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(60<<20))
	require.NoError(t, f.Close())

	out, err := e.run(t, "", "pdf-to-md", src)
	require.Error(t, err)
	assert.Contains(t, out, "File size must be less than 50MB.")
	assert.Empty(t, e.svc.path, "no request is made")
}

func TestCommand_ServerFailure(t *testing.T) {
	e := newEnv(t, "boom")
	e.svc.status = http.StatusInternalServerError
	src := e.file(t, "doc.pdf", "%PDF-1.4")

	out, err := e.run(t, "", "pdf-to-image", src, "--format", "jpg")
	require.Error(t, err)
	assert.Contains(t, out, "Conversion failed. Please try again.")
	assert.Equal(t, "jpg", e.svc.fields["format"])
}

type stubRenderer struct {
	pages int
	err   error
}

func (s stubRenderer) Render([]byte) ([]preview.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return make([]preview.Page, s.pages), nil
}

func (s stubRenderer) PageCount([]byte) (int, error) { return s.pages, s.err }

func TestRotateCommand(t *testing.T) {
	old := renderer
	t.Cleanup(func() { renderer = old })
	renderer = stubRenderer{pages: 3}

	e := newEnv(t, "rotated")
	src := e.file(t, "deck.pdf", "%PDF-1.4 deck")

	out, err := e.run(t, "", "rotate", src, "--rotate", "2:90", "--rotate", "3:-90")
	require.NoError(t, err, out)
	assert.Equal(t, "[[1,0],[2,90],[3,270]]", e.svc.fields["rotations"])
	_, err = os.Stat(filepath.Join(e.outDir, "deck_rotated.pdf"))
	assert.NoError(t, err)
}

func TestRotateCommand_Interactive(t *testing.T) {
	old := renderer
	t.Cleanup(func() { renderer = old })
	renderer = stubRenderer{pages: 2}

	e := newEnv(t, "rotated")
	src := e.file(t, "deck.pdf", "%PDF-1.4 deck")

	out, err := e.run(t, "n\nr\nr\ns\n", "rotate", src, "--interactive")
	require.NoError(t, err, out)
	assert.Equal(t, "[[1,0],[2,180]]", e.svc.fields["rotations"])
}

func TestRotateCommand_DecodeFailure(t *testing.T) {
	old := renderer
	t.Cleanup(func() { renderer = old })
	renderer = stubRenderer{err: preview.ErrDecode}

	e := newEnv(t, "rotated")
	src := e.file(t, "deck.pdf", "%PDF-1.4 deck")

	_, err := e.run(t, "", "rotate", src)
	assert.True(t, errors.Is(err, preview.ErrDecode))
	assert.Empty(t, e.svc.path)
}

func TestCommand_CatalogDefaults(t *testing.T) {
	e := newEnv(t, "result")
	catalog := e.file(t, "catalog.yaml", `workflows:
  compress:
    defaults: ["compression=70"]
  pdf-to-image:
    defaults: ["format=jpg"]
`)
	t.Setenv("DOCCONV_CATALOG", catalog)
	src := e.file(t, "r.pdf", "%PDF-1.4 r")

	out, err := e.run(t, "", "compress", src)
	require.NoError(t, err, out)
	assert.Equal(t, "70", e.svc.fields["compression"])

	out, err = e.run(t, "", "pdf-to-image", src)
	require.NoError(t, err, out)
	assert.Equal(t, "jpg", e.svc.fields["format"])

	out, err = e.run(t, "", "compress", src, "--compression", "30")
	require.NoError(t, err, out)
	assert.Equal(t, "30", e.svc.fields["compression"], "an explicit flag wins over the catalog")
}

func TestCompressCommand_BuiltinDefault(t *testing.T) {
	e := newEnv(t, "result")
	src := e.file(t, "r.pdf", "%PDF-1.4 r")

	out, err := e.run(t, "", "compress", src)
	require.NoError(t, err, out)
	assert.Equal(t, "50", e.svc.fields["compression"])
}

func TestCompressCommand_ExplicitZeroRejected(t *testing.T) {
	e := newEnv(t, "result")
	src := e.file(t, "r.pdf", "%PDF-1.4 r")

	_, err := e.run(t, "", "compress", src, "--compression", "0")
	assert.ErrorIs(t, err, workflow.ErrInvalidParam)
	assert.Empty(t, e.svc.path, "no request is sent")
}
