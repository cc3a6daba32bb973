// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docconv/internal/download"
	"github.com/pdiddy/docconv/internal/history"
	"github.com/pdiddy/docconv/internal/httputil"
	"github.com/pdiddy/docconv/internal/preview"
	"github.com/pdiddy/docconv/internal/submit"
	"github.com/pdiddy/docconv/internal/upload"
	"github.com/pdiddy/docconv/internal/workflow"
	"github.com/pdiddy/docconv/pkg/types"
)

// --- fakes ---

type request struct {
	path   string
	files  []string // "field:filename=content"
	fields map[string]string
}

// service is a fake conversion service that records every request.
type service struct {
	mu       sync.Mutex
	requests []request
	reply    func(w http.ResponseWriter)
}

func (s *service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := request{path: r.URL.Path, fields: map[string]string{}}
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(p)
		if p.FileName() != "" {
			req.files = append(req.files, fmt.Sprintf("%s:%s=%s", p.FormName(), p.FileName(), data))
		} else {
			req.fields[p.FormName()] = string(data)
		}
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	s.reply(w)
}

func (s *service) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type memSaver struct {
	saved map[string][]byte
	err   error
}

func (m *memSaver) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.saved[name] = data
	return "mem://" + name, nil
}

type clip struct{ text string }

func (c *clip) WriteText(text string) error {
	c.text = text
	return nil
}

type recorder struct{ entries []history.Entry }

func (r *recorder) Record(_ context.Context, e history.Entry) (history.Entry, error) {
	r.entries = append(r.entries, e)
	return e, nil
}

// harness wires a session for one workflow to a fake service.
type harness struct {
	svc   *service
	saver *memSaver
	clip  *clip
	hist  *recorder
	warns []string
	s     *Session
}

func newHarness(t *testing.T, name string, reply func(w http.ResponseWriter), opts ...Option) *harness {
	t.Helper()
	wf, err := workflow.Default().Lookup(name)
	require.NoError(t, err)

	h := &harness{
		svc:   &service{reply: reply},
		saver: &memSaver{saved: map[string][]byte{}},
		clip:  &clip{},
		hist:  &recorder{},
	}
	srv := httptest.NewServer(h.svc)
	t.Cleanup(srv.Close)

	ids := 0
	sub := submit.New(srv.Client(), types.HTTPConfig{Server: srv.URL})
	dl := download.New(h.saver, h.clip)
	opts = append([]Option{
		WithHistory(h.hist),
		WithUploadOptions(
			upload.WithNotifier(upload.NotifierFunc(func(msg string) { h.warns = append(h.warns, msg) })),
			upload.WithIDFunc(func() string { ids++; return fmt.Sprintf("f%d", ids) }),
		),
	}, opts...)
	h.s = New(wf, sub, dl, opts...)
	return h
}

func replyBytes(ct, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", ct)
		io.WriteString(w, body)
	}
}

func pdf(name string, size int) upload.Candidate {
	data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'x'}, size)...)
	return upload.FromBytes(name, data)
}

// --- end-to-end scenarios ---

func TestCompress_Scenario(t *testing.T) {
	h := newHarness(t, "compress", replyBytes("application/pdf", "small"))

	report := h.s.Drop([]upload.Candidate{pdf("report.pdf", 2<<20)})
	require.Len(t, report.Accepted, 1)
	h.s.SetParams(types.SubmissionParameters{Compression: 70})

	out, err := h.s.Submit(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, h.svc.count())
	req := h.svc.requests[0]
	assert.Equal(t, "/compress-pdf", req.path)
	require.Len(t, req.files, 1)
	assert.True(t, strings.HasPrefix(req.files[0], "file:report.pdf=%PDF-1.4"))
	assert.Equal(t, map[string]string{"compression": "70"}, req.fields)

	assert.Equal(t, "mem://compressed-report.pdf", out.Delivery.Location)
	assert.Equal(t, "small", string(h.saver.saved["compressed-report.pdf"]))
	assert.True(t, h.s.Upload().Empty(), "session resets after success")

	require.Len(t, h.hist.entries, 1)
	e := h.hist.entries[0]
	assert.Equal(t, history.StatusOK, e.Status)
	assert.Equal(t, []string{"report.pdf"}, e.Files)
	assert.Equal(t, int64(5), e.ResultBytes)
}

func TestMerge_ReorderScenario(t *testing.T) {
	h := newHarness(t, "merge", replyBytes("", "merged"))

	h.s.Drop([]upload.Candidate{
		upload.FromBytes("a.pdf", []byte("%PDF-a")),
		upload.FromBytes("b.pdf", []byte("%PDF-b")),
	})
	h.s.Drop([]upload.Candidate{upload.FromBytes("c.pdf", []byte("%PDF-c"))})
	require.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, h.s.Upload().List().Names())

	require.NoError(t, h.s.Upload().List().Move("f3", "f1"))
	require.Equal(t, []string{"c.pdf", "a.pdf", "b.pdf"}, h.s.Upload().List().Names())

	out, err := h.s.Submit(context.Background())
	require.NoError(t, err)

	req := h.svc.requests[0]
	assert.Equal(t, "/merge", req.path)
	assert.Equal(t, []string{
		"files:file1.pdf=%PDF-c",
		"files:file2.pdf=%PDF-a",
		"files:file3.pdf=%PDF-b",
	}, req.files)
	assert.Equal(t, "application/pdf", out.Result.ContentType)
	assert.Equal(t, []string{"c.pdf", "a.pdf", "b.pdf"}, out.Files)
	assert.Contains(t, h.saver.saved, "merged.pdf")
}

func TestOversized_NoRequest(t *testing.T) {
	for _, name := range []string{"compress", "ocr", "pdf-to-md", "protect"} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, name, replyBytes("", "x"))
			h.s.Drop([]upload.Candidate{pdf("keep.pdf", 10)})

			report := h.s.Drop([]upload.Candidate{{
				Name: "huge.pdf", Size: 60 << 20, ContentType: "application/pdf",
			}})
			assert.Empty(t, report.Accepted)
			assert.Equal(t, []string{"File size must be less than 50MB."}, h.warns)
			assert.Equal(t, []string{"keep.pdf"}, h.s.Upload().List().Names())
			assert.Equal(t, 0, h.svc.count())
		})
	}
}

func TestOCR_TextScenario(t *testing.T) {
	h := newHarness(t, "ocr", replyBytes("text/plain", "Hello World"))
	h.s.Drop([]upload.Candidate{pdf("scan.pdf", 100)})

	out, err := h.s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello World", out.Delivery.Text)
	assert.Empty(t, h.saver.saved, "text is displayed, not saved")

	loc, err := h.s.Downloader().SaveText(context.Background(), out.Files[0], out.Delivery.Text)
	require.NoError(t, err)
	assert.Equal(t, "mem://scan.pdf-text.txt", loc)
	assert.Equal(t, "Hello World", string(h.saver.saved["scan.pdf-text.txt"]))

	require.NoError(t, h.s.Downloader().CopyText(out.Delivery.Text))
	assert.Equal(t, "Hello World", h.clip.text)
}

// --- reset policy ---

func failing(w http.ResponseWriter) {
	http.Error(w, "boom", http.StatusInternalServerError)
}

func TestFailure_KeepsSelectionClearsPassword(t *testing.T) {
	echoing := func(w http.ResponseWriter) {
		http.Error(w, "cannot encrypt with hunter2", http.StatusInternalServerError)
	}
	h := newHarness(t, "protect", echoing)
	h.s.Drop([]upload.Candidate{pdf("doc.pdf", 10)})
	h.s.SetPassword("hunter2")

	_, err := h.s.Submit(context.Background())
	require.Error(t, err)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "Failed to protect PDF. Please try again.", failed.Message)
	var status *httputil.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusInternalServerError, status.Code)

	assert.Equal(t, []string{"doc.pdf"}, h.s.Upload().List().Names())
	assert.Empty(t, h.s.Params().Password)
	require.Len(t, h.hist.entries, 1)
	assert.Equal(t, history.StatusFailed, h.hist.entries[0].Status)
	assert.NotContains(t, h.hist.entries[0].Error, "hunter2")
	assert.Contains(t, h.hist.entries[0].Error, "cannot encrypt with ****")
}

func TestFailure_ClearsSelectionWhenNotKept(t *testing.T) {
	h := newHarness(t, "compress", failing, WithKeepOnFailure(false))
	h.s.Drop([]upload.Candidate{pdf("doc.pdf", 10)})

	_, err := h.s.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, h.s.Upload().Empty())
}

func TestSaveFailure_IsSubmissionFailure(t *testing.T) {
	h := newHarness(t, "compress", replyBytes("application/pdf", "ok"))
	h.saver.err = errors.New("disk full")
	h.s.Drop([]upload.Candidate{pdf("doc.pdf", 10)})

	_, err := h.s.Submit(context.Background())
	require.ErrorContains(t, err, "disk full")
	assert.False(t, h.s.Upload().Empty())
	assert.Equal(t, history.StatusFailed, h.hist.entries[0].Status)
}

func TestValidationFailure_NoRequestNoReset(t *testing.T) {
	h := newHarness(t, "unlock", replyBytes("", "x"))
	h.s.Drop([]upload.Candidate{pdf("locked.pdf", 10)})
	h.s.SetPassword("   ")

	_, err := h.s.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 0, h.svc.count())
	assert.Empty(t, h.hist.entries)
	assert.Equal(t, "   ", h.s.Params().Password, "nothing was attempted")
	assert.False(t, h.s.Upload().Empty())

	h = newHarness(t, "compress", replyBytes("", "x"))
	_, err = h.s.Submit(context.Background())
	assert.ErrorIs(t, err, submit.ErrNoFiles)
	assert.True(t, IsValidation(err))
}

// --- rotate with preview ---

type pagesRenderer struct {
	n   int
	err error
}

func (r pagesRenderer) Render([]byte) ([]preview.Page, error) {
	if r.err != nil {
		return nil, r.err
	}
	return make([]preview.Page, r.n), nil
}

func TestRotate_SubmitsViewerRotations(t *testing.T) {
	h := newHarness(t, "rotate", replyBytes("application/pdf", "rotated"))
	h.s.Drop([]upload.Candidate{pdf("deck.pdf", 10)})

	v, err := h.s.Preview(pagesRenderer{n: 3})
	require.NoError(t, err)
	v.Next()
	v.Rotate()
	v.Next()
	v.Rotate()
	v.Rotate()

	_, err = h.s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[[1,0],[2,90],[3,180]]", h.svc.requests[0].fields["rotations"])
	assert.Contains(t, h.saver.saved, "deck_rotated.pdf")
	assert.Nil(t, h.s.Viewer(), "preview is discarded on reset")
}

func TestRotate_DecodeFailure(t *testing.T) {
	h := newHarness(t, "rotate", replyBytes("", "x"))
	h.s.Drop([]upload.Candidate{pdf("broken.pdf", 10)})

	_, err := h.s.Preview(pagesRenderer{err: errors.New("bad xref")})
	assert.ErrorIs(t, err, preview.ErrDecode)
	assert.Nil(t, h.s.Viewer())

	_, err = h.s.Submit(context.Background())
	assert.ErrorIs(t, err, workflow.ErrMissingParam)
	assert.Equal(t, 0, h.svc.count())
}

func TestPreview_NoSelection(t *testing.T) {
	h := newHarness(t, "rotate", replyBytes("", "x"))
	_, err := h.s.Preview(pagesRenderer{n: 1})
	assert.ErrorIs(t, err, submit.ErrNoFiles)
}

func TestDrop_DiscardsPreview(t *testing.T) {
	h := newHarness(t, "rotate", replyBytes("", "x"))
	h.s.Drop([]upload.Candidate{pdf("one.pdf", 10)})
	_, err := h.s.Preview(pagesRenderer{n: 2})
	require.NoError(t, err)

	h.s.Drop([]upload.Candidate{pdf("two.pdf", 10)})
	assert.Nil(t, h.s.Viewer())
}
