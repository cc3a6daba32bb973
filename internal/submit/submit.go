// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package submit sends one workflow submission to the conversion service.
// A Submitter admits at most one request in flight; a concurrent Submit
// fails fast with ErrBusy instead of issuing a second request.
package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/docconv/internal/httputil"
	"github.com/pdiddy/docconv/internal/logging"
	"github.com/pdiddy/docconv/internal/workflow"
	"github.com/pdiddy/docconv/pkg/types"
)

var (
	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("a submission is already in progress")
	// ErrNoFiles is returned when Submit is called with an empty selection.
	ErrNoFiles = errors.New("no file selected")
	// ErrTooManyFiles is returned when a single-file workflow gets more than one file.
	ErrTooManyFiles = errors.New("workflow accepts a single file")
)

// Submitter performs multipart POSTs against the conversion service.
type Submitter struct {
	client *http.Client
	cfg    types.HTTPConfig
	log    *zap.Logger

	mu   sync.Mutex
	busy bool
	gen  uint64
}

// New returns a Submitter using client for requests to cfg.Server.
// A nil client gets one with cfg.Timeout.
func New(client *http.Client, cfg types.HTTPConfig) *Submitter {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Server == "" {
		cfg.Server = types.DefaultServer
	}
	return &Submitter{client: client, cfg: cfg, log: logging.Named("submit")}
}

// Busy reports whether a submission is in flight.
func (s *Submitter) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Generation returns the number of submissions admitted so far.
func (s *Submitter) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Submitter) acquire() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return 0, ErrBusy
	}
	s.busy = true
	s.gen++
	return s.gen, nil
}

func (s *Submitter) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Submit validates params, sends files and fields to wf's endpoint, and
// returns the materialised result. Validation failures return before any
// request is made. Exactly one request is attempted.
func (s *Submitter) Submit(ctx context.Context, wf workflow.Workflow, files []types.PendingFile, params types.SubmissionParameters) (*types.TransferResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if !wf.Multi && len(files) > 1 {
		return nil, fmt.Errorf("%w: %s got %d", ErrTooManyFiles, wf.Name, len(files))
	}
	fields, err := wf.Fields(params)
	if err != nil {
		return nil, err
	}

	gen, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer s.release()

	body, contentType, err := encode(wf, files, fields)
	if err != nil {
		return nil, err
	}

	url := httputil.JoinURL(s.cfg.Server, wf.Endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	if wf.Response == types.ResultText {
		req.Header.Set("Accept", "text/plain")
	}

	start := time.Now()
	s.log.Debug("submitting",
		zap.String("workflow", wf.Name),
		zap.String("url", url),
		zap.Int("files", len(files)),
		zap.Int("bytes", body.Len()),
		zap.Uint64("generation", gen))

	resp, err := httputil.Do(ctx, s.client, req)
	if err != nil {
		s.log.Debug("submission failed", zap.String("workflow", wf.Name), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", wf.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", wf.Name, err)
	}

	ct := resp.Header.Get("Content-Type")
	if wf.ForceContentType || ct == "" {
		ct = wf.ContentType
	}

	s.log.Debug("submission done",
		zap.String("workflow", wf.Name),
		zap.Int("status", resp.StatusCode),
		zap.Int("result_bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	return &types.TransferResult{
		Kind:        wf.Response,
		Filename:    wf.OutputName(files),
		ContentType: ct,
		Data:        data,
	}, nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// encode writes the file parts, then the scalar fields, into a multipart body.
func encode(wf workflow.Workflow, files []types.PendingFile, fields []workflow.Field) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for i, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(wf.FileField), quoteEscaper.Replace(wf.PartName(i, f))))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating part for %s: %w", f.Name, err)
		}
		if err := copyFile(part, f); err != nil {
			return nil, "", err
		}
	}

	for _, field := range fields {
		if err := mw.WriteField(field.Name, field.Value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", field.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func copyFile(w io.Writer, f types.PendingFile) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return nil
}
