// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/docconv/internal/download"
	"github.com/pdiddy/docconv/internal/httputil"
	"github.com/pdiddy/docconv/internal/session"
	"github.com/pdiddy/docconv/internal/submit"
	"github.com/pdiddy/docconv/internal/upload"
	"github.com/pdiddy/docconv/internal/workflow"
	"github.com/pdiddy/docconv/pkg/types"
)

const (
	maxMultiFiles = 20
	formOverhead  = 1 << 20
	formMemory    = 32 << 20
)

// responseSaver writes a binary result straight to the HTTP response as
// an attachment.
type responseSaver struct {
	w       http.ResponseWriter
	written bool
}

func (rs *responseSaver) Save(_ context.Context, name, contentType string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := rs.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	rs.w.WriteHeader(http.StatusOK)
	rs.written = true
	if _, err := io.Copy(rs.w, r); err != nil {
		return "", fmt.Errorf("writing response: %w", err)
	}
	return name, nil
}

// convert handles one submission for wf.
func (s *Server) convert(wf workflow.Workflow) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		maxFiles := int64(1)
		if wf.Multi {
			maxFiles = maxMultiFiles
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize*maxFiles+formOverhead)
		if err := r.ParseMultipartForm(formMemory); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request exceeds %d bytes.", tooBig.Limit))
				return
			}
			writeError(w, http.StatusBadRequest, "Expected a multipart/form-data request.")
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := formFiles(r.MultipartForm, wf)
		if len(headers) == 0 {
			writeError(w, http.StatusBadRequest, "File is required.")
			return
		}
		candidates, err := s.candidates(headers)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		params, err := formParams(r.MultipartForm, wf)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		saver := &responseSaver{w: w}
		var warning string
		sess := session.New(wf,
			submit.New(s.client, s.cfg.HTTP),
			download.New(saver, nil),
			session.WithHistory(s.cfg.History),
			session.WithUploadOptions(
				upload.WithMaxSize(s.cfg.MaxFileSize),
				upload.WithNotifier(upload.NotifierFunc(func(msg string) { warning = msg })),
			),
		)

		report := sess.Drop(candidates)
		if len(report.Accepted) == 0 {
			status := http.StatusUnsupportedMediaType
			for _, rej := range report.Rejected {
				if errors.Is(rej.Err, upload.ErrTooLarge) {
					status = http.StatusRequestEntityTooLarge
				}
			}
			writeError(w, status, warning)
			return
		}
		if warning != "" {
			s.log.Warn("files skipped", zap.String("workflow", wf.Name), zap.String("warning", warning))
		}

		sess.SetParams(params)
		out, err := sess.Submit(r.Context())
		if err != nil {
			if saver.written {
				s.log.Warn("response interrupted", zap.String("workflow", wf.Name), zap.Error(err))
				return
			}
			s.writeFailure(w, wf, err)
			return
		}

		if out.Result.Kind == types.ResultText {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, out.Delivery.Text)
		}
	})
}

func (s *Server) writeFailure(w http.ResponseWriter, wf workflow.Workflow, err error) {
	switch {
	case session.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away.
	default:
		msg := err.Error()
		var failed *session.FailedError
		if errors.As(err, &failed) {
			msg = failed.Message
		}
		status := http.StatusBadGateway
		var se *httputil.StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
			status = se.Code
		}
		s.log.Warn("submission failed", zap.String("workflow", wf.Name), zap.Error(err))
		writeError(w, status, msg)
	}
}

// formFiles returns the file parts under wf's field, falling back to the
// other common field name so both "file" and "files" forms work.
func formFiles(form *multipart.Form, wf workflow.Workflow) []*multipart.FileHeader {
	if fhs := form.File[wf.FileField]; len(fhs) > 0 {
		return fhs
	}
	for _, alt := range []string{"file", "files"} {
		if fhs := form.File[alt]; len(fhs) > 0 {
			return fhs
		}
	}
	return nil
}

// candidates reads each part into memory. Oversized parts are not read;
// the upload controller rejects them by size.
func (s *Server) candidates(headers []*multipart.FileHeader) ([]upload.Candidate, error) {
	out := make([]upload.Candidate, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > s.cfg.MaxFileSize {
			out = append(out, upload.Candidate{Name: fh.Filename, Size: fh.Size})
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		out = append(out, upload.FromBytes(fh.Filename, data))
	}
	return out, nil
}

// formParams reads the scalar fields the service understands. An explicit
// compression must be within bounds.
func formParams(form *multipart.Form, wf workflow.Workflow) (types.SubmissionParameters, error) {
	get := func(name string) string {
		if v := form.Value[name]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	var p types.SubmissionParameters
	if v := strings.TrimSpace(get("compression")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("compression must be an integer, got %q", v)
		}
		if param, ok := wf.Param(workflow.KindCompression); ok {
			if err := param.CheckRange(n); err != nil {
				return p, err
			}
		}
		p.Compression = n
	}
	p.Password = get("password")
	p.Format = get("format")
	p.Target = get("target")
	if v := strings.TrimSpace(get("rotations")); v != "" {
		if err := json.Unmarshal([]byte(v), &p.Rotations); err != nil {
			return p, fmt.Errorf("rotations must be a JSON array of [page, degrees] pairs: %v", err)
		}
	}
	return p, nil
}
