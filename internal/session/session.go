// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session drives one workflow from file selection to delivered
// result: files are offered to the upload controller, parameters are held
// until submission, the result goes to the downloader, and the attempt is
// written to history before the session resets.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/docconv/internal/download"
	"github.com/pdiddy/docconv/internal/history"
	"github.com/pdiddy/docconv/internal/logging"
	"github.com/pdiddy/docconv/internal/metrics"
	"github.com/pdiddy/docconv/internal/preview"
	"github.com/pdiddy/docconv/internal/secrets"
	"github.com/pdiddy/docconv/internal/submit"
	"github.com/pdiddy/docconv/internal/upload"
	"github.com/pdiddy/docconv/internal/workflow"
	"github.com/pdiddy/docconv/pkg/types"
)

// Recorder stores submission attempts. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Outcome is the result of a successful submission.
type Outcome struct {
	Result   *types.TransferResult
	Delivery download.Delivery
	// Files are the submitted file names in submission order.
	Files []string
}

// FailedError reports a submission that reached the service, or tried to,
// and did not produce a delivered result.
type FailedError struct {
	Workflow string
	// Message is the workflow's user-facing failure notice.
	Message string
	Err     error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%s (%v)", e.Message, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Session is the controller for one workflow.
type Session struct {
	wf         workflow.Workflow
	upload     *upload.Controller
	submitter  *submit.Submitter
	downloader *download.Downloader
	history    Recorder

	keepOnFailure bool
	params        types.SubmissionParameters
	viewer        *preview.Viewer
	log           *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithHistory records every attempted submission in r.
func WithHistory(r Recorder) Option {
	return func(s *Session) { s.history = r }
}

// WithKeepOnFailure sets whether a failed submission keeps the selection.
func WithKeepOnFailure(keep bool) Option {
	return func(s *Session) { s.keepOnFailure = keep }
}

// WithUploadOptions configures the session's upload controller.
func WithUploadOptions(opts ...upload.Option) Option {
	return func(s *Session) { s.upload = upload.New(s.wf, opts...) }
}

// New returns a session for wf. The selection is kept on failure unless
// WithKeepOnFailure(false) is given.
func New(wf workflow.Workflow, sub *submit.Submitter, dl *download.Downloader, opts ...Option) *Session {
	s := &Session{
		wf:            wf,
		submitter:     sub,
		downloader:    dl,
		keepOnFailure: true,
		log:           logging.Named("session"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.upload == nil {
		s.upload = upload.New(wf)
	}
	return s
}

// Workflow returns the session's workflow.
func (s *Session) Workflow() workflow.Workflow { return s.wf }

// Upload exposes the upload controller for reordering and removal.
func (s *Session) Upload() *upload.Controller { return s.upload }

// Downloader returns the session's downloader.
func (s *Session) Downloader() *download.Downloader { return s.downloader }

// Busy reports whether a submission is in flight.
func (s *Session) Busy() bool { return s.submitter.Busy() }

// Drop offers candidates to the upload controller. A new selection
// invalidates any page preview.
func (s *Session) Drop(candidates []upload.Candidate) upload.Report {
	report := s.upload.Offer(candidates)
	metrics.RecordRejections(report.Rejected)
	if len(report.Accepted) > 0 {
		s.viewer = nil
	}
	return report
}

// Params returns the parameters for the next submission.
func (s *Session) Params() types.SubmissionParameters { return s.params }

// SetParams replaces the parameters for the next submission.
func (s *Session) SetParams(p types.SubmissionParameters) { s.params = p }

// SetPassword sets the password parameter.
func (s *Session) SetPassword(pw string) { s.params.Password = pw }

// Preview renders the selected file and keeps the viewer so that its page
// rotations are submitted with the rotate workflow.
func (s *Session) Preview(r preview.Renderer) (*preview.Viewer, error) {
	files := s.upload.Selection()
	if len(files) == 0 {
		return nil, submit.ErrNoFiles
	}
	data, err := files[0].ReadAll()
	if err != nil {
		return nil, err
	}
	v, err := preview.Load(r, data)
	if err != nil {
		s.viewer = nil
		return nil, err
	}
	s.viewer = v
	return v, nil
}

// Viewer returns the current page preview, or nil.
func (s *Session) Viewer() *preview.Viewer { return s.viewer }

// AttachViewer sets the viewer whose rotations are submitted.
func (s *Session) AttachViewer(v *preview.Viewer) { s.viewer = v }

// Submit sends the selection with the current parameters and delivers the
// result. Validation failures and ErrBusy leave the session untouched.
// After an attempt the password is always cleared; the selection is
// cleared on success, and on failure unless the session keeps it.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	files := s.upload.Selection()
	params := s.params
	if s.viewer != nil && s.wf.HasParam(workflow.KindRotations) {
		params.Rotations = s.viewer.Rotations()
	}

	before := s.submitter.Generation()
	started := time.Now()
	res, err := s.submitter.Submit(ctx, s.wf, files, params)
	if s.submitter.Generation() == before {
		// Nothing was sent.
		return Outcome{}, err
	}

	var delivery download.Delivery
	if err == nil {
		delivery, err = s.downloader.Deliver(ctx, res)
	}
	finished := time.Now()

	entry := history.Entry{
		Workflow:   s.wf.Name,
		Endpoint:   s.wf.Endpoint,
		Files:      names(files),
		Bytes:      totalSize(files),
		Status:     history.StatusOK,
		Output:     delivery.Location,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if res != nil {
		entry.ResultBytes = int64(len(res.Data))
	}
	if err != nil {
		entry.Status = history.StatusFailed
		entry.Error = secrets.Redact(err.Error(), params.Password)
	}
	metrics.RecordSubmission(s.wf.Name, err == nil, entry.Bytes, entry.ResultBytes, finished.Sub(started))
	s.record(ctx, entry)

	s.params.Password = ""
	if err != nil {
		if !s.keepOnFailure {
			s.reset()
		}
		s.log.Warn("submission failed", zap.String("workflow", s.wf.Name), zap.String("error", entry.Error))
		return Outcome{}, &FailedError{Workflow: s.wf.Name, Message: s.failureMessage(), Err: err}
	}

	s.reset()
	return Outcome{Result: res, Delivery: delivery, Files: entry.Files}, nil
}

func (s *Session) reset() {
	s.upload.Clear()
	s.viewer = nil
	s.params.Rotations = nil
}

func (s *Session) failureMessage() string {
	if s.wf.FailureMessage != "" {
		return s.wf.FailureMessage
	}
	return "Submission failed. Please try again."
}

// record writes e to history even when ctx is already cancelled. Errors
// are logged only.
func (s *Session) record(ctx context.Context, e history.Entry) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.history.Record(ctx, e); err != nil {
		s.log.Warn("recording history", zap.Error(err))
	}
}

// IsValidation reports whether err is a client-side validation failure,
// meaning no request was made.
func IsValidation(err error) bool {
	return errors.Is(err, submit.ErrNoFiles) ||
		errors.Is(err, submit.ErrTooManyFiles) ||
		errors.Is(err, workflow.ErrMissingParam) ||
		errors.Is(err, workflow.ErrInvalidParam)
}

func names(files []types.PendingFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func totalSize(files []types.PendingFile) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}
