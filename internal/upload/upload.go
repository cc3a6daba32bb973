// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upload validates offered files and holds the accepted selection
// for one workflow. Single-file workflows keep at most one file and a new
// offer replaces it; multi-file workflows either append to the ordered
// sequence or replace it, as the workflow declares.
package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/pdiddy/docconv/internal/filelist"
	"github.com/pdiddy/docconv/internal/workflow"
	"github.com/pdiddy/docconv/pkg/types"
)

var (
	// ErrTooLarge is returned for files above the size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupportedType is returned for files whose type the workflow does not accept.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Candidate is a file offered by a drop, a file picker, a CLI argument, or
// a gateway multipart part. It becomes a PendingFile once accepted.
type Candidate struct {
	Name        string
	Size        int64
	ContentType string
	Path        string
	Data        []byte
}

// FromPath stats path and sniffs its content type.
func FromPath(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("%s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("detecting type of %s: %w", path, err)
	}
	return Candidate{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: baseType(mt.String()),
		Path:        path,
	}, nil
}

// FromBytes wraps in-memory content and sniffs its content type.
func FromBytes(name string, data []byte) Candidate {
	return Candidate{
		Name:        filepath.Base(name),
		Size:        int64(len(data)),
		ContentType: baseType(mimetype.Detect(data).String()),
		Data:        data,
	}
}

func baseType(s string) string {
	t, _, _ := strings.Cut(s, ";")
	return strings.TrimSpace(t)
}

// Rejection records why an offered file was excluded.
type Rejection struct {
	Name string
	Size int64
	Err  error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s: %v", r.Name, r.Err)
}

func (r Rejection) Unwrap() error { return r.Err }

// Report is the outcome of one Offer call.
type Report struct {
	Accepted []types.PendingFile
	Rejected []Rejection
}

// Err joins the rejections, or returns nil when every file was accepted.
func (r Report) Err() error {
	if len(r.Rejected) == 0 {
		return nil
	}
	errs := make([]error, len(r.Rejected))
	for i, rej := range r.Rejected {
		errs[i] = rej
	}
	return errors.Join(errs...)
}

// Notifier receives the user-facing warning produced when files are rejected.
type Notifier interface {
	Warn(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Warn calls f(msg).
func (f NotifierFunc) Warn(msg string) { f(msg) }

// Controller holds the accepted selection for one workflow.
type Controller struct {
	wf         workflow.Workflow
	maxSize    int64
	notify     Notifier
	newID      func() string
	files      filelist.List
	dragActive bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxSize overrides the size limit. Non-positive values keep the default.
func WithMaxSize(n int64) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithNotifier sets the receiver of rejection warnings.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// WithIDFunc replaces the ID generator. Tests use it for stable IDs.
func WithIDFunc(f func() string) Option {
	return func(c *Controller) { c.newID = f }
}

// New returns a Controller for wf with a 50 MiB limit.
func New(wf workflow.Workflow, opts ...Option) *Controller {
	c := &Controller{
		wf:      wf,
		maxSize: types.MaxFileSize,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Workflow returns the workflow the controller validates for.
func (c *Controller) Workflow() workflow.Workflow { return c.wf }

// Offer validates a batch of candidates and updates the selection. Files
// that fail validation are excluded and reported; if nothing is accepted
// the selection is left unchanged.
func (c *Controller) Offer(candidates []Candidate) Report {
	var report Report
	for _, cand := range candidates {
		if err := c.check(cand); err != nil {
			report.Rejected = append(report.Rejected, Rejection{Name: cand.Name, Size: cand.Size, Err: err})
			continue
		}
		report.Accepted = append(report.Accepted, c.pending(cand))
		if !c.wf.Multi {
			break
		}
	}

	if len(report.Accepted) > 0 {
		if !c.wf.Multi || !c.wf.Append {
			c.files.Reset()
		}
		c.files.Append(report.Accepted...)
	}

	if len(report.Rejected) > 0 && c.notify != nil {
		c.notify.Warn(c.warning(report.Rejected))
	}
	return report
}

func (c *Controller) check(cand Candidate) error {
	if cand.Size > c.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds %s", ErrTooLarge, cand.Size, c.limit())
	}
	if !c.wf.Accepts(cand.Name, cand.ContentType) {
		return fmt.Errorf("%w: %s (expected %s)", ErrUnsupportedType, cand.ContentType, c.wf.AcceptList())
	}
	return nil
}

func (c *Controller) pending(cand Candidate) types.PendingFile {
	id := c.newID()
	if cand.Path != "" {
		return types.NewPathFile(id, cand.Name, cand.Path, cand.Size, cand.ContentType)
	}
	return types.NewMemoryFile(id, cand.Name, cand.Data, cand.ContentType)
}

func (c *Controller) limit() string {
	return fmt.Sprintf("%dMB", c.maxSize>>20)
}

func (c *Controller) warning(rejected []Rejection) string {
	var tooLarge, wrongType []string
	for _, r := range rejected {
		if errors.Is(r.Err, ErrTooLarge) {
			tooLarge = append(tooLarge, r.Name)
		} else {
			wrongType = append(wrongType, r.Name)
		}
	}

	var parts []string
	if len(tooLarge) > 0 {
		if c.wf.Multi {
			parts = append(parts, fmt.Sprintf("Some files exceeded the %s limit and were skipped: %s.", c.limit(), strings.Join(tooLarge, ", ")))
		} else {
			parts = append(parts, fmt.Sprintf("File size must be less than %s.", c.limit()))
		}
	}
	if len(wrongType) > 0 {
		parts = append(parts, fmt.Sprintf("Unsupported file type (expected %s): %s.", c.wf.AcceptList(), strings.Join(wrongType, ", ")))
	}
	return strings.Join(parts, " ")
}

// Selection returns the accepted files in submission order.
func (c *Controller) Selection() []types.PendingFile {
	return c.files.Files()
}

// List exposes the ordered sequence for reordering.
func (c *Controller) List() *filelist.List {
	return &c.files
}

// Empty reports whether no file is selected.
func (c *Controller) Empty() bool {
	return c.files.Len() == 0
}

// Remove drops one file from the selection.
func (c *Controller) Remove(id string) error {
	return c.files.Remove(id)
}

// Clear empties the selection.
func (c *Controller) Clear() {
	c.files.Reset()
}

// SetDragActive records whether a drag is hovering over the drop target.
// It only affects presentation.
func (c *Controller) SetDragActive(active bool) {
	c.dragActive = active
}

// DragActive reports the hover flag.
func (c *Controller) DragActive() bool {
	return c.dragActive
}
