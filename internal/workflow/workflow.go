// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow defines conversion workflows as declarative values.
// A Workflow names the remote endpoint, the accepted file types, whether it
// takes one file or an ordered sequence, the extra parameters it sends, and
// how its result is named and delivered. Every command and gateway route is
// an instance of the same definition.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/docconv/pkg/types"
)

var (
	// ErrUnknownWorkflow is returned when a workflow name or route is not in the catalog.
	ErrUnknownWorkflow = errors.New("unknown workflow")
	// ErrMissingParam is returned when a required parameter is empty.
	ErrMissingParam = errors.New("missing parameter")
	// ErrInvalidParam is returned when a parameter is out of range or not an allowed value.
	ErrInvalidParam = errors.New("invalid parameter")
)

// ParamKind selects which SubmissionParameters field a parameter reads.
type ParamKind string

const (
	KindCompression ParamKind = "compression"
	KindPassword    ParamKind = "password"
	KindFormat      ParamKind = "format"
	KindTarget      ParamKind = "target"
	KindRotations   ParamKind = "rotations"
)

// Param describes one scalar multipart field sent with the files.
type Param struct {
	// Field is the multipart field name.
	Field string    `yaml:"field"`
	Kind  ParamKind `yaml:"kind"`

	// Required rejects an empty value before any request is made.
	Required bool `yaml:"required"`
	// NonBlank additionally rejects whitespace-only values.
	NonBlank bool `yaml:"non_blank"`

	// Min and Max bound integer parameters.
	Min int `yaml:"min"`
	Max int `yaml:"max"`

	// Choices restricts string parameters to a fixed set.
	Choices []string `yaml:"choices"`

	// Default is used when the value is unset. Fixed parameters always send it.
	Default string `yaml:"default"`
	Fixed   bool   `yaml:"fixed"`
}

// Accept is one accepted MIME type with its file extensions.
type Accept struct {
	MIME       string   `yaml:"mime"`
	Extensions []string `yaml:"extensions"`
}

// PartNaming selects how file parts are named in the multipart body.
type PartNaming string

const (
	// PartsPlain sends each file under its own name.
	PartsPlain PartNaming = "plain"
	// PartsNumbered renames the parts file1.pdf .. fileN.pdf in sequence order.
	PartsNumbered PartNaming = "numbered"
)

// Workflow is one remote conversion capability.
type Workflow struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`

	// Route is the gateway path (e.g. "/pdf/compress").
	Route string `yaml:"route"`
	// Aliases are extra gateway paths served by the same workflow.
	Aliases []string `yaml:"aliases"`
	// Endpoint is the service path (e.g. "/compress-pdf").
	Endpoint string `yaml:"endpoint"`

	Accept []Accept `yaml:"accept"`

	// Multi accepts an ordered sequence of files instead of a single file.
	Multi bool `yaml:"multi"`
	// Append makes new drops extend the sequence. When false a new drop
	// replaces the whole selection.
	Append bool `yaml:"append"`

	// FileField is the multipart field name for file parts ("file" or "files").
	FileField string     `yaml:"file_field"`
	Parts     PartNaming `yaml:"parts"`

	Params []Param `yaml:"params"`

	Response types.ResultKind `yaml:"response"`
	// ContentType is used when the response does not carry one, or always
	// when ForceContentType is set.
	ContentType      string `yaml:"content_type"`
	ForceContentType bool   `yaml:"force_content_type"`

	// Output is the result filename template. {name} expands to the first
	// file's name and {base} to the name without its extension.
	Output string `yaml:"output"`

	// FailureMessage is the user-facing notice when a submission fails.
	FailureMessage string `yaml:"failure_message"`
}

// Accepts reports whether a file with the given name and MIME type matches
// the workflow's accepted types. Either a MIME or an extension match is enough.
func (w Workflow) Accepts(name, mimeType string) bool {
	if len(w.Accept) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range w.Accept {
		if mimeType != "" && strings.EqualFold(a.MIME, mimeType) {
			return true
		}
		if ext != "" && slices.Contains(a.Extensions, ext) {
			return true
		}
	}
	return false
}

// AcceptList returns the accepted extensions for help text, e.g. ".pdf".
func (w Workflow) AcceptList() string {
	var exts []string
	for _, a := range w.Accept {
		exts = append(exts, a.Extensions...)
	}
	return strings.Join(exts, ", ")
}

// HasParam reports whether the workflow declares a parameter of the given kind.
func (w Workflow) HasParam(kind ParamKind) bool {
	for _, p := range w.Params {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// Param returns the declared parameter of the given kind.
func (w Workflow) Param(kind ParamKind) (Param, bool) {
	for _, p := range w.Params {
		if p.Kind == kind {
			return p, true
		}
	}
	return Param{}, false
}

// Field is one scalar multipart field.
type Field struct {
	Name  string
	Value string
}

// Validate checks params against the workflow's parameter schema without
// touching the network.
func (w Workflow) Validate(params types.SubmissionParameters) error {
	_, err := w.Fields(params)
	return err
}

// Fields returns the scalar multipart fields in declaration order.
func (w Workflow) Fields(params types.SubmissionParameters) ([]Field, error) {
	fields := make([]Field, 0, len(w.Params))
	for _, p := range w.Params {
		v, err := p.value(params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", w.Name, err)
		}
		fields = append(fields, Field{Name: p.Field, Value: v})
	}
	return fields, nil
}

// CheckRange reports whether n lies within the parameter's bounds. A zero
// Compression means unset, so explicit values are checked here.
func (p Param) CheckRange(n int) error {
	if n < p.Min || (p.Max > 0 && n > p.Max) {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidParam, p.Field, p.Min, p.Max, n)
	}
	return nil
}

func (p Param) value(params types.SubmissionParameters) (string, error) {
	switch p.Kind {
	case KindCompression:
		n := params.Compression
		if n == 0 && p.Default != "" {
			d, err := strconv.Atoi(p.Default)
			if err != nil {
				return "", fmt.Errorf("%w: default %s=%q", ErrInvalidParam, p.Field, p.Default)
			}
			n = d
		}
		if err := p.CheckRange(n); err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil

	case KindPassword:
		if p.Required && params.Password == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingParam, p.Field)
		}
		if p.NonBlank && strings.TrimSpace(params.Password) == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingParam, p.Field)
		}
		return params.Password, nil

	case KindFormat, KindTarget:
		v := params.Format
		if p.Kind == KindTarget {
			v = params.Target
		}
		if p.Fixed || v == "" {
			v = p.Default
		}
		v = strings.ToLower(v)
		if v == "" && p.Required {
			return "", fmt.Errorf("%w: %s", ErrMissingParam, p.Field)
		}
		if len(p.Choices) > 0 && !slices.Contains(p.Choices, v) {
			return "", fmt.Errorf("%w: %s must be one of %s, got %q", ErrInvalidParam, p.Field, strings.Join(p.Choices, "|"), v)
		}
		return v, nil

	case KindRotations:
		if p.Required && len(params.Rotations) == 0 {
			return "", fmt.Errorf("%w: %s", ErrMissingParam, p.Field)
		}
		seen := make(map[int]bool, len(params.Rotations))
		for _, r := range params.Rotations {
			if r.Page < 1 {
				return "", fmt.Errorf("%w: page number %d", ErrInvalidParam, r.Page)
			}
			if r.Degrees%90 != 0 || r.Degrees < 0 || r.Degrees >= 360 {
				return "", fmt.Errorf("%w: rotation %d for page %d", ErrInvalidParam, r.Degrees, r.Page)
			}
			if seen[r.Page] {
				return "", fmt.Errorf("%w: duplicate page %d", ErrInvalidParam, r.Page)
			}
			seen[r.Page] = true
		}
		rots := params.Rotations
		if rots == nil {
			rots = []types.Rotation{}
		}
		data, err := json.Marshal(rots)
		if err != nil {
			return "", fmt.Errorf("encoding rotations: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: unknown kind %q for %s", ErrInvalidParam, p.Kind, p.Field)
}

// PartName returns the multipart filename for the i-th file (0-based).
func (w Workflow) PartName(i int, f types.PendingFile) string {
	if w.Parts == PartsNumbered {
		return fmt.Sprintf("file%d.pdf", i+1)
	}
	return f.Name
}

// OutputName derives the result filename from the first selected file.
func (w Workflow) OutputName(files []types.PendingFile) string {
	name := ""
	if len(files) > 0 {
		name = files[0].Name
	}
	return ExpandOutput(w.Output, name)
}

// ExpandOutput expands {name} and {base} in tmpl. An empty name falls back
// to the workflow-neutral "output".
func ExpandOutput(tmpl, name string) string {
	if name == "" {
		name = "output"
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	r := strings.NewReplacer("{name}", name, "{base}", base)
	return r.Replace(tmpl)
}
