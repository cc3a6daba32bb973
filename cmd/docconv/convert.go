// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docconv/internal/preview"
	"github.com/pdiddy/docconv/internal/session"
	"github.com/pdiddy/docconv/internal/upload"
	"github.com/pdiddy/docconv/internal/workflow"
	"github.com/pdiddy/docconv/pkg/types"
)

// renderer decodes documents for the rotate workflow. Tests replace it.
var renderer interface {
	preview.Renderer
	PageCount(data []byte) (int, error)
} = preview.FitzRenderer{}

// workflowCommand builds the subcommand for one catalog workflow. Flags
// are derived from the workflow's parameter schema.
func workflowCommand(wf workflow.Workflow) *cobra.Command {
	use := wf.Name + " <file>"
	if wf.Multi {
		use = wf.Name + " <file>..."
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: wf.Title,
		Long: fmt.Sprintf(`%s sends %s to %s and saves the result as %s.
Accepted files: %s, up to 50MB each.`,
			wf.Title, fileNoun(wf), wf.Endpoint, wf.Output, wf.AcceptList()),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, wf.Name, args)
		},
	}
	if !wf.Multi {
		cmd.Args = cobra.ExactArgs(1)
	}

	f := cmd.Flags()
	for _, p := range wf.Params {
		switch p.Kind {
		case workflow.KindCompression:
			f.Int("compression", 0, fmt.Sprintf("compression level, %d-%d (default from the catalog, %s built in)", p.Min, p.Max, p.Default))
		case workflow.KindPassword:
			f.String("password", "", "PDF password (default: .secrets/pdf-password, else prompt)")
		case workflow.KindFormat:
			f.String("format", "", fmt.Sprintf("image format: png or jpg (default from the catalog, %s built in)", p.Default))
		case workflow.KindRotations:
			f.StringSlice("rotate", nil, "page rotation as page:degrees, repeatable (e.g. 2:90)")
			f.BoolP("interactive", "i", false, "page through a preview and rotate pages interactively")
			f.String("export-pages", "", "write page previews as JPEG files into this directory")
		}
	}
	if wf.Multi && wf.Append {
		f.StringSlice("move", nil, "move a file to a 1-based position as name:pos, repeatable")
	}
	if wf.Response == types.ResultText {
		f.Bool("copy", false, "copy the extracted text to the clipboard")
		f.Bool("save", false, "save the extracted text as <name>-text.txt")
	}
	return cmd
}

func fileNoun(wf workflow.Workflow) string {
	if wf.Multi {
		return "the files, in order,"
	}
	return "the file"
}

func runWorkflow(cmd *cobra.Command, name string, args []string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	cfg := clientConfig()
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	wf, err := cat.Lookup(name)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	sess, cleanup, err := newSession(ctx, cfg, wf, errOut)
	if err != nil {
		return err
	}
	defer cleanup()

	candidates := make([]upload.Candidate, 0, len(args))
	for _, path := range args {
		c, err := upload.FromPath(path)
		if err != nil {
			return err
		}
		candidates = append(candidates, c)
	}
	report := sess.Drop(candidates)
	if len(report.Accepted) == 0 {
		return report.Err()
	}

	if err := applyMoves(cmd, sess); err != nil {
		return err
	}
	params, err := paramsFromFlags(cmd, wf, errOut)
	if err != nil {
		return err
	}
	sess.SetParams(params)

	if wf.HasParam(workflow.KindRotations) {
		if err := prepareRotations(cmd, sess); err != nil {
			return err
		}
	}

	if wf.Multi {
		fmt.Fprintf(out, "submitting %d files to %s\n", sess.Upload().List().Len(), wf.Endpoint)
	} else {
		fmt.Fprintf(out, "submitting %s to %s\n", report.Accepted[0].Name, wf.Endpoint)
	}

	outcome, err := sess.Submit(ctx)
	if err != nil {
		var failed *session.FailedError
		if errors.As(err, &failed) {
			fmt.Fprintln(errOut, failed.Message)
		}
		return err
	}
	return deliver(cmd, sess, outcome, out)
}

func deliver(cmd *cobra.Command, sess *session.Session, outcome session.Outcome, out io.Writer) error {
	if outcome.Result.Kind != types.ResultText {
		fmt.Fprintf(out, "saved   %s\n", outcome.Delivery.Location)
		return nil
	}

	fmt.Fprintln(out, outcome.Delivery.Text)

	original := ""
	if len(outcome.Files) > 0 {
		original = outcome.Files[0]
	}
	if save, _ := cmd.Flags().GetBool("save"); save {
		loc, err := sess.Downloader().SaveText(cmdContext(cmd), original, outcome.Delivery.Text)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved   %s\n", loc)
	}
	if copyText, _ := cmd.Flags().GetBool("copy"); copyText {
		if err := sess.Downloader().CopyText(outcome.Delivery.Text); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "copied to clipboard")
	}
	return nil
}

// paramsFromFlags reads the parameters the workflow declares. Flags left
// unset stay zero so the catalog's defaults apply.
func paramsFromFlags(cmd *cobra.Command, wf workflow.Workflow, prompt io.Writer) (types.SubmissionParameters, error) {
	var p types.SubmissionParameters
	f := cmd.Flags()
	if param, ok := wf.Param(workflow.KindCompression); ok && f.Changed("compression") {
		n, _ := f.GetInt("compression")
		if err := param.CheckRange(n); err != nil {
			return p, err
		}
		p.Compression = n
	}
	if wf.HasParam(workflow.KindFormat) && f.Changed("format") {
		p.Format, _ = f.GetString("format")
	}
	if wf.HasParam(workflow.KindPassword) {
		flagValue, _ := f.GetString("password")
		pw := secretDefault("pdf-password", flagValue)
		if pw == "" {
			var err error
			pw, err = promptPassword(prompt)
			if err != nil {
				return p, fmt.Errorf("reading password: %w", err)
			}
		}
		p.Password = pw
	}
	return p, nil
}

// applyMoves reorders the selection according to --move name:pos flags.
func applyMoves(cmd *cobra.Command, sess *session.Session) error {
	if cmd.Flags().Lookup("move") == nil {
		return nil
	}
	specs, _ := cmd.Flags().GetStringSlice("move")
	moves, err := parseMoves(specs)
	if err != nil {
		return err
	}
	list := sess.Upload().List()
	for _, m := range moves {
		id, err := list.IDByName(m.name)
		if err != nil {
			return err
		}
		if err := list.MoveTo(id, m.pos-1); err != nil {
			return fmt.Errorf("moving %s to %d: %w", m.name, m.pos, err)
		}
	}
	return nil
}

// prepareRotations attaches a page viewer to the session, either from an
// interactive preview or from --rotate pairs over the document's page count.
func prepareRotations(cmd *cobra.Command, sess *session.Session) error {
	f := cmd.Flags()
	interactive, _ := f.GetBool("interactive")
	exportDir, _ := f.GetString("export-pages")
	specs, _ := f.GetStringSlice("rotate")

	if interactive || exportDir != "" {
		v, err := sess.Preview(renderer)
		if err != nil {
			return err
		}
		if exportDir != "" {
			paths, err := v.ExportPages(exportDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d page previews to %s\n", len(paths), exportDir)
		}
		if err := applyRotations(v, specs); err != nil {
			return err
		}
		if interactive {
			return runRotateREPL(cmd.InOrStdin(), cmd.ErrOrStderr(), v)
		}
		return nil
	}

	data, err := sess.Upload().Selection()[0].ReadAll()
	if err != nil {
		return err
	}
	n, err := renderer.PageCount(data)
	if err != nil {
		return err
	}
	v := preview.Blank(n)
	if err := applyRotations(v, specs); err != nil {
		return err
	}
	sess.AttachViewer(v)
	return nil
}

func applyRotations(v *preview.Viewer, specs []string) error {
	rots, err := parseRotations(specs)
	if err != nil {
		return err
	}
	for _, r := range rots {
		if err := v.SetRotation(r.Page, r.Degrees); err != nil {
			return err
		}
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	for _, wf := range workflow.Default().All() {
		rootCmd.AddCommand(workflowCommand(wf))
	}
}
