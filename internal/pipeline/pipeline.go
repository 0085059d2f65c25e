package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jwtly10/litrun"
	"github.com/jwtly10/litrun/internal/runner"
)

type Options struct {
	// Workspace directory, relative to the invocation directory
	Workspace string
	// Create missing parent directories for @dir/file targets
	CreateParents bool
	// Move the previous workspace aside instead of deleting it
	Backup bool
	// Echo each executable block's source before running it
	Echo bool
}

var DefaultOptions = Options{
	Workspace: litrun.DefaultWorkspace,
}

// Validate ensures a workspace is configured and that it is not the
// invocation directory itself, which Reset would delete
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Workspace, validation.Required, validation.By(func(value any) error {
			dir := filepath.Clean(strings.TrimSpace(value.(string)))
			if dir == "." || dir == string(filepath.Separator) {
				return validation.NewError("pipeline.workspace.unsafe", "workspace must be a subdirectory")
			}
			return nil
		})),
	)
}

func (o *Options) Pretty() string {
	return fmt.Sprintf("workspace=%s mkdirs=%s backup=%s echo=%s",
		o.Workspace,
		boolToText(o.CreateParents),
		boolToText(o.Backup),
		boolToText(o.Echo))
}

func boolToText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

type MarkdownSource struct {
	Content  io.Reader
	Metadata litrun.MetaData
	// Workspace overrides Options.Workspace for this document
	Workspace string
}

type Result struct {
	// Absolute workspace directory
	Workspace string
	// Files written, relative to the workspace
	Files []string
	// Number of executable blocks run
	Executed int
	Duration time.Duration
}

// Pipeline turns a markdown document into files in a workspace and runs its
// executable blocks there
type Pipeline struct {
	parser  *litrun.Parser
	runners *runner.Registry
	out     io.Writer

	opts Options
}

// NewPipeline creates a pipeline writing its progress trace to out
func NewPipeline(runners *runner.Registry, out io.Writer, opts Options) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline options: %w", err)
	}
	return &Pipeline{
		parser:  litrun.NewParser(),
		runners: runners,
		out:     out,
		opts:    opts,
	}, nil
}

// WithOutput returns a pipeline writing its trace to out and program output
// to out and errOut. Options and registered runners are shared with p.
func (p *Pipeline) WithOutput(out, errOut io.Writer) *Pipeline {
	return &Pipeline{
		parser:  p.parser,
		runners: p.runners.Redirect(out, errOut),
		out:     out,
		opts:    p.opts,
	}
}

// Process resets the workspace, parses the document, writes its file targets
// and then runs its executable blocks in document order.
//
// Any failure aborts the run. Files already written are left in place.
func (p *Pipeline) Process(ctx context.Context, src MarkdownSource) (*Result, error) {
	start := time.Now()
	wsDir := src.Workspace
	if wsDir == "" {
		wsDir = p.opts.Workspace
	}

	fmt.Fprintf(p.out, "Processing markdown file: %s\n", src.Metadata.Source)
	fmt.Fprintln(p.out, strings.Repeat("=", 60))

	ws, err := litrun.NewWorkspace(wsDir, litrun.WorkspaceOptions{
		CreateParents: p.opts.CreateParents,
		Backup:        p.opts.Backup,
	})
	if err != nil {
		return nil, err
	}
	if err := ws.Reset(); err != nil {
		return nil, fmt.Errorf("workspace error: %w", err)
	}
	fmt.Fprintf(p.out, "Created and cleared workspace: %s\n", ws.Dir())

	doc, err := p.parser.ParseMarkdownDoc(src.Content, src.Metadata)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if doc.Pragmas.Mkdirs {
		ws.SetCreateParents(true)
	}

	plan := litrun.Categorize(doc.Elements)
	fmt.Fprintf(p.out, "Found %d file targets and %d executable blocks (%d skipped)\n",
		len(plan.Files), len(plan.Executables), len(plan.Skipped))

	fmt.Fprintln(p.out, "\n=== Creating Files ===")
	files, err := ws.Materialize(plan.Files)
	for _, f := range files {
		fmt.Fprintf(p.out, "Created file: %s\n", f)
	}
	if err != nil {
		return nil, fmt.Errorf("workspace error: %w", err)
	}
	if len(plan.Files) == 0 {
		fmt.Fprintln(p.out, "No files to create.")
	}

	fmt.Fprintln(p.out, "\n=== Executing Code Blocks ===")
	d := NewDispatcher(p.runners, p.out)
	d.Echo = p.opts.Echo || doc.Pragmas.Debug
	executed, err := d.RunAll(ctx, ws.Dir(), plan.Executables)
	if err != nil {
		return nil, fmt.Errorf("execution error: %w", err)
	}
	if len(plan.Executables) == 0 {
		fmt.Fprintln(p.out, "No executable code blocks found.")
	}

	fmt.Fprintln(p.out, "\n=== Processing Complete ===")

	result := &Result{
		Workspace: ws.Dir(),
		Files:     files,
		Executed:  executed,
		Duration:  time.Since(start),
	}
	slog.Debug("document processed",
		"source", src.Metadata.Source,
		"files", len(result.Files),
		"executed", result.Executed,
		"duration", result.Duration)
	return result, nil
}
