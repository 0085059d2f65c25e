package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/jwtly10/litrun"
	"github.com/jwtly10/litrun/internal/pipeline"
)

const (
	maxFiles       = 100
	defaultWorkers = 1
)

var (
	ErrMissingPath  = errors.New("missing markdown file path")
	ErrPathNotFound = errors.New("file not found")
	ErrNotAFile     = errors.New("not a file")

	// ErrOverlappingWorkspaces is returned when one runbook's workspace would
	// contain another's, so resetting one would delete the other's files
	ErrOverlappingWorkspaces = errors.New("overlapping workspaces")
)

type Options struct {
	// Walk directories for *.run.md documents
	Recursive bool
	// Number of documents processed concurrently in recursive mode
	Workers int
	// Move the previous base workspace aside instead of deleting it in recursive mode
	Backup bool
	// Destination of each document's output when Workers > 1. Output is
	// buffered per document and written in one piece once it finishes.
	Stdout io.Writer
	Stderr io.Writer
}

type RunResult struct {
	Path      string
	Workspace string
	Files     int
	Executed  int
	Duration  time.Duration
}

type ProcessResult struct {
	Path   string
	Result *pipeline.Result
	Error  error
}

type Processor struct {
	pipeline *pipeline.Pipeline
	// base workspace directory
	base string
	opts Options
}

func NewProcessor(p *pipeline.Pipeline, base string, opts Options) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Processor{
		pipeline: p,
		base:     base,
		opts:     opts,
	}
}

// ValidateInput checks the path given on the command line names an existing
// file, or a directory when allowDir is set
func ValidateInput(path string, allowDir bool) error {
	if path == "" {
		return ErrMissingPath
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	} else if err != nil {
		return fmt.Errorf("error accessing path: %w", err)
	}

	if info.IsDir() && !allowDir {
		return fmt.Errorf("%s is %w", path, ErrNotAFile)
	}
	return nil
}

func (p *Processor) ProcessPath(ctx context.Context, path string) ([]RunResult, error) {
	if err := ValidateInput(path, p.opts.Recursive); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path: %w", err)
	}

	if info.IsDir() {
		return p.processDirectory(ctx, path)
	}

	result := p.processFile(ctx, p.pipeline, path, "")
	if result.Error != nil {
		return nil, result.Error
	}

	return []RunResult{toRunResult(result)}, nil
}

// findFiles walks the directory tree starting at root and returns the runbooks below it
//
// If a .git directory is found, it will be used to load .gitignore patterns.
func (p *Processor) findFiles(root string) ([]string, error) {
	var files []string
	var patterns []gitignore.Pattern

	if _, err := os.Stat(filepath.Join(root, ".git")); err == nil {
		patterns = append(patterns, gitignore.ParsePattern(".git/", nil))

		if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
			for _, p := range strings.Split(string(data), "\n") {
				if p = strings.TrimSpace(p); p != "" && !strings.HasPrefix(p, "#") {
					patterns = append(patterns, gitignore.ParsePattern(p, nil))
				}
			}
		}
	}

	// never pick up documents from the workspace itself or its backups
	if absBase, err := filepath.Abs(p.base); err == nil {
		if rel, err := filepath.Rel(root, absBase); err == nil && filepath.IsLocal(rel) {
			patterns = append(patterns,
				gitignore.ParsePattern(filepath.ToSlash(rel)+"/", nil),
				gitignore.ParsePattern(filepath.ToSlash(rel)+".*.bak/", nil))
		}
	}

	matcher := gitignore.NewMatcher(patterns)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		pathComponents := strings.Split(relPath, string(os.PathSeparator))

		if len(patterns) > 0 && relPath != "." {
			if matcher.Match(pathComponents, info.IsDir()) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if !info.IsDir() && strings.HasSuffix(path, litrun.RunbookExt) {
			if len(files) >= maxFiles {
				return fmt.Errorf("max files limit reached (%d)", maxFiles)
			}
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found", litrun.RunbookExt)
	}

	return files, nil
}

type job struct {
	path      string
	workspace string
}

// resolveWorkspaces maps every runbook to its own workspace below base and
// fails if any two of them overlap
func resolveWorkspaces(base, root string, files []string) ([]job, error) {
	jobs := make([]job, 0, len(files))
	for _, f := range files {
		ws, err := litrun.ResolveDocumentWorkspace(base, root, f)
		if err != nil {
			return nil, err
		}
		for _, other := range jobs {
			if litrun.WorkspacesOverlap(ws, other.workspace) {
				return nil, fmt.Errorf("%w: %s (%s) and %s (%s)", ErrOverlappingWorkspaces,
					other.path, other.workspace, f, ws)
			}
		}
		jobs = append(jobs, job{path: f, workspace: ws})
	}
	return jobs, nil
}

func (p *Processor) processDirectory(ctx context.Context, root string) ([]RunResult, error) {
	startTime := time.Now()
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	slog.Debug("starting directory processing", "path", absRoot)
	files, err := p.findFiles(absRoot)
	if err != nil {
		return nil, err
	}

	slog.Debug("found files to process", "count", len(files), "duration", time.Since(startTime))

	base, err := litrun.NewWorkspace(p.base, litrun.WorkspaceOptions{Backup: p.opts.Backup})
	if err != nil {
		return nil, err
	}

	todo, err := resolveWorkspaces(base.Dir(), absRoot, files)
	if err != nil {
		return nil, err
	}

	if err := base.Reset(); err != nil {
		return nil, fmt.Errorf("workspace error: %w", err)
	}

	jobs := make(chan job, len(todo))
	results := make(chan ProcessResult, len(todo))

	// serialises flushing of buffered document output
	var outMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if p.opts.Workers == 1 {
					results <- p.processFile(ctx, p.pipeline, j.path, j.workspace)
					continue
				}

				var stdout, stderr bytes.Buffer
				result := p.processFile(ctx, p.pipeline.WithOutput(&stdout, &stderr), j.path, j.workspace)

				outMu.Lock()
				_, _ = p.opts.Stdout.Write(stdout.Bytes())
				_, _ = p.opts.Stderr.Write(stderr.Bytes())
				outMu.Unlock()

				results <- result
			}
		}()
	}

	for _, j := range todo {
		jobs <- j
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	var runResults []RunResult

	for result := range results {
		if result.Error != nil {
			errs = append(errs, fmt.Errorf("failed to process %s: %w", result.Path, result.Error))
			slog.Debug("failed to process file", "path", result.Path, "error", result.Error)
			continue
		}

		r := toRunResult(result)
		if rel, err := filepath.Rel(absRoot, r.Path); err == nil {
			r.Path = rel
		}
		runResults = append(runResults, r)

		slog.Debug("file processed", "source", r.Path, "workspace", r.Workspace)
	}

	if len(errs) > 0 {
		return runResults, fmt.Errorf("encountered %d errors during processing: %w", len(errs), errors.Join(errs...))
	}

	slog.Debug("directory processing completed", "duration", time.Since(startTime), "processed", len(runResults))
	return runResults, nil
}

func (p *Processor) processFile(ctx context.Context, pl *pipeline.Pipeline, path string, workspace string) ProcessResult {
	var result ProcessResult

	absPath, err := filepath.Abs(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to resolve absolute path: %w", err)
		return result
	}

	result.Path = absPath

	f, err := os.Open(absPath)
	if err != nil {
		result.Error = fmt.Errorf("error reading file: %w", err)
		return result
	}
	defer f.Close()

	res, err := pl.Process(ctx, pipeline.MarkdownSource{
		Content:   f,
		Metadata:  litrun.MetaData{Source: path},
		Workspace: workspace,
	})
	if err != nil {
		result.Error = err
		return result
	}

	result.Result = res
	return result
}

func toRunResult(r ProcessResult) RunResult {
	return RunResult{
		Path:      r.Path,
		Workspace: r.Result.Workspace,
		Files:     len(r.Result.Files),
		Executed:  r.Result.Executed,
		Duration:  r.Result.Duration,
	}
}
