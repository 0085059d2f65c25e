package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jwtly10/litrun"
	"github.com/jwtly10/litrun/internal/cli"
	"github.com/jwtly10/litrun/internal/pipeline"
	"github.com/jwtly10/litrun/internal/runner"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: litrun [flags] <markdown-file-path>")
	fmt.Fprintln(w, "Example: litrun ./sample.md")
}

// run executes the cli and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("litrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		usage(stderr)
		fs.PrintDefaults()
	}

	var (
		debug     bool
		outDir    string
		mkdirs    bool
		backup    bool
		recursive bool
		jobs      int
	)
	fs.BoolVar(&debug, "debug", false, "Enable debug logging and echo block sources")
	fs.StringVar(&outDir, "out", litrun.DefaultWorkspace, "Workspace directory, recreated on every run")
	fs.BoolVar(&mkdirs, "mkdirs", false, "Create missing parent directories for @dir/file targets")
	fs.BoolVar(&backup, "backup", false, "Keep the previous workspace as a timestamped backup")
	fs.BoolVar(&recursive, "r", false, "Run every *.run.md file below a directory")
	fs.IntVar(&jobs, "jobs", 1, "Documents processed concurrently with -r")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	opts := pipeline.DefaultOptions
	if outDir != "" {
		opts.Workspace = outDir
	}
	opts.CreateParents = mkdirs
	opts.Backup = backup
	opts.Echo = debug
	slog.Debug("resolved options", "options", opts.Pretty())

	inPath := fs.Arg(0)
	if err := cli.ValidateInput(inPath, recursive); err != nil {
		switch {
		case errors.Is(err, cli.ErrMissingPath):
			usage(stderr)
		default:
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	fmt.Fprintf(stdout, "Running markdown code blocks from: %s\n", inPath)

	p, err := pipeline.NewPipeline(runner.NewDefaultRegistry(stdout, stderr), stdout, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	processor := cli.NewProcessor(p, opts.Workspace, cli.Options{
		Recursive: recursive,
		Workers:   jobs,
		Backup:    backup,
		Stdout:    stdout,
		Stderr:    stderr,
	})

	results, err := processor.ProcessPath(ctx, inPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error executing markdown code blocks: %v\n", err)
		return 1
	}

	if recursive {
		for _, r := range results {
			fmt.Fprintf(stdout, "Ran %s in %s (%d files, %d blocks)\n", r.Path, r.Workspace, r.Files, r.Executed)
		}
	}
	return 0
}
