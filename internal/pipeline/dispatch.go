package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jwtly10/litrun"
	"github.com/jwtly10/litrun/internal/runner"
)

// Dispatcher runs executable blocks one after another through the runner
// registered for each block's language
type Dispatcher struct {
	runners *runner.Registry
	out     io.Writer
	// Echo writes each block's source to out before running it
	Echo bool
}

func NewDispatcher(runners *runner.Registry, out io.Writer) *Dispatcher {
	return &Dispatcher{
		runners: runners,
		out:     out,
	}
}

// RunAll runs blocks in order with dir as the working directory.
//
// The first failing block stops the run, later blocks are never started.
// Returns the number of blocks that completed successfully.
func (d *Dispatcher) RunAll(ctx context.Context, dir string, blocks []litrun.ExecutableBlock) (int, error) {
	for i, b := range blocks {
		r, err := d.runners.Lookup(b.Language)
		if err != nil {
			return i, fmt.Errorf("block %d (#%s, line %d): %w", i+1, b.Tag, b.Line, err)
		}

		fmt.Fprintf(d.out, "\nExecuting %s code (line %d):\n", b.Tag, b.Line)
		fmt.Fprintln(d.out, strings.Repeat("-", 40))
		if d.Echo {
			fmt.Fprintln(d.out, b.Content)
			fmt.Fprintln(d.out, strings.Repeat("-", 40))
		}

		slog.Debug("dispatching block", "index", i+1, "lang", b.Language, "line", b.Line, "dir", dir)
		if err := r.Run(ctx, b.Content, dir); err != nil {
			return i, fmt.Errorf("block %d (#%s, line %d): %w", i+1, b.Tag, b.Line, err)
		}
	}
	return len(blocks), nil
}
