package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Interpreter is one way of invoking a runtime, eg python3 -
type Interpreter struct {
	Name string
	Args []string
}

func (i Interpreter) String() string {
	return strings.Join(append([]string{i.Name}, i.Args...), " ")
}

// Command runs source with the first interpreter found on PATH.
//
// Source is either appended as the final argument (shell -c) or written to
// the interpreter's stdin.
type Command struct {
	Runtime      string
	Interpreters []Interpreter
	SourceAsArg  bool
	Stdout       io.Writer
	Stderr       io.Writer

	lookPath func(string) (string, error)
}

// NewShellRunner runs blocks with sh -c
func NewShellRunner(stdout, stderr io.Writer) *Command {
	return &Command{
		Runtime:      "shell",
		Interpreters: []Interpreter{{Name: "sh", Args: []string{"-c"}}},
		SourceAsArg:  true,
		Stdout:       stdout,
		Stderr:       stderr,
		lookPath:     exec.LookPath,
	}
}

// NewPythonRunner runs blocks by piping them into python3, falling back to python
func NewPythonRunner(stdout, stderr io.Writer) *Command {
	return &Command{
		Runtime: "python",
		Interpreters: []Interpreter{
			{Name: "python3", Args: []string{"-"}},
			{Name: "python", Args: []string{"-"}},
		},
		Stdout:   stdout,
		Stderr:   stderr,
		lookPath: exec.LookPath,
	}
}

// NewTypeScriptRunner runs blocks by piping them into ts-node, falling back to npx ts-node
func NewTypeScriptRunner(stdout, stderr io.Writer) *Command {
	return &Command{
		Runtime: "typescript",
		Interpreters: []Interpreter{
			{Name: "ts-node"},
			{Name: "npx", Args: []string{"ts-node"}},
		},
		Stdout:   stdout,
		Stderr:   stderr,
		lookPath: exec.LookPath,
	}
}

// Redirect returns a copy of the command writing program output to stdout and stderr
func (c *Command) Redirect(stdout, stderr io.Writer) Runner {
	cp := *c
	cp.Stdout = stdout
	cp.Stderr = stderr
	return &cp
}

// Resolve returns the first installed interpreter as a full argv
func (c *Command) Resolve() ([]string, error) {
	lookPath := c.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	tried := make([]string, 0, len(c.Interpreters))
	for _, in := range c.Interpreters {
		path, err := lookPath(in.Name)
		if err != nil {
			tried = append(tried, in.Name)
			continue
		}
		return append([]string{path}, in.Args...), nil
	}
	return nil, &RuntimeError{Runtime: c.Runtime, Tried: tried}
}

func (c *Command) Run(ctx context.Context, source string, workDir string) error {
	argv, err := c.Resolve()
	if err != nil {
		return err
	}

	if c.SourceAsArg {
		argv = append(argv, source)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	cmd.Stdout = writerOr(c.Stdout, os.Stdout)
	cmd.Stderr = writerOr(c.Stderr, os.Stderr)
	if !c.SourceAsArg {
		cmd.Stdin = strings.NewReader(source)
	}

	start := time.Now()
	slog.Debug("running program", "runtime", c.Runtime, "interpreter", argv[0], "dir", workDir)

	err = cmd.Run()
	slog.Debug("program finished", "runtime", c.Runtime, "duration", time.Since(start), "error", err)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s program interrupted: %w", c.Runtime, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Runtime: c.Runtime, Code: exitErr.ExitCode(), Err: err}
	}
	return fmt.Errorf("starting %s program: %w", c.Runtime, err)
}

func writerOr(w io.Writer, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}
