// Package runner executes the source of a code block with the interpreter of its language.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jwtly10/litrun"
)

// Runner runs source as a complete program with workDir as its working directory.
//
// Run blocks until the program exits. Program output is written to the
// runner's configured writers, not returned.
type Runner interface {
	Run(ctx context.Context, source string, workDir string) error
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, source string, workDir string) error

func (f RunnerFunc) Run(ctx context.Context, source string, workDir string) error {
	return f(ctx, source, workDir)
}

// Redirector is implemented by runners whose program output can be sent
// to other writers
type Redirector interface {
	Redirect(stdout, stderr io.Writer) Runner
}

// Registry maps each language to the runner that executes it
type Registry struct {
	runners map[litrun.Language]Runner
}

func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[litrun.Language]Runner),
	}
}

// NewDefaultRegistry registers the shell, python and typescript runners,
// writing program output to stdout and stderr
func NewDefaultRegistry(stdout, stderr io.Writer) *Registry {
	r := NewRegistry()
	r.Register(litrun.LanguageShell, NewShellRunner(stdout, stderr))
	r.Register(litrun.LanguagePython, NewPythonRunner(stdout, stderr))
	r.Register(litrun.LanguageTypeScript, NewTypeScriptRunner(stdout, stderr))
	return r
}

// Register binds a runner to a language, replacing any previous binding
func (r *Registry) Register(lang litrun.Language, runner Runner) {
	r.runners[lang] = runner
}

// Lookup returns the runner bound to lang
func (r *Registry) Lookup(lang litrun.Language) (Runner, error) {
	runner, ok := r.runners[lang]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoRunner, lang)
	}
	slog.Debug("resolved runner", "lang", lang)
	return runner, nil
}

// Redirect returns a copy of the registry whose runners write program output
// to stdout and stderr. Runners that are not a [Redirector] are shared as is.
func (r *Registry) Redirect(stdout, stderr io.Writer) *Registry {
	out := NewRegistry()
	for lang, runner := range r.runners {
		if rd, ok := runner.(Redirector); ok {
			runner = rd.Redirect(stdout, stderr)
		}
		out.runners[lang] = runner
	}
	return out
}
