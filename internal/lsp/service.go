package lsp

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/jwtly10/litrun"
	"github.com/sourcegraph/go-lsp"
)

const diagnosticSource = "litrun"

var hashTagRegex = regexp.MustCompile(`#(\w+)`)

type DocumentServiceOptions struct {
	// Subdirectory targets are created at run time (litrun -mkdirs)
	Mkdirs bool
}

// DocumentService parses open documents and reports problems with their fence directives
type DocumentService struct {
	parser *litrun.Parser
	opts   DocumentServiceOptions

	mu sync.Mutex
	// URIs of documents currently open in the editor
	open map[lsp.DocumentURI]struct{}
}

func NewDocumentService(opts DocumentServiceOptions) *DocumentService {
	return &DocumentService{
		parser: litrun.NewParser(),
		opts:   opts,
		open:   make(map[lsp.DocumentURI]struct{}),
	}
}

// Diagnose parses text as the document at uri and returns its directive diagnostics.
// The document is tracked as open until Close is called.
func (s *DocumentService) Diagnose(text string, uri lsp.DocumentURI) ([]lsp.Diagnostic, error) {
	path, err := s.URIToPath(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid document URI: %w", err)
	}

	doc, err := s.parser.ParseMarkdownDoc(strings.NewReader(text), litrun.MetaData{Source: path})
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}

	s.mu.Lock()
	s.open[uri] = struct{}{}
	s.mu.Unlock()

	diags := Lint(doc, s.opts.Mkdirs || doc.Pragmas.Mkdirs)
	slog.Debug("diagnosed document", "uri", uri, "diagnostics", len(diags))
	return diags, nil
}

// Close stops tracking uri
func (s *DocumentService) Close(uri lsp.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, uri)
}

// OpenDocuments returns the URIs of all tracked documents
func (s *DocumentService) OpenDocuments() []lsp.DocumentURI {
	s.mu.Lock()
	defer s.mu.Unlock()
	uris := make([]lsp.DocumentURI, 0, len(s.open))
	for uri := range s.open {
		uris = append(uris, uri)
	}
	return uris
}

// URIToPath converts an LSP URI to a filesystem path
func (s *DocumentService) URIToPath(uri lsp.DocumentURI) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", err
	}
	return u.Path, nil
}

// Lint reports fence directives that will not behave the way they read.
// Diagnostics are returned in document order and never nil.
func Lint(doc *litrun.Document, mkdirs bool) []lsp.Diagnostic {
	diags := []lsp.Diagnostic{}

	for _, el := range doc.Elements {
		if el.Tag != litrun.TagCode || el.Info == "" {
			continue
		}

		report := func(severity lsp.DiagnosticSeverity, format string, args ...any) {
			diags = append(diags, lsp.Diagnostic{
				Range:    fenceRange(el),
				Severity: severity,
				Source:   diagnosticSource,
				Message:  fmt.Sprintf(format, args...),
			})
		}

		d := litrun.Classify(el.Info)
		switch d.Kind {
		case litrun.DirectiveIgnore:
			_, hasFile := litrun.FileTargetName(el.Info)
			_, hasExec := litrun.ExecLanguage(el.Info)
			if hasFile || hasExec {
				report(lsp.Hint, "block is ignored, its other directives have no effect")
			}
		case litrun.DirectiveFile:
			if tag, ok := litrun.ExecLanguage(el.Info); ok {
				report(lsp.Information, "@%s takes precedence, the #%s block is written to a file and not executed", d.Target, tag)
			}
			if !litrun.IsLocalTarget(d.Target) {
				report(lsp.Error, "@%s escapes the workspace and will fail to write", d.Target)
			} else if strings.Contains(d.Target, "/") && !mkdirs {
				report(lsp.Warning, "@%s is in a subdirectory that is not created, add <!-- @pragma mkdirs: true --> or run with -mkdirs", d.Target)
			}
		case litrun.DirectiveNone:
			for _, m := range hashTagRegex.FindAllStringSubmatch(el.Info, -1) {
				report(lsp.Warning, "unsupported language tag #%s, block will be skipped", m[1])
			}
		}
	}

	return diags
}

// fenceRange spans the opening fence line of a code element
func fenceRange(el litrun.Element) lsp.Range {
	line := el.Position.StartLine - 1
	if line < 0 {
		line = 0
	}
	return lsp.Range{
		Start: lsp.Position{Line: line, Character: 0},
		End:   lsp.Position{Line: line, Character: len("```") + len(el.Info)},
	}
}
