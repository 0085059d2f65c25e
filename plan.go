package litrun

import (
	"log/slog"
	"strings"
)

// ExecutableBlock is a code block to be run by the runner of its language
type ExecutableBlock struct {
	Language Language
	// Tag is the lower-cased language token from the fence, eg "py"
	Tag     string
	Content string
	// Line of the opening fence in the source document
	Line int
}

// FileTarget collects every fragment written to a single workspace file
type FileTarget struct {
	Name      string
	Fragments []string
}

// Content joins the fragments of the target with a newline
func (f FileTarget) Content() string {
	return strings.Join(f.Fragments, "\n")
}

type SkipReason string

const (
	SkipIgnored     SkipReason = "ignored"
	SkipUnsupported SkipReason = "unsupported"
)

type SkippedBlock struct {
	Reason SkipReason
	Info   string
	Line   int
}

// Plan is the categorized view of a document's code blocks
type Plan struct {
	// Executables in document order
	Executables []ExecutableBlock
	// Files in order of first appearance
	Files   []FileTarget
	Skipped []SkippedBlock

	fileIndex map[string]int
}

func NewPlan() *Plan {
	return &Plan{
		fileIndex: make(map[string]int),
	}
}

// AddFragment appends content to the named file target, creating it if new
func (p *Plan) AddFragment(name, content string) {
	if i, ok := p.fileIndex[name]; ok {
		p.Files[i].Fragments = append(p.Files[i].Fragments, content)
		return
	}
	p.fileIndex[name] = len(p.Files)
	p.Files = append(p.Files, FileTarget{Name: name, Fragments: []string{content}})
}

// File returns the target registered under name
func (p *Plan) File(name string) (FileTarget, bool) {
	i, ok := p.fileIndex[name]
	if !ok {
		return FileTarget{}, false
	}
	return p.Files[i], true
}

// Categorize splits the code elements of a document into executable blocks
// and file targets in a single pass. Elements that are not code are never inspected.
func Categorize(elements []Element) *Plan {
	plan := NewPlan()

	for _, el := range elements {
		if el.Tag != TagCode {
			continue
		}

		d := Classify(el.Info)
		switch d.Kind {
		case DirectiveIgnore:
			slog.Debug("ignoring code block", "info", el.Info, "line", el.Position.StartLine)
			plan.Skipped = append(plan.Skipped, SkippedBlock{Reason: SkipIgnored, Info: el.Info, Line: el.Position.StartLine})
		case DirectiveFile:
			slog.Debug("found file block", "file", d.Target, "line", el.Position.StartLine)
			plan.AddFragment(d.Target, el.Content)
		case DirectiveExec:
			slog.Debug("found executable block", "lang", d.Tag, "line", el.Position.StartLine)
			plan.Executables = append(plan.Executables, ExecutableBlock{
				Language: d.Language,
				Tag:      d.Tag,
				Content:  el.Content,
				Line:     el.Position.StartLine,
			})
		default:
			slog.Debug("skipping unsupported block", "info", el.Info, "line", el.Position.StartLine)
			plan.Skipped = append(plan.Skipped, SkippedBlock{Reason: SkipUnsupported, Info: el.Info, Line: el.Position.StartLine})
		}
	}

	return plan
}
