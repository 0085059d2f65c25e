package litrun

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var pragmaRegex = regexp.MustCompile(`^<!--\s*@pragma\s+(\w+)\s*:\s*([^>]+?)\s*-->$`)

type Parser struct {
	gm goldmark.Markdown
}

func NewParser() *Parser {
	return &Parser{
		gm: goldmark.New(),
	}
}

// ParseMarkdownDoc parses a markdown document into its ordered block elements
// and extracts any pragmas from the top of the file.
//
// A document without code blocks is valid and yields no code elements.
func (p *Parser) ParseMarkdownDoc(r io.Reader, md MetaData) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	doc := &Document{
		Metadata: md,
	}

	hasWalkedOtherNodes := false
	root := p.gm.Parser().Parse(text.NewReader(content))

	if err := p.walkAst(root, content, &hasWalkedOtherNodes, doc); err != nil {
		return nil, err
	}

	slog.Debug("parsed markdown document", "source", md.Source, "elements", len(doc.Elements))
	return doc, nil
}

func getLineNumber(content []byte, byteOffset int) int {
	return bytes.Count(content[:byteOffset], []byte("\n")) + 1
}

// walkAst walks the AST of a markdown document and collects block elements
// in document order, including code blocks nested in lists and quotes
func (p *Parser) walkAst(root ast.Node, content []byte, hasWalkedOtherNodes *bool, result *Document) error {
	return ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			// Entering is true BEFORE walking children, false after walking child
			return ast.WalkContinue, nil
		}

		if _, ok := n.(*ast.HTMLBlock); !ok {
			if _, isDoc := n.(*ast.Document); !isDoc {
				// Pragmas are only honoured before any other content
				*hasWalkedOtherNodes = true
			}
		}

		switch node := n.(type) {
		case *ast.HTMLBlock:
			if err := p.handleHTMLBlock(node, content, hasWalkedOtherNodes, result); err != nil {
				return ast.WalkStop, err
			}
		case *ast.FencedCodeBlock:
			p.handleFencedCodeBlock(node, content, result)
		case *ast.CodeBlock:
			result.Elements = append(result.Elements, Element{
				Tag:      TagCode,
				Content:  blockContent(node, content),
				Position: linesPosition(node, content),
			})
		case *ast.Heading:
			result.Elements = append(result.Elements, Element{
				Tag:      TagHeading,
				Content:  blockContent(node, content),
				Position: linesPosition(node, content),
			})
		case *ast.Paragraph:
			result.Elements = append(result.Elements, Element{
				Tag:      TagParagraph,
				Content:  blockContent(node, content),
				Position: linesPosition(node, content),
			})
		case *ast.List:
			result.Elements = append(result.Elements, Element{Tag: TagList})
		case *ast.Blockquote:
			result.Elements = append(result.Elements, Element{Tag: TagQuote})
		case *ast.ThematicBreak:
			result.Elements = append(result.Elements, Element{Tag: TagBreak})
		}

		return ast.WalkContinue, nil
	})
}

// handleHTMLBlock records the html element and parses pragma values from it.
//
// # Only HTML comments at the top of the .md file are considered pragmas
//
// For example:
//
// [SOF]
//
// <!-- @pragma mkdirs: true -->
//
// # Some title
//
// <!-- @pragma debug: true -->
//
// [EOF]
//
// will set Mkdirs = true on the [Pragma] struct, but leave Debug unset as the
// second comment is not at the top of the file
func (p *Parser) handleHTMLBlock(hb *ast.HTMLBlock, content []byte, hasWalkedOtherNodes *bool, doc *Document) error {
	raw := blockContent(hb, content)
	doc.Elements = append(doc.Elements, Element{
		Tag:      TagHTML,
		Content:  raw,
		Position: linesPosition(hb, content),
	})

	slog.Debug("parsing html block", "hasWalkedOtherNodes", *hasWalkedOtherNodes)
	if !*hasWalkedOtherNodes && hb.HTMLBlockType == ast.HTMLBlockType2 {
		return p.extractPragmaFromLine(&doc.Pragmas, raw)
	}
	return nil
}

func (p *Parser) handleFencedCodeBlock(cb *ast.FencedCodeBlock, content []byte, doc *Document) {
	var info string
	pos := linesPosition(cb, content)
	if cb.Info != nil {
		info = strings.TrimSpace(string(cb.Info.Segment.Value(content)))
		pos.StartLine = getLineNumber(content, cb.Info.Segment.Start)
	} else if pos.StartLine > 0 {
		// the opening fence sits on the line before the body
		pos.StartLine--
	}
	if pos.EndLine > 0 {
		// account for the closing fence
		pos.EndLine++
	}

	slog.Debug("parsed code block", "info", info, "lines", cb.Lines().Len(), "line", pos.StartLine)
	doc.Elements = append(doc.Elements, Element{
		Tag:      TagCode,
		Info:     info,
		Content:  blockContent(cb, content),
		Position: pos,
	})
}

// blockContent concatenates the raw lines of a block, dropping the final
// line terminator
func blockContent(n ast.Node, content []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(content))
	}
	return strings.TrimSuffix(strings.TrimSuffix(buf.String(), "\n"), "\r")
}

func linesPosition(n ast.Node, content []byte) Position {
	lines := n.Lines()
	if lines.Len() == 0 {
		return Position{}
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	stop := last.Stop
	if stop > first.Start {
		// Stop points past the trailing newline of the last line
		stop--
	}
	return Position{
		StartLine: getLineNumber(content, first.Start),
		EndLine:   getLineNumber(content, stop),
	}
}

// extractPragmaFromLine parses pragma values from markdown comments
//
// A pragma line may look like this: <!-- @pragma mkdirs: true -->
//
// In which case we will parse this as a keymap pair "mkdirs":"true"
// and if the key maps to a valid value on the [Pragma] struct, set the value.
//
// If multiple lines contain the same key, the last one will be used.
//
// Will return an error if the value cannot be parsed
func (p *Parser) extractPragmaFromLine(pragma *Pragma, line string) error {
	line = strings.TrimSpace(line)
	slog.Debug("parsing pragma line", "line", line)

	matches := pragmaRegex.FindStringSubmatch(line)
	if len(matches) != 3 {
		slog.Debug("invalid pragma line", "line", line)
		return nil
	}

	key := matches[1]
	value := matches[2]

	slog.Debug("parsed pragma key value pair", "key", key, "value", value)

	switch key {
	case string(PragmaMkdirs):
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("could not parse mkdirs pragma value: %w", err)
		}
		pragma.Mkdirs = b
	case string(PragmaDebug):
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("could not parse debug pragma value: %w", err)
		}
		pragma.Debug = b
	default:
		slog.Debug("unknown pragma key", "key", key)
	}

	return nil
}
