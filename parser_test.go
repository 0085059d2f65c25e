package litrun

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func codeElements(doc *Document) []Element {
	var out []Element
	for _, el := range doc.Elements {
		if el.Tag == TagCode {
			out = append(out, el)
		}
	}
	return out
}

func TestCanParseMarkdownDoc(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name    string
		srcFile string
		pragmas Pragma
		code    []Element
		wantErr bool
	}{
		{
			name:    "test parse basic markdown doc",
			srcFile: "testdata/parser/basic_valid.md",
			pragmas: Pragma{
				Mkdirs: true,
				Debug:  true,
			},
			code: []Element{
				{
					Tag:      TagCode,
					Info:     "@config.json",
					Content:  `{"a":1}`,
					Position: Position{StartLine: 9, EndLine: 11},
				},
				{
					Tag:      TagCode,
					Info:     "#sh",
					Content:  "echo hi",
					Position: Position{StartLine: 13, EndLine: 15},
				},
			},
		},
		{
			name:    "test pragmas after content are ignored",
			srcFile: "testdata/parser/basic_invalid.md",
			pragmas: Pragma{},
			code: []Element{
				{
					Tag:      TagCode,
					Info:     "#sh",
					Content:  "echo hi",
					Position: Position{StartLine: 5, EndLine: 7},
				},
			},
		},
		{
			name:    "test parse file with no code",
			srcFile: "testdata/parser/no_code.md",
			pragmas: Pragma{},
			code:    nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := os.Open(tc.srcFile)
			require.NoError(t, err)
			defer f.Close()

			d, err := parser.ParseMarkdownDoc(f, MetaData{
				tc.srcFile,
			})
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			require.Equal(t, tc.code, codeElements(d))
			require.Equal(t, tc.pragmas, d.Pragmas)
			require.Equal(t, MetaData{Source: tc.srcFile}, d.Metadata)
		})
	}
}

func TestParseKeepsNonCodeElements(t *testing.T) {
	f, err := os.Open("testdata/parser/basic_valid.md")
	require.NoError(t, err)
	defer f.Close()

	d, err := NewParser().ParseMarkdownDoc(f, MetaData{})
	require.NoError(t, err)

	var tags []ElementTag
	for _, el := range d.Elements {
		tags = append(tags, el.Tag)
	}
	require.Equal(t, []ElementTag{TagHTML, TagHTML, TagHeading, TagParagraph, TagCode, TagCode}, tags)
}

func TestParseFindsNestedCodeBlocks(t *testing.T) {
	f, err := os.Open("testdata/parser/nested.md")
	require.NoError(t, err)
	defer f.Close()

	d, err := NewParser().ParseMarkdownDoc(f, MetaData{})
	require.NoError(t, err)

	code := codeElements(d)
	require.Len(t, code, 3)

	require.Equal(t, "#sh", code[0].Info)
	require.Equal(t, "echo nested", code[0].Content)

	require.Equal(t, "@quoted.txt", code[1].Info)
	require.Equal(t, "from a quote", code[1].Content)

	require.Equal(t, "", code[2].Info)
	require.Equal(t, "indented code", code[2].Content)
}

func TestCanExtractPragmaFromLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Pragma
		wantErr  bool
	}{
		{
			name: "test basic mkdirs pragma",
			line: "<!-- @pragma mkdirs: true -->",
			expected: Pragma{
				Mkdirs: true,
			},
		},
		{
			name: "test debug pragma",
			line: "<!--@pragma debug:1-->",
			expected: Pragma{
				Debug: true,
			},
		},
		{
			name:     "test ignores invalid pragma",
			line:     "<!-- @pragma invalid: something -->",
			expected: Pragma{},
		},
		{
			name:     "test ignores malformed comment",
			line:     "@pragma mkdirs: true",
			expected: Pragma{},
		},
		{
			name:     "test ignores malformed comment if duplicated",
			line:     "<!-- @pragma mkdirs: true --><!-- @pragma mkdirs: true -->",
			expected: Pragma{},
		},
		{
			name:     "test ignores malformed comment end",
			line:     "<!-- @pragma mkdirs: true",
			expected: Pragma{},
		},
		{
			name:     "test error when invalid pragma value",
			line:     "<!-- @pragma debug: invalid -->",
			expected: Pragma{},
			wantErr:  true,
		},
		{
			name:     "test error when invalid mkdirs value",
			line:     "<!-- @pragma mkdirs: sometimes -->",
			expected: Pragma{},
			wantErr:  true,
		},
	}

	parser := NewParser()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got Pragma
			e := parser.extractPragmaFromLine(&got, tc.line)
			if tc.wantErr {
				require.Error(t, e)
				return
			}
			require.NoError(t, e)
			require.Equal(t, tc.expected, got)
		})
	}
}
