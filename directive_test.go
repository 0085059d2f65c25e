package litrun

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		info string
		want Directive
	}{
		{name: "empty", info: "", want: Directive{Kind: DirectiveNone}},
		{name: "plain language", info: "python", want: Directive{Kind: DirectiveNone}},
		{name: "ignore", info: "#ignore", want: Directive{Kind: DirectiveIgnore}},
		{name: "ignore substring", info: "sh #ignored", want: Directive{Kind: DirectiveIgnore}},
		{name: "ignore beats file", info: "@main.py #ignore", want: Directive{Kind: DirectiveIgnore}},
		{name: "ignore beats exec", info: "#python #ignore", want: Directive{Kind: DirectiveIgnore}},
		{name: "file", info: "@config.json", want: Directive{Kind: DirectiveFile, Target: "config.json"}},
		{name: "file with subpath", info: "ts @src/app.ts", want: Directive{Kind: DirectiveFile, Target: "src/app.ts"}},
		{name: "file beats exec", info: "@out.txt #python", want: Directive{Kind: DirectiveFile, Target: "out.txt"}},
		{name: "file after exec still wins", info: "#python @out.txt", want: Directive{Kind: DirectiveFile, Target: "out.txt"}},
		{name: "bare at sign", info: "@ config.json", want: Directive{Kind: DirectiveNone}},
		{name: "sh", info: "#sh", want: Directive{Kind: DirectiveExec, Tag: "sh", Language: LanguageShell}},
		{name: "shell", info: "bash #shell", want: Directive{Kind: DirectiveExec, Tag: "shell", Language: LanguageShell}},
		{name: "upper case", info: "#SH", want: Directive{Kind: DirectiveExec, Tag: "sh", Language: LanguageShell}},
		{name: "ts", info: "#ts", want: Directive{Kind: DirectiveExec, Tag: "ts", Language: LanguageTypeScript}},
		{name: "typescript", info: "#TypeScript", want: Directive{Kind: DirectiveExec, Tag: "typescript", Language: LanguageTypeScript}},
		{name: "py", info: "#py", want: Directive{Kind: DirectiveExec, Tag: "py", Language: LanguagePython}},
		{name: "python", info: "#python", want: Directive{Kind: DirectiveExec, Tag: "python", Language: LanguagePython}},
		{name: "punctuation is a word boundary", info: "#sh-script", want: Directive{Kind: DirectiveExec, Tag: "sh", Language: LanguageShell}},
		{name: "not a whole word", info: "#python3", want: Directive{Kind: DirectiveNone}},
		{name: "unsupported language", info: "#ruby", want: Directive{Kind: DirectiveNone}},
		{name: "language without hash", info: "sh", want: Directive{Kind: DirectiveNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.info))
		})
	}
}

func TestFileTargetName(t *testing.T) {
	name, ok := FileTargetName("json @a/b.json trailing")
	require.True(t, ok)
	require.Equal(t, "a/b.json", name)

	_, ok = FileTargetName("json")
	require.False(t, ok)
}

func TestExecLanguage(t *testing.T) {
	tag, ok := ExecLanguage("some text #PY more")
	require.True(t, ok)
	require.Equal(t, "py", tag)

	_, ok = ExecLanguage("#go")
	require.False(t, ok)
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		tag  string
		want Language
		ok   bool
	}{
		{"sh", LanguageShell, true},
		{"Shell", LanguageShell, true},
		{"ts", LanguageTypeScript, true},
		{"typescript", LanguageTypeScript, true},
		{"py", LanguagePython, true},
		{"PYTHON", LanguagePython, true},
		{"ruby", LanguageUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, ok := ParseLanguage(tt.tag)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}

	require.Equal(t, "python", LanguagePython.String())
	require.Equal(t, "Language(0)", LanguageUnknown.String())
}
