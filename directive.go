package litrun

import (
	"fmt"
	"regexp"
	"strings"
)

const ignoreToken = "#ignore"

var (
	fileTargetRegex = regexp.MustCompile(`@(\S+)`)
	execRegex       = regexp.MustCompile(`(?i)#(sh|shell|ts|typescript|py|python)\b`)
)

// Language is a runtime an executable block can be dispatched to
type Language int

const (
	LanguageUnknown Language = iota
	LanguageShell
	LanguageTypeScript
	LanguagePython
)

func (l Language) String() string {
	switch l {
	case LanguageShell:
		return "shell"
	case LanguageTypeScript:
		return "typescript"
	case LanguagePython:
		return "python"
	default:
		return fmt.Sprintf("Language(%d)", int(l))
	}
}

// ParseLanguage maps a fence language tag onto its runtime. Matching is case-insensitive.
func ParseLanguage(tag string) (Language, bool) {
	switch strings.ToLower(tag) {
	case "sh", "shell":
		return LanguageShell, true
	case "ts", "typescript":
		return LanguageTypeScript, true
	case "py", "python":
		return LanguagePython, true
	default:
		return LanguageUnknown, false
	}
}

type DirectiveKind int

const (
	DirectiveNone DirectiveKind = iota
	DirectiveIgnore
	DirectiveFile
	DirectiveExec
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveIgnore:
		return "ignore"
	case DirectiveFile:
		return "file"
	case DirectiveExec:
		return "exec"
	default:
		return "none"
	}
}

// Directive is the single instruction a fence info string carries.
//
// Target is set for [DirectiveFile], Tag and Language for [DirectiveExec].
type Directive struct {
	Kind     DirectiveKind
	Target   string
	Tag      string
	Language Language
}

// Classify resolves the directive of a fence info string.
//
// Directives are checked in a fixed order: #ignore, then @target, then #lang.
// The first one present wins, so "@main.py #python" is a file target and
// "#ignore @main.py" is dropped.
func Classify(info string) Directive {
	if IsIgnored(info) {
		return Directive{Kind: DirectiveIgnore}
	}
	if name, ok := FileTargetName(info); ok {
		return Directive{Kind: DirectiveFile, Target: name}
	}
	if tag, ok := ExecLanguage(info); ok {
		lang, _ := ParseLanguage(tag)
		return Directive{Kind: DirectiveExec, Tag: tag, Language: lang}
	}
	return Directive{Kind: DirectiveNone}
}

// IsIgnored reports whether info contains #ignore anywhere
func IsIgnored(info string) bool {
	return strings.Contains(info, ignoreToken)
}

// FileTargetName returns the filename following the first @ in info
func FileTargetName(info string) (string, bool) {
	m := fileTargetRegex.FindStringSubmatch(info)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExecLanguage returns the lower-cased language tag of the first recognised #lang in info
func ExecLanguage(info string) (string, bool) {
	m := execRegex.FindStringSubmatch(info)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}
