package litrun

// Document represents a parsed markdown document as an ordered list of
// block elements, plus the pragmas and metadata of the source file
type Document struct {
	// Metadata about the source file
	Metadata MetaData
	// Document-level pragmas controlling the run
	Pragmas Pragma
	// Block elements in document order
	Elements []Element
}

type MetaData struct {
	// The source file path
	Source string
}

type PragmaKey string

const (
	PragmaMkdirs PragmaKey = "mkdirs"
	PragmaDebug  PragmaKey = "debug"
)

type Pragma struct {
	// Create missing parent directories for @dir/file targets
	Mkdirs bool
	// Echo each executable block's source before it runs
	Debug bool
}

// ElementTag names the kind of a block element
type ElementTag string

const (
	TagCode      ElementTag = "code"
	TagHeading   ElementTag = "heading"
	TagParagraph ElementTag = "paragraph"
	TagHTML      ElementTag = "html"
	TagList      ElementTag = "list"
	TagQuote     ElementTag = "blockquote"
	TagBreak     ElementTag = "hr"
)

// Element is a single block of a markdown document, nested blocks included.
//
// Only elements tagged [TagCode] carry an Info string. Content of a code
// element is the fence body without the newline that ends its last line.
type Element struct {
	Tag      ElementTag
	Info     string
	Content  string
	Position Position
}

// Position is the 1-indexed line span of an element in the source file
type Position struct {
	StartLine int
	EndLine   int
}
