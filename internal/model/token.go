package model

// TokenKind classifies a span of annotated source text.
type TokenKind int

const (
	// KindUnmatched is plain code between the other token kinds.
	KindUnmatched TokenKind = iota
	// KindRegion is a `## name ##` region delimiter.
	KindRegion
	// KindImportRegion is a `## import path as name ##` delimiter carrying the imported text.
	KindImportRegion
	// KindComment is a line comment starting with `#`.
	KindComment
	// KindDocstring is a triple-quoted literal.
	KindDocstring
	// KindStringLiteral is a single-line quoted literal.
	KindStringLiteral
)

// String returns a readable name for the kind.
func (k TokenKind) String() string {
	switch k {
	case KindUnmatched:
		return "unmatched"
	case KindRegion:
		return "region"
	case KindImportRegion:
		return "import-region"
	case KindComment:
		return "comment"
	case KindDocstring:
		return "docstring"
	case KindStringLiteral:
		return "string"
	default:
		return "unknown"
	}
}

// Token is a classified span of source text.
type Token struct {
	Kind TokenKind
	// Text is the raw span. For import regions it holds the imported file contents.
	Text string
	// Line is the 1-based line the token starts on.
	Line int
	// Region tags tokens inside an open region. For region delimiters it is the
	// delimiter's name.
	Region string
}

// TokenStream is the tokenizer output for one source file.
type TokenStream struct {
	Tokens     []Token
	Metadata   Metadata
	SourcePath Path
}
