// Package markup tokenizes annotated question sources and extracts their regions.
package markup

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// importPattern matches the name of an import region delimiter.
var importPattern = regexp.MustCompile(`^\s*import\s*(.+?)\s+as\s+(.+?)\s*$`)

// FileReader loads files referenced by import regions.
type FileReader interface {
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)
}

// Tokenizer converts annotated source text into a token stream.
type Tokenizer struct {
	reader FileReader
	logger *slog.Logger
}

// NewTokenizer creates a Tokenizer. reader resolves import regions and may be nil
// when the source is known not to use them.
func NewTokenizer(reader FileReader, logger *slog.Logger) *Tokenizer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tokenizer{reader: reader, logger: logger}
}

// Tokenize splits text into front-matter metadata and an ordered token stream.
// sourcePath is used for error messages and to resolve import regions.
func (t *Tokenizer) Tokenize(ctx context.Context, sourcePath m.Path, text string) (m.TokenStream, error) {
	metadata, body, firstLine, err := parseFrontMatter(sourcePath, text)
	if err != nil {
		return m.TokenStream{}, err
	}

	sc := &scanner{
		ctx:       ctx,
		reader:    t.reader,
		path:      sourcePath,
		input:     body,
		line:      firstLine,
		unmatched: -1,
	}

	if err := sc.run(); err != nil {
		return m.TokenStream{}, err
	}

	t.logger.Debug("tokenized source", "path", sourcePath, "tokens", len(sc.tokens), "metadataKeys", len(metadata))

	return m.TokenStream{
		Tokens:     sc.tokens,
		Metadata:   metadata,
		SourcePath: sourcePath,
	}, nil
}

// scanner holds the cursor state of a single tokenization pass.
type scanner struct {
	ctx    context.Context
	reader FileReader
	path   m.Path

	input string
	pos   int
	line  int

	// unmatched is the start offset of pending plain code, or -1.
	unmatched     int
	unmatchedLine int

	openRegion string
	openLine   int

	tokens []m.Token
}

func (s *scanner) run() error {
	for s.pos < len(s.input) {
		matched, err := s.next()
		if err != nil {
			return err
		}

		if matched {
			continue
		}

		if s.unmatched < 0 {
			s.unmatched = s.pos
			s.unmatchedLine = s.line
		}

		s.advance(s.pos + 1)
	}

	s.flushUnmatched()

	if s.openRegion != "" {
		return s.errorf(s.openLine, "region %q is never closed", s.openRegion)
	}

	return nil
}

// next tries every token rule at the cursor in precedence order.
func (s *scanner) next() (bool, error) {
	if end, name, markerLine, ok := matchRegionDelimiter(s.input, s.pos, s.line); ok {
		return true, s.region(end, name, markerLine)
	}

	switch s.input[s.pos] {
	case '#':
		s.emit(m.KindComment, matchComment(s.input, s.pos))
		return true, nil
	case '\'', '"':
		if end, ok, err := s.tripleLiteral(); ok || err != nil {
			if err != nil {
				return false, err
			}

			s.emit(m.KindDocstring, end)

			return true, nil
		}

		return s.singleLiteral()
	case '`':
		return s.singleLiteral()
	}

	return false, nil
}

func (s *scanner) tripleLiteral() (int, bool, error) {
	if !strings.HasPrefix(s.input[s.pos:], `'''`) && !strings.HasPrefix(s.input[s.pos:], `"""`) {
		return 0, false, nil
	}

	delim := s.input[s.pos : s.pos+3]

	closing := strings.Index(s.input[s.pos+3:], delim)
	if closing >= 0 {
		return s.pos + 3 + closing + 3, true, nil
	}

	if s.openRegion != "" {
		return 0, false, nil
	}

	return 0, false, s.errorf(s.line, "unterminated %s literal", delim)
}

func (s *scanner) singleLiteral() (bool, error) {
	quote := s.input[s.pos]

	for i := s.pos + 1; i < len(s.input); i++ {
		switch s.input[i] {
		case quote:
			s.emit(m.KindStringLiteral, i+1)
			return true, nil
		case '\n':
			return false, nil
		}
	}

	if s.openRegion != "" {
		return false, nil
	}

	return false, s.errorf(s.line, "unterminated %c literal at end of input", quote)
}

// region handles a delimiter ending at end whose name is name.
func (s *scanner) region(end int, name string, markerLine int) error {
	if groups := importPattern.FindStringSubmatch(name); groups != nil {
		return s.importRegion(end, groups[1], groups[2], markerLine)
	}

	s.flushUnmatched()

	switch s.openRegion {
	case "":
		s.openRegion = name
		s.openLine = markerLine
	case name:
		s.openRegion = ""
	default:
		return s.errorf(markerLine, "region %q opened while region %q (line %d) is still open",
			name, s.openRegion, s.openLine)
	}

	s.emitTagged(m.KindRegion, end, name)
	s.tokens[len(s.tokens)-1].Line = markerLine

	return nil
}

func (s *scanner) importRegion(end int, relPath, alias string, markerLine int) error {
	if s.openRegion != "" {
		return s.errorf(markerLine, "import region %q used inside region %q (line %d)",
			alias, s.openRegion, s.openLine)
	}

	if s.reader == nil {
		return s.errorf(markerLine, "import region %q cannot be resolved without a file reader", alias)
	}

	target := s.path.Dir().Join(relPath)

	content, err := s.reader.ReadFile(s.ctx, target)
	if err != nil {
		return &m.MarkupError{
			Path: s.path,
			Line: markerLine,
			Msg:  fmt.Sprintf("cannot import %s as %q: %v", target, alias, err),
		}
	}

	s.flushUnmatched()
	s.tokens = append(s.tokens, m.Token{
		Kind:   m.KindImportRegion,
		Text:   string(content),
		Line:   markerLine,
		Region: alias,
	})
	s.advance(end)

	return nil
}

func (s *scanner) emit(kind m.TokenKind, end int) {
	s.emitTagged(kind, end, s.openRegion)
}

func (s *scanner) emitTagged(kind m.TokenKind, end int, region string) {
	s.flushUnmatched()
	s.tokens = append(s.tokens, m.Token{
		Kind:   kind,
		Text:   s.input[s.pos:end],
		Line:   s.line,
		Region: region,
	})
	s.advance(end)
}

func (s *scanner) flushUnmatched() {
	if s.unmatched < 0 {
		return
	}

	s.tokens = append(s.tokens, m.Token{
		Kind:   m.KindUnmatched,
		Text:   s.input[s.unmatched:s.pos],
		Line:   s.unmatchedLine,
		Region: s.openRegion,
	})
	s.unmatched = -1
}

// advance moves the cursor to end, keeping the line counter in step.
func (s *scanner) advance(end int) {
	s.line += strings.Count(s.input[s.pos:end], "\n")
	s.pos = end
}

func (s *scanner) errorf(line int, format string, args ...any) error {
	return &m.MarkupError{Path: s.path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// matchRegionDelimiter matches `## name ##` at pos. A delimiter starts at the
// beginning of the input or at a newline, which it consumes together with the
// indentation. Anything after the closing `##` on the same line is ignored. The
// trailing newline is consumed unless the next line is itself a delimiter.
func matchRegionDelimiter(s string, pos, line int) (end int, name string, markerLine int, ok bool) {
	i := pos
	markerLine = line

	switch {
	case strings.HasPrefix(s[i:], "\r\n"):
		i += 2
		markerLine++
	case s[i] == '\n':
		i++
		markerLine++
	case pos != 0:
		return 0, "", 0, false
	}

	i = skipBlanks(s, i)
	if !strings.HasPrefix(s[i:], "##") {
		return 0, "", 0, false
	}

	i += 2

	nameStart := skipBlanks(s, i)
	if nameStart == i || nameStart >= len(s) || isSpace(s[nameStart]) {
		return 0, "", 0, false
	}

	closeAt := -1

	for e := nameStart + 1; e < len(s) && s[e] != '\n'; e++ {
		if !isBlank(s[e]) {
			continue
		}

		f := skipBlanks(s, e)
		if strings.HasPrefix(s[f:], "##") {
			closeAt = f
			name = s[nameStart:e]

			break
		}
	}

	if closeAt < 0 || strings.Contains(name, "##") {
		return 0, "", 0, false
	}

	lineEnd := strings.IndexByte(s[closeAt+2:], '\n')
	if lineEnd < 0 {
		return len(s), name, markerLine, true
	}

	newline := closeAt + 2 + lineEnd
	if nextLineIsDelimiter(s, newline+1) {
		if newline > 0 && s[newline-1] == '\r' {
			newline--
		}

		return newline, name, markerLine, true
	}

	return newline + 1, name, markerLine, true
}

// nextLineIsDelimiter reports whether the line starting at i looks like `##x`.
func nextLineIsDelimiter(s string, i int) bool {
	i = skipBlanks(s, i)
	return strings.HasPrefix(s[i:], "##") && i+2 < len(s) && s[i+2] != '#'
}

// matchComment returns the end of a comment starting at pos: the next `#`, line
// break, or end of input.
func matchComment(s string, pos int) int {
	for q := pos + 1; q < len(s); q++ {
		switch {
		case s[q] == '#', s[q] == '\n':
			return q
		case s[q] == '\r' && q+1 < len(s) && s[q+1] == '\n':
			return q
		}
	}

	return len(s)
}

func skipBlanks(s string, i int) int {
	for i < len(s) && isBlank(s[i]) {
		i++
	}

	return i
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
