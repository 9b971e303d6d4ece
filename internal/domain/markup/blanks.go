package markup

import (
	"fmt"
	"regexp"
	"strings"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// BlankPlaceholder replaces every blank in the prompt.
const BlankPlaceholder = "!BLANK"

// DefaultBlankPattern matches `?answer?` on a single line.
var DefaultBlankPattern = regexp.MustCompile(`\?([^?\n]*)\?`)

// Fragment is one piece of an Unmatched token: identical text on both sides for
// plain code, or the hidden answer and the placeholder for a blank.
type Fragment struct {
	Answer string
	Prompt string
}

// BlankPattern returns the blank pattern configured by metadata. A blankDelimiter
// that compiles with exactly one capture group is used as is; any other value is a
// literal delimiter written on both sides of the blank.
func BlankPattern(metadata m.Metadata) (*regexp.Regexp, error) {
	delimiter, ok := metadata.BlankDelimiter()
	if !ok {
		return DefaultBlankPattern, nil
	}

	if re, err := regexp.Compile(delimiter); err == nil && re.NumSubexp() == 1 {
		return re, nil
	}

	quoted := regexp.QuoteMeta(delimiter)

	re, err := regexp.Compile(quoted + `([^\n]*?)` + quoted)
	if err != nil {
		return nil, fmt.Errorf("invalid blank delimiter %q: %w", delimiter, err)
	}

	return re, nil
}

// SplitBlanks scans text line by line and splits it around blank matches. line is
// the 1-based line text starts on and is used for error reporting.
func SplitBlanks(text string, line int, pattern *regexp.Regexp) ([]Fragment, error) {
	var fragments []Fragment

	for _, chunk := range strings.SplitAfter(text, "\n") {
		if chunk == "" {
			continue
		}

		last := 0

		for _, loc := range pattern.FindAllStringSubmatchIndex(chunk, -1) {
			if loc[0] > last {
				plain := chunk[last:loc[0]]
				fragments = append(fragments, Fragment{Answer: plain, Prompt: plain})
			}

			if len(loc) < 4 || loc[2] < 0 || loc[2] == loc[3] {
				return nil, &m.MarkupError{Line: line, Msg: "blank pattern captured empty text"}
			}

			fragments = append(fragments, Fragment{Answer: chunk[loc[2]:loc[3]], Prompt: BlankPlaceholder})
			last = loc[1]
		}

		if last < len(chunk) {
			plain := chunk[last:]
			fragments = append(fragments, Fragment{Answer: plain, Prompt: plain})
		}

		line++
	}

	return fragments, nil
}
