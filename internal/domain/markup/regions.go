package markup

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// specialCommentPattern matches comments kept in the prompt and dropped from the answer.
var specialCommentPattern = regexp.MustCompile(`^#(blank[^#]*|\d+given)`)

// docstringState tracks whether a leading docstring may still become the question text.
type docstringState int

const (
	docstringAccepting docstringState = iota
	docstringFollowWithNewline
	docstringFinished
	docstringSkipped
)

// Extractor assembles region texts from a token stream.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{logger: logger}
}

// Extract runs the single left-to-right extraction pass over stream.
func (e *Extractor) Extract(stream m.TokenStream) (m.RegionMap, error) {
	blankPattern, err := BlankPattern(stream.Metadata)
	if err != nil {
		return nil, &m.MarkupError{Path: stream.SourcePath, Line: 1, Msg: err.Error()}
	}

	buffers := map[string]*strings.Builder{
		m.RegionAnswerCode: {},
		m.RegionPromptCode: {},
	}

	buffer := func(name string) *strings.Builder {
		b, ok := buffers[name]
		if !ok {
			b = &strings.Builder{}
			buffers[name] = b
		}

		return b
	}

	answer, prompt := buffers[m.RegionAnswerCode], buffers[m.RegionPromptCode]
	state := docstringAccepting

	for _, tkn := range stream.Tokens {
		if tkn.Text == "" || tkn.Kind == m.KindRegion {
			continue
		}

		if tkn.Region != "" {
			if tkn.Region == m.RegionQuestionText && state == docstringFollowWithNewline {
				buffer(tkn.Region).WriteString("\n")
				state = docstringFinished
			}

			buffer(tkn.Region).WriteString(tkn.Text)

			continue
		}

		switch tkn.Kind {
		case m.KindDocstring:
			if state == docstringAccepting {
				question := buffer(m.RegionQuestionText)
				if question.Len() > 0 {
					question.WriteString("\n")
					state = docstringFinished
				} else {
					state = docstringFollowWithNewline
				}

				question.WriteString(tkn.Text[3 : len(tkn.Text)-3])
			} else {
				answer.WriteString(tkn.Text)
				prompt.WriteString(tkn.Text)
			}
		case m.KindComment:
			if specialCommentPattern.MatchString(tkn.Text) {
				prompt.WriteString(tkn.Text)
			} else {
				answer.WriteString(tkn.Text)
			}
		case m.KindStringLiteral:
			answer.WriteString(tkn.Text)
			prompt.WriteString(tkn.Text)
		case m.KindUnmatched:
			fragments, err := SplitBlanks(tkn.Text, tkn.Line, blankPattern)
			if err != nil {
				var markupErr *m.MarkupError
				if errors.As(err, &markupErr) && markupErr.Path == "" {
					markupErr.Path = stream.SourcePath
				}

				return nil, err
			}

			for _, fragment := range fragments {
				answer.WriteString(fragment.Answer)
				prompt.WriteString(fragment.Prompt)
			}
		default:
			e.logger.Warn("ignoring token of unexpected kind", "kind", tkn.Kind, "line", tkn.Line)
		}

		if state == docstringAccepting {
			state = docstringSkipped
		}
	}

	regions := make(m.RegionMap, len(buffers))
	for name, b := range buffers {
		regions[name] = finalize(b.String(), name == m.RegionPromptCode)
	}

	return regions, nil
}

// finalize right-trims every line, optionally drops empty lines, and trims the
// whole text.
func finalize(text string, dropEmpty bool) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	kept := lines[:0]

	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if dropEmpty && line == "" {
			continue
		}

		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}
