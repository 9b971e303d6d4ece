package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

const (
	questionTab         = "  "
	questionPlaceholder = questionTab + "<!-- Write the question prompt here -->"
)

// infoJSON is the default question manifest. Field order is the output order.
type infoJSON struct {
	UUID  string   `json:"uuid"`
	Title string   `json:"title"`
	Topic string   `json:"topic"`
	Tags  []string `json:"tags"`
	Type  string   `json:"type"`
	m.GradingManifest
}

// RenderQuestionHTML renders question.html. hasText distinguishes an absent
// question_text region from an empty one. When setup names were extracted they
// are listed under the prompt.
func RenderQuestionHTML(promptCode, questionText string, hasText bool, provided []m.AnnotatedName) string {
	indented := strings.ReplaceAll(promptCode, "\n", "\n"+questionTab)

	switch {
	case !hasText:
		questionText = questionPlaceholder
	case len(provided) > 0:
		var b strings.Builder

		b.WriteString(questionTab + "<h3> Prompt </h3>\n" + questionTab + questionText)
		b.WriteString("\n\n<markdown>\n### Provided\n")

		for i, name := range provided {
			if i > 0 {
				b.WriteString("\n")
			}

			b.WriteString(formatAnnotatedName(name))
		}

		b.WriteString("\n</markdown>\n")

		questionText = b.String()
	}

	return "<!-- AUTO-GENERATED FILE -->\n" +
		"<pl-question-panel>\n" +
		questionText + "\n" +
		"</pl-question-panel>\n\n" +
		"<!-- see README for where the various parts of question live -->\n" +
		"<pl-faded-parsons>\n" +
		questionTab + indented + "\n" +
		"</pl-faded-parsons>"
}

func formatAnnotatedName(name m.AnnotatedName) string {
	out := " - `" + name.ID
	if name.Annotation != "" {
		out += ": " + name.Annotation
	}

	out += "`"

	if name.Description != "" {
		out += ", " + name.Description
	}

	return out
}

// RenderInfoJSON renders the default info.json for a question named in lower
// snake case.
func RenderInfoJSON(questionName, id string, fragment m.GradingManifest) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	err := enc.Encode(infoJSON{
		UUID:            id,
		Title:           QuestionTitle(questionName),
		Topic:           "",
		Tags:            []string{"berkeley", "fp"},
		Type:            "v3",
		GradingManifest: fragment,
	})
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// QuestionTitle turns a snake case name into a title: each word capitalised
// and the rest of it lower cased.
func QuestionTitle(name string) string {
	words := strings.Split(name, "_")

	for i, word := range words {
		first, size := utf8.DecodeRuneInString(word)
		if size == 0 {
			continue
		}

		words[i] = string(unicode.ToUpper(first)) + strings.ToLower(word[size:])
	}

	return strings.Join(words, " ")
}

func sortedRegionNames(regions m.RegionMap) []string {
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
