package markup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

const frontMatterFence = "---"

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// parseFrontMatter splits a leading `---` fenced YAML block off text. It returns the
// decoded metadata, the remaining body and the 1-based line the body starts on.
func parseFrontMatter(path m.Path, text string) (m.Metadata, string, int, error) {
	metadata := m.Metadata{}

	firstEnd := strings.IndexByte(text, '\n')
	if firstEnd < 0 || strings.TrimRight(text[:firstEnd], " \t\r") != frontMatterFence {
		return metadata, text, 1, nil
	}

	offset := firstEnd + 1
	line := 2

	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')

		var current string
		if end < 0 {
			current = text[offset:]
		} else {
			current = text[offset : offset+end]
		}

		if strings.TrimRight(current, " \t\r") == frontMatterFence {
			block := text[firstEnd+1 : offset]

			body := ""
			if end >= 0 {
				body = text[offset+end+1:]
			}

			if err := decodeFrontMatter(path, block, metadata); err != nil {
				return nil, "", 0, err
			}

			return metadata, body, line + 1, nil
		}

		if end < 0 {
			break
		}

		offset += end + 1
		line++
	}

	return nil, "", 0, &m.MarkupError{Path: path, Line: 1, Msg: "front matter is never closed with ---"}
}

func decodeFrontMatter(path m.Path, block string, metadata m.Metadata) error {
	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(block), &decoded); err != nil {
		return &m.MarkupError{Path: path, Line: yamlErrorLine(err), Msg: "malformed front matter: " + err.Error()}
	}

	for key, value := range decoded {
		metadata[key] = value
	}

	return validateMetadata(path, block, metadata)
}

// validateMetadata checks the types of recognized directives.
func validateMetadata(path m.Path, block string, metadata m.Metadata) error {
	expect := map[string]string{
		m.MetaBlankDelimiter:    "string",
		m.MetaAutograder:        "string",
		m.MetaForceGenerateJSON: "bool",
		m.MetaNoParse:           "bool",
	}

	for key, kind := range expect {
		value, ok := metadata[key]
		if !ok {
			continue
		}

		valid := false

		switch kind {
		case "string":
			_, valid = value.(string)
		case "bool":
			_, valid = value.(bool)
		}

		if !valid {
			return &m.MarkupError{
				Path: path,
				Line: keyLine(block, key),
				Msg:  fmt.Sprintf("directive %q must be a %s, got %v", key, kind, value),
			}
		}
	}

	return nil
}

// yamlErrorLine maps a yaml.v3 error back to a source line. The fence occupies
// line 1, so YAML line n is source line n+1.
func yamlErrorLine(err error) int {
	groups := yamlLinePattern.FindStringSubmatch(err.Error())
	if groups == nil {
		return 1
	}

	n, convErr := strconv.Atoi(groups[1])
	if convErr != nil {
		return 1
	}

	return n + 1
}

func keyLine(block, key string) int {
	for i, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), key+":") {
			return i + 2
		}
	}

	return 1
}
