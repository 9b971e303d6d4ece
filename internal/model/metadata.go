package model

import "fmt"

// Recognized front-matter keys.
const (
	MetaBlankDelimiter    = "blankDelimiter"
	MetaForceGenerateJSON = "forceGenerateJson"
	MetaNoParse           = "noParse"
	MetaAutograder        = "autograder"
)

// Metadata holds directives parsed from a source file's front matter. Unrecognized
// keys are preserved as decoded.
type Metadata map[string]any

// BlankDelimiter returns the blank pattern override, if any.
func (md Metadata) BlankDelimiter() (string, bool) {
	v, ok := md[MetaBlankDelimiter].(string)
	return v, ok && v != ""
}

// ForceGenerateJSON reports the forced info.json regeneration flag, falling back to def.
func (md Metadata) ForceGenerateJSON(def bool) bool {
	return md.boolOr(MetaForceGenerateJSON, def)
}

// NoParse reports whether name extraction should be skipped, falling back to def.
func (md Metadata) NoParse(def bool) bool {
	return md.boolOr(MetaNoParse, def)
}

// Autograder returns the backend extension override, if any.
func (md Metadata) Autograder() (string, bool) {
	v, ok := md[MetaAutograder].(string)
	return v, ok && v != ""
}

// Merge copies every key of other over md.
func (md Metadata) Merge(other Metadata) {
	for k, v := range other {
		md[k] = v
	}
}

func (md Metadata) boolOr(key string, def bool) bool {
	if v, ok := md[key].(bool); ok {
		return v
	}

	return def
}

// StringKeys returns a copy of v in which every nested map is keyed by strings,
// so that it can be encoded as JSON. YAML mappings with non-string keys decode to
// map[any]any; their keys are formatted with fmt.Sprint.
func StringKeys(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = StringKeys(val)
		}

		return out
	case Metadata:
		return StringKeys(map[string]any(typed))
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[fmt.Sprint(k)] = StringKeys(val)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = StringKeys(val)
		}

		return out
	default:
		return v
	}
}
