package backends

import (
	"sort"
	"strings"
)

// Constructor builds a backend from its dependencies.
type Constructor func(deps Dependencies) Backend

var registry = buildRegistry(map[string]Constructor{
	"py":    NewPlain,
	"rb":    NewScripted,
	"rspec": NewMutation,
})

// buildRegistry keys every constructor with and without the leading dot.
func buildRegistry(byExt map[string]Constructor) map[string]Constructor {
	out := make(map[string]Constructor, 2*len(byExt))

	for ext, ctor := range byExt {
		bare := strings.TrimPrefix(ext, ".")
		out[bare] = ctor
		out["."+bare] = ctor
	}

	return out
}

// Lookup constructs the backend registered for ext.
func Lookup(ext string, deps Dependencies) (Backend, bool) {
	ctor, ok := registry[ext]
	if !ok {
		return nil, false
	}

	return ctor(deps), true
}

// Resolve constructs the backend registered for ext, falling back to the Plain
// backend with a warning when ext is unknown.
func Resolve(ext string, deps Dependencies) Backend {
	if b, ok := Lookup(ext, deps); ok {
		return b
	}

	logger := deps.logger()

	switch strings.TrimPrefix(ext, ".") {
	case "", "fpp":
		logger.Warn("autograder not specified, add the \"autograder\" metadata key with the extension of the autograder to use (e.g. \"rb\" for ruby); defaulting to python",
			"extension", ext)
	default:
		logger.Warn("autograder for extension not found, defaulting to python", "extension", ext)
	}

	return NewPlain(deps)
}

// Extensions returns the registered extensions without leading dots, sorted.
func Extensions() []string {
	var exts []string

	for ext := range registry {
		if !strings.HasPrefix(ext, ".") {
			exts = append(exts, ext)
		}
	}

	sort.Strings(exts)

	return exts
}
