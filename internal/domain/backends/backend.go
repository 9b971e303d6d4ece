// Package backends turns extracted regions into autograder fixtures.
package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"fppgen.dev/pkg/fppgen/internal/adapter"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

// Kind names a backend variant.
type Kind string

// Available backend variants.
const (
	KindPlain    Kind = "python"
	KindScripted Kind = "ruby"
	KindMutation Kind = "rspec"
)

// PopulateInput carries the regions a backend turns into test fixtures.
type PopulateInput struct {
	AnswerCode string
	SetupCode  string
	TestRegion string
	// SourceDir is the directory holding the annotated source file.
	SourceDir m.Path
	// QuestionDir is the directory the question is generated into.
	QuestionDir m.Path
	PreCode     string
	PostCode    string
}

// Backend is implemented by every autograder variant.
type Backend interface {
	Kind() Kind
	// DefaultExtension is used for extra region files named without an extension.
	DefaultExtension() string
	// ManifestFragment is merged into the question's info.json.
	ManifestFragment() m.GradingManifest
	// Populate returns the fixtures relative to the question's tests directory.
	Populate(ctx context.Context, in PopulateInput) (m.ArtifactMap, error)
}

// Cleaner is implemented by backends with a post-population hook.
type Cleaner interface {
	// Clean runs against the materialised tests directory at root.
	Clean(ctx context.Context, root m.Path) error
}

// ServerGenerator is implemented by backends that document exposed names.
type ServerGenerator interface {
	GenerateServer(ctx context.Context, setupCode, answerCode string, noParse bool) (m.ServerManifest, error)
}

// Dependencies are the adapters a backend may need.
type Dependencies struct {
	FS       adapter.SourceFSAdapter
	Patch    adapter.PatchAdapter
	Commands adapter.CommandRunnerAdapter
	Names    adapter.NameExtractorAdapter
	// SetupCommand vendors dependencies for the Ruby based backends.
	SetupCommand string
	Logger       *slog.Logger
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}

	return d.Logger
}

// GenerateServer asks b for its server manifest, falling back to the default
// manifest with no names.
func GenerateServer(ctx context.Context, b Backend, setupCode, answerCode string, noParse bool) (m.ServerManifest, error) {
	if gen, ok := b.(ServerGenerator); ok {
		return gen.GenerateServer(ctx, setupCode, answerCode, noParse)
	}

	return m.ServerManifest{Text: ServerDefault}, nil
}

func externalManifest(image, entrypoint string, timeout int) m.GradingManifest {
	return m.GradingManifest{
		GradingMethod: m.GradingMethodExternal,
		ExternalGradingOptions: m.ExternalGradingOptions{
			Enabled:        true,
			Image:          image,
			Entrypoint:     entrypoint,
			TimeoutSeconds: timeout,
		},
	}
}

// marshalJSON encodes v compactly, without HTML escaping and without a trailing
// newline. Map keys are sorted.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
