package backends

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"fppgen.dev/pkg/fppgen/internal/adapter"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

// Plain backend output files, relative to the tests directory.
const (
	PlainTestFile       = "test.py"
	PlainTestSourceFile = "test_source.json"
	PlainAnswerFile     = "ans.py"
	PlainSetupFile      = "setup_code.py"
)

// SetupCodeDefault is the setup_code.py written when the setup_code region is empty.
const SetupCodeDefault = `# AUTO-GENERATED FILE
# go to https://prairielearn.readthedocs.io/en/latest/python-grader/#testssetup_codepy for more info
`

type plainBackend struct {
	names  adapter.NameExtractorAdapter
	logger *slog.Logger
}

// NewPlain constructs the python autograder backend.
func NewPlain(deps Dependencies) Backend {
	return &plainBackend{names: deps.Names, logger: deps.logger()}
}

func (b *plainBackend) Kind() Kind {
	return KindPlain
}

func (b *plainBackend) DefaultExtension() string {
	return ".py"
}

func (b *plainBackend) ManifestFragment() m.GradingManifest {
	return externalManifest("prairielearn/grader-python", "/python_autograder/run.sh", 5)
}

// Populate emits test.py, ans.py and setup_code.py. A test region holding a JSON
// test spec is compiled, and the spec kept as test_source.json.
func (b *plainBackend) Populate(ctx context.Context, in PopulateInput) (m.ArtifactMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifacts := m.ArtifactMap{}

	test := in.TestRegion
	if test == "" {
		test = TestDefault
	}

	script, err := CompileTestSpec(test)

	switch {
	case err == nil:
		b.logger.Info("generating tests/test.py from json test region")
		artifacts.Put(PlainTestSourceFile, test)
		test = script
	case !errors.Is(err, m.ErrRecoverableCompile):
		return nil, err
	case strings.HasPrefix(strings.TrimSpace(test), "{"):
		b.logger.Warn("generating tests from json failed, using test region as python", "error", err)
	default:
		b.logger.Debug("test region is not a json test spec", "error", err)
	}

	artifacts.Put(PlainTestFile, test)
	artifacts.Put(PlainAnswerFile, strings.Join([]string{in.PreCode, in.AnswerCode, in.PostCode}, "\n"))
	setup := in.SetupCode
	if setup == "" {
		setup = SetupCodeDefault
	}

	artifacts.Put(PlainSetupFile, setup)

	return artifacts, nil
}

// GenerateServer documents the names defined by the setup and answer code.
// Extraction failures fall back to the default manifest.
func (b *plainBackend) GenerateServer(ctx context.Context, setupCode, answerCode string, noParse bool) (m.ServerManifest, error) {
	if noParse || b.names == nil {
		return m.ServerManifest{Text: ServerDefault}, nil
	}

	provided, err := b.names.ExtractNames(ctx, setupCode)
	if err != nil {
		b.logger.Warn("could not extract names from setup code, using default server.py", "error", err)
		return m.ServerManifest{Text: ServerDefault}, nil
	}

	required, err := b.names.ExtractNames(ctx, answerCode)
	if err != nil {
		b.logger.Warn("could not extract names from answer code, using default server.py", "error", err)
		return m.ServerManifest{Text: ServerDefault}, nil
	}

	return m.ServerManifest{
		Text:     RenderServer(provided, required),
		Provided: provided,
		Required: required,
	}, nil
}
