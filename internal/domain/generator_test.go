package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fppgen.dev/pkg/fppgen/internal/adapter"
	"fppgen.dev/pkg/fppgen/internal/adapter/mocks"
	"fppgen.dev/pkg/fppgen/internal/domain/backends"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

const addOneSource = `"""Add BASE to x."""
## setup_code ##
BASE = 1
## setup_code ##
def add_one(x):
    return ?x + BASE?
## notes ##
remember the base
## notes ##
`

func newTestGenerator(t *testing.T, deps backends.Dependencies) (*generator, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	gen, ok := NewGenerator(adapter.NewLocalSourceFSAdapter(), deps, logger).(*generator)
	require.True(t, ok)

	gen.newID = func() string { return "00000000-0000-4000-8000-000000000000" }

	return gen, &logs
}

func writeSource(t *testing.T, name, content string) m.Path {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return m.Path(path)
}

func readQuestionFile(t *testing.T, dir m.Path, rel string) string {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(string(dir), filepath.FromSlash(rel)))
	require.NoError(t, err, rel)

	return string(content)
}

func TestGenerator_Generate_Plain(t *testing.T) {
	gen, _ := newTestGenerator(t, backends.Dependencies{})
	source := writeSource(t, "add_one.py", addOneSource)

	result, err := gen.Generate(context.Background(), GenerateArgs{Source: source})
	require.NoError(t, err)

	questionDir := source.Dir().Join("add_one")
	assert.Equal(t, questionDir, result.QuestionDir)
	assert.Equal(t, "python", result.Backend)
	assert.False(t, result.Failed())

	for _, rel := range []string{
		QuestionHTMLFile, SolutionFile, ServerFile, InfoJSONFile, "source.py", "notes.py",
		"tests/" + backends.PlainTestFile, "tests/" + backends.PlainAnswerFile, "tests/" + backends.PlainSetupFile,
	} {
		assert.FileExists(t, filepath.Join(string(questionDir), filepath.FromSlash(rel)))
	}

	assert.NoFileExists(t, filepath.Join(string(questionDir), MetadataFile))
	assert.Equal(t, 9, result.Artifacts)

	html := readQuestionFile(t, questionDir, QuestionHTMLFile)
	assert.Contains(t, html, "Add BASE to x.")
	assert.Contains(t, html, "return !BLANK")

	assert.Equal(t, "def add_one(x):\n    return x + BASE", readQuestionFile(t, questionDir, SolutionFile))
	assert.Equal(t, "BASE = 1", readQuestionFile(t, questionDir, "tests/"+backends.PlainSetupFile))
	assert.Equal(t, addOneSource, readQuestionFile(t, questionDir, "source.py"))
	assert.Equal(t, backends.ServerDefault, readQuestionFile(t, questionDir, ServerFile))

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(readQuestionFile(t, questionDir, InfoJSONFile)), &info))
	assert.Equal(t, "00000000-0000-4000-8000-000000000000", info["uuid"])
	assert.Equal(t, "Add One", info["title"])
}

func TestGenerator_Generate_InfoJSON(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		force     bool
		existing  string
		want      string
		wantLog   string
		keepsFile bool
	}{
		{
			name:      "existing file is kept",
			source:    addOneSource,
			existing:  "{\"uuid\": \"keep\"}\n",
			keepsFile: true,
		},
		{
			name:     "forced regeneration warns",
			source:   addOneSource,
			force:    true,
			existing: "{\"uuid\": \"old\"}\n",
			wantLog:  "overwriting info.json with a regenerated default",
		},
		{
			name:     "front matter forces regeneration",
			source:   "---\nforceGenerateJson: true\n---\n" + addOneSource,
			existing: "{\"uuid\": \"old\"}\n",
			wantLog:  "overwriting info.json with a regenerated default",
		},
		{
			name:     "info.json region is written verbatim",
			source:   addOneSource + "## info.json ##\n{\"uuid\": \"from-region\"}\n## info.json ##\n",
			existing: "{\"uuid\": \"old\"}\n",
			want:     "{\"uuid\": \"from-region\"}",
			wantLog:  "overwriting info.json using info.json region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, logs := newTestGenerator(t, backends.Dependencies{})
			source := writeSource(t, "add_one.py", tt.source)

			questionDir := source.Dir().Join("add_one")
			require.NoError(t, os.MkdirAll(string(questionDir), 0o755))
			require.NoError(t, os.WriteFile(string(questionDir.Join(InfoJSONFile)), []byte(tt.existing), 0o644))

			_, err := gen.Generate(context.Background(), GenerateArgs{Source: source, ForceJSON: tt.force})
			require.NoError(t, err)

			got := readQuestionFile(t, questionDir, InfoJSONFile)

			switch {
			case tt.keepsFile:
				assert.Equal(t, tt.existing, got)
				assert.NotContains(t, logs.String(), "overwriting info.json")
			case tt.want != "":
				assert.Equal(t, tt.want, got)
			default:
				assert.Contains(t, got, "00000000-0000-4000-8000-000000000000")
			}

			if tt.wantLog != "" {
				assert.Contains(t, logs.String(), tt.wantLog)
			}
		})
	}

	t.Run("regenerated default logs a diff", func(t *testing.T) {
		gen, logs := newTestGenerator(t, backends.Dependencies{})
		source := writeSource(t, "add_one.py", addOneSource)

		questionDir := source.Dir().Join("add_one")
		require.NoError(t, os.MkdirAll(string(questionDir), 0o755))
		require.NoError(t, os.WriteFile(string(questionDir.Join(InfoJSONFile)), []byte("{\"uuid\": \"old\"}\n"), 0o644))

		_, err := gen.Generate(context.Background(), GenerateArgs{Source: source, ForceJSON: true})
		require.NoError(t, err)

		assert.Contains(t, logs.String(), "info.json changes")
		assert.Contains(t, logs.String(), "(regenerated)")
	})
}

func TestGenerator_Generate_Metadata(t *testing.T) {
	gen, _ := newTestGenerator(t, backends.Dependencies{})
	source := writeSource(t, "add_one.py",
		"---\ntopic: arithmetic\n---\n"+addOneSource+"## metadata ##\ndifficulty: 2\ntopic: loops\n## metadata ##\n")

	result, err := gen.Generate(context.Background(), GenerateArgs{Source: source})
	require.NoError(t, err)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal([]byte(readQuestionFile(t, result.QuestionDir, MetadataFile)), &metadata))

	assert.Equal(t, "loops", metadata["topic"])
	assert.InDelta(t, 2, metadata["difficulty"], 0)
	assert.NoFileExists(t, filepath.Join(string(result.QuestionDir), "metadata.py"))

	t.Run("non-string keys", func(t *testing.T) {
		source := writeSource(t, "weighted.py", addOneSource+"## metadata ##\nweights:\n  1: 0.5\n## metadata ##\n")

		result, err := gen.Generate(context.Background(), GenerateArgs{Source: source})
		require.NoError(t, err)
		assert.JSONEq(t, `{"weights": {"1": 0.5}}`, readQuestionFile(t, result.QuestionDir, MetadataFile))
	})
}

func TestGenerator_Generate_AutograderOverride(t *testing.T) {
	gen, _ := newTestGenerator(t, backends.Dependencies{})
	source := writeSource(t, "greet.py", "---\nautograder: rb\n---\n"+
		"## setup_code ##\nclass Greeter; end\n## setup_code ##\n"+
		"def greet\n  ?42?\nend\n"+
		"## test ##\ndescribe 'greet' do\nend\n## test ##\n")

	result, err := gen.Generate(context.Background(), GenerateArgs{Source: source})
	require.NoError(t, err)

	assert.Equal(t, "ruby", result.Backend)
	assert.Equal(t, "class Greeter; end", readQuestionFile(t, result.QuestionDir, "tests/"+backends.ScriptedScriptFile))
	assert.Contains(t, readQuestionFile(t, result.QuestionDir, "tests/"+backends.ScriptedSpecFile), "describe 'greet' do")
	assert.Contains(t, readQuestionFile(t, result.QuestionDir, InfoJSONFile), "saasbook/pl-fpp-ruby-autograder")
}

func TestGenerator_Generate_Clean(t *testing.T) {
	tests := []struct {
		name    string
		clean   bool
		runErr  error
		wantLog string
	}{
		{name: "clean runs the setup command", clean: true},
		{name: "clean failure is only a warning", clean: true, runErr: errors.New("bundle: not found"), wantLog: "clean hook failed"},
		{name: "no clean skips the setup command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commands := new(mocks.MockCommandRunnerAdapter)
			if tt.clean {
				commands.On("Run", mock.Anything, mock.Anything, "bundle package").Return("", tt.runErr).Once()
			}

			gen, logs := newTestGenerator(t, backends.Dependencies{Commands: commands, SetupCommand: "bundle package"})
			source := writeSource(t, "greet.rb", "def greet\n  ?42?\nend\n")

			result, err := gen.Generate(context.Background(), GenerateArgs{Source: source, Clean: tt.clean})
			require.NoError(t, err)

			if tt.clean {
				commands.AssertCalled(t, "Run", mock.Anything, result.QuestionDir.Join(TestsDir, "app"), "bundle package")
			} else {
				commands.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
			}

			if tt.wantLog != "" {
				assert.Contains(t, logs.String(), tt.wantLog)
			}
		})
	}
}

func TestGenerator_Generate_Errors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		gen, _ := newTestGenerator(t, backends.Dependencies{})

		result, err := gen.Generate(context.Background(), GenerateArgs{Source: m.Path(filepath.Join(t.TempDir(), "absent.py"))})
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
		assert.Equal(t, "absent", result.QuestionDir.Stem())
	})

	t.Run("unclosed region", func(t *testing.T) {
		gen, _ := newTestGenerator(t, backends.Dependencies{})
		source := writeSource(t, "broken.py", "## answer_code ##\nx = 1\n")

		_, err := gen.Generate(context.Background(), GenerateArgs{Source: source})

		var markupErr *m.MarkupError
		require.ErrorAs(t, err, &markupErr)
		assert.NoDirExists(t, string(source.Dir().Join("broken")))
	})

	t.Run("mutation source without setup_code", func(t *testing.T) {
		patch := new(mocks.MockPatchAdapter)
		gen, _ := newTestGenerator(t, backends.Dependencies{Patch: patch})
		source := writeSource(t, "calc.rspec", "x = 1\n## test ##\n"+
			"mutations:\n  v1:\n    files:\n      app.rb: \"1c1\"\n## test ##\n")
		require.NoError(t, os.WriteFile(filepath.Join(string(source.Dir()), "secret.txt"), []byte("s"), 0o644))

		for i := 0; i < 2; i++ {
			_, err := gen.Generate(context.Background(), GenerateArgs{Source: source})

			var toolErr *m.ExternalToolError
			require.ErrorAs(t, err, &toolErr)
			assert.True(t, errors.Is(err, backends.ErrSystemUnderTestNotFound))
			assert.NoDirExists(t, string(source.Dir().Join("calc")))
		}

		patch.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mutation source copying its own directory", func(t *testing.T) {
		gen, _ := newTestGenerator(t, backends.Dependencies{Patch: new(mocks.MockPatchAdapter)})
		source := writeSource(t, "calc.rspec", "## setup_code ##\n.\n## setup_code ##\nx = 1\n## test ##\n"+
			"mutations:\n  v1:\n    files:\n      app.rb: \"1c1\"\n## test ##\n")

		_, err := gen.Generate(context.Background(), GenerateArgs{Source: source})
		assert.True(t, errors.Is(err, backends.ErrSystemUnderTestOverlap))
		assert.NoDirExists(t, string(source.Dir().Join("calc")))
	})

	t.Run("malformed metadata region", func(t *testing.T) {
		gen, _ := newTestGenerator(t, backends.Dependencies{})
		source := writeSource(t, "meta.py", "x = 1\n## metadata ##\n: [\n## metadata ##\n")

		_, err := gen.Generate(context.Background(), GenerateArgs{Source: source})

		var parseErr *m.MetadataParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, m.RegionMetadata, parseErr.Region)
	})
}

func TestGenerator_AddExtraRegions(t *testing.T) {
	gen, logs := newTestGenerator(t, backends.Dependencies{})

	artifacts := m.ArtifactMap{}
	gen.addExtraRegions(artifacts, m.RegionMap{
		"helper":        "def h(): pass",
		"Gemfile":       "gem 'rspec'",
		"data/input.txt": "1 2 3",
		"../escape":     "nope",
	}, ".py")

	assert.Equal(t, []m.Path{"Gemfile", "data/input.txt", "helper.py"}, artifacts.Paths())
	assert.Contains(t, logs.String(), "skipping region outside the question directory")
}
