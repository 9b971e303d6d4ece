package backends

import (
	"context"
	"fmt"
	"log/slog"

	"fppgen.dev/pkg/fppgen/internal/adapter"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

// DefaultGemfile is the dependency manifest written next to the application script.
const DefaultGemfile = `source 'https://www.rubygems.org'

gem 'rspec'
gem 'json'
`

// DefaultSetupCommand vendors the application's gems.
const DefaultSetupCommand = "rvm use 2.6.10 && bundle package"

// Scripted backend output files, relative to the tests directory.
const (
	ScriptedScriptFile   = "app/script.rb"
	ScriptedGemfile      = "app/Gemfile"
	ScriptedSpecFile     = "app/spec/script_spec.rb"
	ScriptedMetaFile     = "meta.json"
	ScriptedSolutionFile = "solution"

	specPreamble = "require_relative '../script.rb'\n\n"
)

type graderMeta struct {
	SubmissionFile    string   `json:"submission_file"`
	SubmissionRoot    string   `json:"submission_root"`
	SubmitToLine      int      `json:"submit_to_line"`
	PreText           string   `json:"pre-text"`
	PostText          string   `json:"post-text"`
	GradingExclusions []string `json:"grading_exclusions"`
}

type scriptedBackend struct {
	commands     adapter.CommandRunnerAdapter
	setupCommand string
	logger       *slog.Logger
}

// NewScripted constructs the ruby autograder backend.
func NewScripted(deps Dependencies) Backend {
	return newScripted(deps)
}

func newScripted(deps Dependencies) *scriptedBackend {
	setup := deps.SetupCommand
	if setup == "" {
		setup = DefaultSetupCommand
	}

	return &scriptedBackend{commands: deps.Commands, setupCommand: setup, logger: deps.logger()}
}

func (b *scriptedBackend) Kind() Kind {
	return KindScripted
}

func (b *scriptedBackend) DefaultExtension() string {
	return ".rb"
}

func (b *scriptedBackend) ManifestFragment() m.GradingManifest {
	return externalManifest("saasbook/pl-fpp-ruby-autograder", "/grader/run.py", 30)
}

// Populate emits the application, its spec, the grader metadata and the solution.
func (b *scriptedBackend) Populate(ctx context.Context, in PopulateInput) (m.ArtifactMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.logger.Info("generating grader metadata")

	meta, err := marshalJSON(graderMeta{
		SubmissionFile:    "script.rb",
		SubmissionRoot:    "",
		SubmitToLine:      -1,
		PreText:           in.PreCode + "\n",
		PostText:          in.PostCode + "\n",
		GradingExclusions: []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode grader metadata: %w", err)
	}

	artifacts := m.ArtifactMap{}
	artifacts.Put(ScriptedSpecFile, specPreamble+in.TestRegion)
	artifacts.Put(ScriptedScriptFile, in.SetupCode)
	artifacts.Put(ScriptedGemfile, DefaultGemfile)
	artifacts[ScriptedMetaFile] = meta
	artifacts.Put(ScriptedSolutionFile, in.AnswerCode)

	return artifacts, nil
}

// Clean vendors the application's gems.
func (b *scriptedBackend) Clean(ctx context.Context, root m.Path) error {
	return b.vendor(ctx, root.Join("app"))
}

// vendor runs the setup command in dir and waits for it to exit.
func (b *scriptedBackend) vendor(ctx context.Context, dir m.Path) error {
	if b.commands == nil {
		return nil
	}

	b.logger.Info("installing gems locally", "dir", dir, "command", b.setupCommand)

	output, err := b.commands.Run(ctx, dir, b.setupCommand)
	if err != nil {
		b.logger.Error("failed to install gems", "dir", dir, "output", output, "error", err)
		return fmt.Errorf("failed to install gems in %s: %w", dir, err)
	}

	b.logger.Debug("installed gems", "dir", dir, "output", output)

	return nil
}
