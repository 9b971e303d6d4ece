package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"fppgen.dev/pkg/fppgen/internal/adapter"
	"fppgen.dev/pkg/fppgen/internal/domain/backends"
	"fppgen.dev/pkg/fppgen/internal/domain/markup"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

// Question directory layout.
const (
	QuestionHTMLFile = "question.html"
	SolutionFile     = "solution"
	ServerFile       = "server.py"
	InfoJSONFile     = "info.json"
	MetadataFile     = "metadata.json"
	TestsDir         = "tests"
	sourceCopyStem   = "source"
)

// wellKnownNames are extra region files that keep their bare name.
var wellKnownNames = map[string]bool{
	"Gemfile":    true,
	"Rakefile":   true,
	"Makefile":   true,
	"Dockerfile": true,
	"Procfile":   true,
}

// GenerateArgs selects one annotated source to turn into a question.
type GenerateArgs struct {
	Source m.Path
	// ForceJSON regenerates info.json even when it already exists.
	ForceJSON bool
	// NoParse skips name extraction for server.py.
	NoParse bool
	// Clean runs the backend's post-population hook.
	Clean bool
}

// Generator turns one annotated source file into a question directory.
type Generator interface {
	Generate(ctx context.Context, args GenerateArgs) (m.GenerationResult, error)
}

type generator struct {
	adapter.SourceFSAdapter

	tokenizer *markup.Tokenizer
	extractor *markup.Extractor
	deps      backends.Dependencies
	logger    *slog.Logger
	newID     func() string
}

// NewGenerator creates a Generator. deps.FS defaults to fsAdapter.
func NewGenerator(fsAdapter adapter.SourceFSAdapter, deps backends.Dependencies, logger *slog.Logger) Generator {
	if logger == nil {
		logger = slog.Default()
	}

	if deps.FS == nil {
		deps.FS = fsAdapter
	}

	if deps.Logger == nil {
		deps.Logger = logger
	}

	return &generator{
		SourceFSAdapter: fsAdapter,
		tokenizer:       markup.NewTokenizer(fsAdapter, logger),
		extractor:       markup.NewExtractor(logger),
		deps:            deps,
		logger:          logger,
		newID:           uuid.NewString,
	}
}

// Generate reads, parses and renders args.Source into the sibling directory
// named after the file stem.
//
//nolint:cyclop,funlen // Generation is a linear sequence of region consumers.
func (g *generator) Generate(ctx context.Context, args GenerateArgs) (m.GenerationResult, error) {
	start := time.Now()
	source := args.Source
	questionName := source.Stem()
	questionDir := source.Dir().Join(questionName)

	result := m.GenerationResult{Source: source, QuestionDir: questionDir}

	g.logger.Info("generating from source", "path", source)

	content, err := g.ReadFile(ctx, source)
	if err != nil {
		g.logger.Error("failed to read source", "path", source, "error", err)
		return result, fmt.Errorf("read source %s: %w", source, err)
	}

	stream, err := g.tokenizer.Tokenize(ctx, source, string(content))
	if err != nil {
		return result, err
	}

	regions, err := g.extractor.Extract(stream)
	if err != nil {
		return result, err
	}

	metadata, err := mergeMetadata(stream.Metadata, regions)
	if err != nil {
		return result, err
	}

	forceJSON := metadata.ForceGenerateJSON(args.ForceJSON)
	noParse := metadata.NoParse(args.NoParse)

	ext := source.Ext()
	if override, ok := metadata.Autograder(); ok {
		ext = override
	}

	backend := backends.Resolve(ext, g.deps)
	result.Backend = string(backend.Kind())

	artifacts := m.ArtifactMap{}
	artifacts[m.Path(sourceCopyStem+source.Ext())] = content

	setupCode := regions.Take(m.RegionSetupCode, "")
	answerCode := regions.Take(m.RegionAnswerCode, "")

	serverManifest, err := backends.GenerateServer(ctx, backend, setupCode, answerCode, noParse)
	if err != nil {
		return result, fmt.Errorf("generate server: %w", err)
	}

	serverCode := regions.Take(m.RegionServer, "")
	if serverCode == "" {
		serverCode = serverManifest.Text
	}

	promptCode := regions.Take(m.RegionPromptCode, "")
	questionText, hasText := regions[m.RegionQuestionText]
	delete(regions, m.RegionQuestionText)

	artifacts.Put(QuestionHTMLFile, RenderQuestionHTML(promptCode, questionText, hasText, serverManifest.Provided))
	artifacts.Put(SolutionFile, answerCode)

	infoJSON, err := g.infoJSON(ctx, questionName, questionDir, regions.Take(m.RegionInfoJSON, ""), forceJSON, backend)
	if err != nil {
		return result, err
	}

	if infoJSON != nil {
		artifacts[InfoJSONFile] = infoJSON
	}

	artifacts.Put(ServerFile, serverCode)

	tests, err := backend.Populate(ctx, backends.PopulateInput{
		AnswerCode:  answerCode,
		SetupCode:   setupCode,
		TestRegion:  regions.Take(m.RegionTest, ""),
		SourceDir:   source.Dir(),
		QuestionDir: questionDir,
		PreCode:     regions.Take(m.RegionPreCode, ""),
		PostCode:    regions.Take(m.RegionPostCode, ""),
	})
	if err != nil {
		g.logger.Error("failed to populate tests", "path", source, "backend", backend.Kind(), "error", err)
		return result, err
	}

	artifacts.Merge(TestsDir, tests)

	if len(metadata) > 0 {
		encoded, err := json.Marshal(m.StringKeys(metadata))
		if err != nil {
			return result, &m.MetadataParseError{Region: m.RegionMetadata, Err: err}
		}

		artifacts[MetadataFile] = encoded
	}

	g.addExtraRegions(artifacts, regions, backend.DefaultExtension())

	if err := g.WriteArtifacts(ctx, questionDir, artifacts); err != nil {
		g.logger.Error("failed to write question", "dir", questionDir, "error", err)
		return result, fmt.Errorf("write question %s: %w", questionDir, err)
	}

	if cleaner, ok := backend.(backends.Cleaner); ok && args.Clean {
		if err := cleaner.Clean(ctx, questionDir.Join(TestsDir)); err != nil {
			g.logger.Warn("clean hook failed", "dir", questionDir.Join(TestsDir), "error", err)
		}
	}

	result.Artifacts = len(artifacts)
	result.Duration = time.Since(start)

	g.logger.Info("generated question", "path", source, "dir", questionDir, "artifacts", result.Artifacts)

	return result, nil
}

// infoJSON returns the info.json to write, or nil to keep the existing file.
// It is written when forced, when the source carries an info.json region, or
// when the file is missing. Overwriting with a regenerated default warns.
func (g *generator) infoJSON(ctx context.Context, name string, questionDir m.Path, region string, force bool, backend backends.Backend) ([]byte, error) {
	path := questionDir.Join(InfoJSONFile)
	exists := g.Exists(path)

	if !force && region == "" && exists {
		return nil, nil
	}

	if region != "" {
		if exists {
			g.logger.Info("overwriting info.json using info.json region", "path", path)
		}

		return []byte(region), nil
	}

	generated, err := RenderInfoJSON(name, g.newID(), backend.ManifestFragment())
	if err != nil {
		return nil, fmt.Errorf("render info.json: %w", err)
	}

	if exists {
		g.logger.Warn("overwriting info.json with a regenerated default", "path", path)
		g.logInfoDiff(ctx, path, generated)
	}

	return generated, nil
}

func (g *generator) logInfoDiff(ctx context.Context, path m.Path, generated []byte) {
	existing, err := g.ReadFile(ctx, path)
	if err != nil {
		return
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(existing)),
		B:        difflib.SplitLines(string(generated)),
		FromFile: string(path),
		ToFile:   string(path) + " (regenerated)",
		Context:  3,
	})
	if err == nil && diff != "" {
		g.logger.Debug("info.json changes", "path", path, "diff", diff)
	}
}

// addExtraRegions writes unrecognized regions as files named after the region.
func (g *generator) addExtraRegions(artifacts m.ArtifactMap, regions m.RegionMap, defaultExt string) {
	for _, name := range sortedRegionNames(regions) {
		rel := name
		if filepath.Ext(rel) == "" && !wellKnownNames[filepath.Base(rel)] {
			rel += defaultExt
		}

		if !filepath.IsLocal(rel) {
			g.logger.Warn("skipping region outside the question directory", "region", name)
			continue
		}

		g.logger.Warn("writing unrecognized region", "region", name, "path", rel)
		artifacts.Put(m.Path(filepath.ToSlash(rel)), regions[name])
	}
}

// mergeMetadata overlays a metadata region, parsed as YAML, on the front matter.
func mergeMetadata(front m.Metadata, regions m.RegionMap) (m.Metadata, error) {
	merged := m.Metadata{}
	merged.Merge(front)

	text, ok := regions[m.RegionMetadata]
	if !ok {
		return merged, nil
	}

	delete(regions, m.RegionMetadata)

	var fromRegion m.Metadata
	if err := yaml.Unmarshal([]byte(text), &fromRegion); err != nil {
		return nil, &m.MetadataParseError{Region: m.RegionMetadata, Err: err}
	}

	merged.Merge(fromRegion)

	return merged, nil
}
