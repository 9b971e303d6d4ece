package backends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"fppgen.dev/pkg/fppgen/internal/adapter"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

// ErrSystemUnderTestNotFound is wrapped when the setup_code region names a
// missing directory.
var ErrSystemUnderTestNotFound = errors.New("system under test not found")

// ErrSystemUnderTestOverlap is wrapped when the system under test would include
// the generated question itself.
var ErrSystemUnderTestOverlap = errors.New("system under test overlaps the question directory")

// Mutation backend output locations, relative to the tests directory.
const (
	MutationSolutionFile = "solution/_submission_file"
	MutationMetaFile     = "meta.json"
	MutationCommonDir    = "common"
	mutationVariantDir   = "var_"
)

// mutationDoc is the typed view of the test region's mutations.
type mutationDoc struct {
	Mutations map[string]mutationVariant `yaml:"mutations"`
}

type mutationVariant struct {
	Files map[string]string `yaml:"files"`
}

type mutationBackend struct {
	*scriptedBackend

	fs     adapter.SourceFSAdapter
	patch  adapter.PatchAdapter
	logger *slog.Logger
}

// NewMutation constructs the rspec mutation-testing backend.
func NewMutation(deps Dependencies) Backend {
	return &mutationBackend{
		scriptedBackend: newScripted(deps),
		fs:              deps.FS,
		patch:           deps.Patch,
		logger:          deps.logger(),
	}
}

func (b *mutationBackend) Kind() Kind {
	return KindMutation
}

func (b *mutationBackend) ManifestFragment() m.GradingManifest {
	return externalManifest("saasbook/pl-rspec-autograder", "/grader/run.py", 60)
}

// Populate writes the solution and grader metadata, copies the system under
// test to common/ and applies every mutation into var_<variant>/. Patches are
// applied one at a time in sorted variant and file order.
func (b *mutationBackend) Populate(ctx context.Context, in PopulateInput) (m.ArtifactMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if b.fs == nil || b.patch == nil {
		return nil, errors.New("mutation backend requires filesystem and patch adapters")
	}

	artifacts := m.ArtifactMap{}

	b.logger.Info("copying solution", "path", MutationSolutionFile)
	artifacts.Put(MutationSolutionFile, in.AnswerCode)

	doc, variants, err := parseMutationDoc(in.TestRegion)
	if err != nil {
		return nil, err
	}

	doc["pre-text"] = in.PreCode
	doc["post-text"] = in.PostCode

	meta, err := marshalJSON(m.StringKeys(doc))
	if err != nil {
		return nil, &m.MetadataParseError{Region: m.RegionTest, Err: err}
	}

	b.logger.Info("writing autograder metadata", "path", MutationMetaFile)
	artifacts[MutationMetaFile] = meta

	sutDir, err := b.systemUnderTest(in)
	if err != nil {
		return nil, err
	}

	b.logger.Info("copying system under test", "from", sutDir, "to", MutationCommonDir)

	tree, err := b.fs.ReadTree(ctx, sutDir)
	if err != nil {
		return nil, fmt.Errorf("failed to copy system under test: %w", err)
	}

	artifacts.Merge(MutationCommonDir, tree)

	patched, err := b.applyMutations(ctx, sutDir, variants)
	if err != nil {
		return nil, err
	}

	artifacts.Merge("", patched)

	return artifacts, nil
}

// systemUnderTest resolves the directory named by the setup_code region. The
// directory must exist and must not contain the question directory.
func (b *mutationBackend) systemUnderTest(in PopulateInput) (m.Path, error) {
	name := strings.TrimSpace(in.SetupCode)
	sutDir := in.SourceDir.Join(name)

	fail := func(err error) error {
		b.logger.Error("invalid system under test", "path", sutDir, "error", err)
		return &m.ExternalToolError{Tool: "setup_code", File: string(sutDir), Err: err}
	}

	if name == "" {
		return "", fail(fmt.Errorf("%w: setup_code region must name a directory relative to %s",
			ErrSystemUnderTestNotFound, in.SourceDir))
	}

	info, err := b.fs.FileInfo(sutDir)
	if err != nil || !info.IsDir() {
		return "", fail(fmt.Errorf("%w at %s, you may need to modify the setup_code region", ErrSystemUnderTestNotFound, sutDir))
	}

	if in.QuestionDir != "" && containsPath(sutDir, in.QuestionDir) {
		return "", fail(fmt.Errorf("%w: %s contains the question directory %s", ErrSystemUnderTestOverlap, sutDir, in.QuestionDir))
	}

	return sutDir, nil
}

// containsPath reports whether target is dir or lies below it.
func containsPath(dir, target m.Path) bool {
	absDir, err := filepath.Abs(string(dir))
	if err != nil {
		return false
	}

	absTarget, err := filepath.Abs(string(target))
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(absDir, absTarget)

	return err == nil && (rel == "." || filepath.IsLocal(rel))
}

// applyMutations patches into a scratch directory and reads the results back.
func (b *mutationBackend) applyMutations(ctx context.Context, sutDir m.Path, variants map[string]mutationVariant) (m.ArtifactMap, error) {
	scratch, err := b.fs.CreateTempDir("fppgen-mutations-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	defer func() {
		if err := b.fs.RemoveAll(scratch); err != nil {
			b.logger.Warn("failed to remove scratch directory", "path", scratch, "error", err)
		}
	}()

	out := m.ArtifactMap{}

	for _, variant := range sortedKeys(variants) {
		files := variants[variant].Files

		for _, file := range sortedKeys(files) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			rel := path.Join(mutationVariantDir+variant, filepath.ToSlash(file))
			target := scratch.Join(filepath.FromSlash(rel))

			if err := b.fs.MkdirAll(target.Dir()); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", target.Dir(), err)
			}

			b.logger.Info("applying mutation", "file", file, "variant", variant)

			if err := b.patch.Apply(ctx, sutDir.Join(file), target, files[file]); err != nil {
				return nil, mutationError(file, variant, err)
			}

			content, err := b.fs.ReadFile(ctx, target)
			if err != nil {
				return nil, fmt.Errorf("failed to read patched %s: %w", rel, err)
			}

			out[m.Path(rel)] = content
		}
	}

	return out, nil
}

// Clean vendors the gems of the shared system under test.
func (b *mutationBackend) Clean(ctx context.Context, root m.Path) error {
	return b.vendor(ctx, root.Join(MutationCommonDir))
}

// parseMutationDoc decodes the test region both as a generic document, kept for
// meta.json, and as typed mutations.
func parseMutationDoc(text string) (map[string]any, map[string]mutationVariant, error) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, nil, &m.MetadataParseError{Region: m.RegionTest, Err: err}
	}

	var typed mutationDoc
	if err := yaml.Unmarshal([]byte(text), &typed); err != nil {
		return nil, nil, &m.MetadataParseError{Region: m.RegionTest, Err: err}
	}

	if doc == nil || typed.Mutations == nil {
		return nil, nil, &m.MetadataParseError{Region: m.RegionTest, Err: errors.New("missing \"mutations\" mapping")}
	}

	for variant, v := range typed.Mutations {
		for file := range v.Files {
			if !filepath.IsLocal(file) {
				return nil, nil, &m.MetadataParseError{
					Region: m.RegionTest,
					Err:    fmt.Errorf("variant %q patches %q outside the system under test", variant, file),
				}
			}
		}
	}

	return doc, typed.Mutations, nil
}

func mutationError(file, variant string, err error) error {
	var toolErr *m.ExternalToolError
	if errors.As(err, &toolErr) {
		toolErr.File = file
		toolErr.Variant = variant

		return toolErr
	}

	return &m.ExternalToolError{Tool: "patch", File: file, Variant: variant, Err: err}
}

func sortedKeys[V any](in map[string]V) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
