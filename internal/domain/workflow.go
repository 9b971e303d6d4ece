package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fppgen.dev/pkg/fppgen/internal/adapter"
	"fppgen.dev/pkg/fppgen/internal/controller"
	"fppgen.dev/pkg/fppgen/internal/domain/backends"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

// ErrBatchFailed is returned when at least one source failed to generate.
var ErrBatchFailed = errors.New("batch generation failed")

// ErrNoSources is returned when no sources were given and none could be detected.
var ErrNoSources = errors.New("no question sources found")

// AutoDetectDirs are searched for sources when none are given.
var AutoDetectDirs = []m.Path{"questions", m.Path("../../questions")}

// DefaultDebounce is the settle time for watch mode.
const DefaultDebounce = 200 * time.Millisecond

// BatchArgs contains the arguments for generating many questions.
type BatchArgs struct {
	Paths []m.Path
	// ForceJSON lists sources whose info.json is always regenerated.
	ForceJSON []m.Path
	NoParse   bool
	Threads   uint
	Clean     bool
}

// WatchArgs contains the arguments for watch mode.
type WatchArgs struct {
	Paths    []m.Path
	NoParse  bool
	Clean    bool
	Debounce time.Duration
}

// Workflow drives the Generator over a batch of sources.
type Workflow interface {
	Generate(ctx context.Context, args BatchArgs) error
	Watch(ctx context.Context, args WatchArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.SourceWatcherAdapter
	controller.UI
	Generator
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	watcher adapter.SourceWatcherAdapter,
	ui controller.UI,
	generator Generator,
) Workflow {
	return &workflow{
		SourceFSAdapter:      fsAdapter,
		SourceWatcherAdapter: watcher,
		UI:                   ui,
		Generator:            generator,
	}
}

func (w *workflow) Generate(ctx context.Context, args BatchArgs) error {
	sources, err := w.sources(args.Paths, args.ForceJSON)
	if err != nil {
		return err
	}

	if err := w.Start(ctx, len(sources)); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}
	defer w.Close(ctx)

	results := w.generateAll(ctx, sources, args.NoParse, args.Clean, args.Threads)

	w.DisplaySummary(ctx, results)

	if err := ctx.Err(); err != nil {
		return err
	}

	failures := 0

	for _, result := range results {
		if result.Failed() {
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrBatchFailed, failures, len(results))
	}

	return nil
}

func (w *workflow) Watch(ctx context.Context, args WatchArgs) error {
	sources, err := w.sources(args.Paths, nil)
	if err != nil {
		return err
	}

	if err := w.Start(ctx, len(sources)); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}
	defer w.Close(ctx)

	debounce := args.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	hashes := make(map[m.Path]string, len(sources))
	paths := make([]m.Path, 0, len(sources))

	for _, source := range sources {
		w.generateOne(ctx, source, args.NoParse, args.Clean)
		hashes[source.Path], _ = w.HashFile(source.Path)
		paths = append(paths, source.Path)
	}

	w.DisplayWatching(ctx, paths)

	err = w.SourceWatcherAdapter.Watch(ctx, paths, debounce, func(path m.Path) {
		hash, err := w.HashFile(path)
		if err == nil && hash == hashes[path] {
			return
		}

		hashes[path] = hash

		w.generateOne(ctx, m.Source{Path: path}, args.NoParse, args.Clean)
	})
	if err != nil {
		return fmt.Errorf("watch sources: %w", err)
	}

	return nil
}

// sources resolves the requested paths, detecting them when none are given.
// Unresolvable paths are kept so that they are reported as failed files.
func (w *workflow) sources(paths, forceJSON []m.Path) ([]m.Source, error) {
	if len(paths) == 0 && len(forceJSON) == 0 {
		detected, err := w.detect()
		if err != nil {
			return nil, err
		}

		paths = detected
	}

	sources := make([]m.Source, 0, len(paths)+len(forceJSON))

	for _, path := range paths {
		sources = append(sources, m.Source{Path: w.resolve(path)})
	}

	for _, path := range forceJSON {
		sources = append(sources, m.Source{Path: w.resolve(path), ForceJSON: true})
	}

	return sources, nil
}

func (w *workflow) resolve(path m.Path) m.Path {
	resolved, err := w.ResolveSource(path)
	if err != nil {
		return path
	}

	return resolved
}

func (w *workflow) detect() ([]m.Path, error) {
	for _, dir := range AutoDetectDirs {
		info, err := w.FileInfo(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		found, err := w.DetectSources(dir, backends.Extensions())
		if err != nil {
			return nil, fmt.Errorf("detect sources in %s: %w", dir, err)
		}

		if len(found) > 0 {
			return found, nil
		}
	}

	return nil, ErrNoSources
}

// generateAll runs every source through the generator. A failing source never
// stops the others; results keep the order of sources.
func (w *workflow) generateAll(ctx context.Context, sources []m.Source, noParse, clean bool, threads uint) []m.GenerationResult {
	results := make([]m.GenerationResult, len(sources))

	var group errgroup.Group

	limit := 1
	if threads > 0 {
		limit = int(threads)
	}

	group.SetLimit(limit)

	for i, source := range sources {
		i, source := i, source
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = m.GenerationResult{Source: source.Path, Err: err}
				return nil
			}

			results[i] = w.generateOne(ctx, source, noParse, clean)

			return nil
		})
	}

	_ = group.Wait()

	return results
}

func (w *workflow) generateOne(ctx context.Context, source m.Source, noParse, clean bool) m.GenerationResult {
	w.DisplayStarted(ctx, source.Path)

	result, err := w.Generator.Generate(ctx, GenerateArgs{
		Source:    source.Path,
		ForceJSON: source.ForceJSON,
		NoParse:   noParse,
		Clean:     clean,
	})
	if err != nil {
		result.Source = source.Path
		result.Err = err
	}

	w.DisplayResult(ctx, result)

	return result
}
