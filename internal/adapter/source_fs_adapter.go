// Package adapter contains infrastructure adapters for the fppgen CLI.
package adapter

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// ErrSourceNotFound is returned when a source path cannot be resolved.
var ErrSourceNotFound = errors.New("source not found")

// SourceFSAdapter abstracts filesystem-specific operations that the domain layer
// relies on when reading annotated sources and writing generated questions. It
// hides direct `os` access so the generator can be tested without touching the disk.
//
//nolint:interfacebloat // A richer interface keeps generator logic decoupled from os/fs.
type SourceFSAdapter interface {
	// Walk traverses the provided root path. When recursive is false the
	// implementation limits itself to the root directory (no sub-dirs).
	Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// HashFile returns a stable fingerprint (SHA-256) for the file at path.
	HashFile(path m.Path) (string, error)

	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)

	// Exists reports whether path exists.
	Exists(path m.Path) bool

	// CreateTempDir creates a scratch directory.
	CreateTempDir(pattern string) (m.Path, error)

	// RemoveAll removes a directory and all its contents.
	RemoveAll(path m.Path) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path m.Path) error

	// ReadTree loads every regular file under root, keyed by its slash-separated
	// path relative to root. `.git` directories are skipped.
	ReadTree(ctx context.Context, root m.Path) (m.ArtifactMap, error)

	// WriteFile writes content to path, creating parent directories.
	WriteFile(path m.Path, content []byte) error

	// WriteArtifacts materialises every artifact under root. Each file is written
	// to a temporary sibling and renamed into place.
	WriteArtifacts(ctx context.Context, root m.Path, artifacts m.ArtifactMap) error

	// ResolveSource finds an annotated source by trying the search prefixes in order.
	ResolveSource(path m.Path) (m.Path, error)

	// DetectSources lists the files directly inside dir whose extension is one of exts.
	DetectSources(dir m.Path, exts []string) ([]m.Path, error)
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk. It is
// defined here to avoid leaking the standard-library type directly into the
// domain layer.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// SourceSearchPrefixes are tried in order when resolving a source path.
var SourceSearchPrefixes = []string{"", "questions", filepath.Join("..", "..", "questions"), filepath.Join("..", "..")}

// LocalSourceFSAdapter is the os-backed SourceFSAdapter.
type LocalSourceFSAdapter struct {
	fileMode os.FileMode
	dirMode  os.FileMode
}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the generator.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{fileMode: 0o644, dirMode: 0o755}
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(ctx context.Context, path m.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// #nosec G304 - path is an author-supplied question source
	return os.ReadFile(string(path))
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// Exists reports whether path exists.
func (a *LocalSourceFSAdapter) Exists(path m.Path) bool {
	_, err := os.Stat(string(path))
	return err == nil
}

// CreateTempDir creates a scratch directory.
func (a *LocalSourceFSAdapter) CreateTempDir(pattern string) (m.Path, error) {
	tmpDir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", err
	}

	return m.Path(tmpDir), nil
}

// RemoveAll removes a directory and all its contents.
func (a *LocalSourceFSAdapter) RemoveAll(path m.Path) error {
	return os.RemoveAll(string(path))
}

// MkdirAll creates a directory and any missing parents.
func (a *LocalSourceFSAdapter) MkdirAll(path m.Path) error {
	return os.MkdirAll(string(path), a.dirMode)
}

// ReadTree loads a directory tree into memory.
func (a *LocalSourceFSAdapter) ReadTree(ctx context.Context, root m.Path) (m.ArtifactMap, error) {
	tree := m.ArtifactMap{}

	err := filepath.Walk(string(root), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}

			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(string(root), path)
		if err != nil {
			return err
		}

		// #nosec G304 - path comes from walking the author's system-under-test tree
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		tree[m.Path(filepath.ToSlash(relPath))] = content

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read tree %s: %w", root, err)
	}

	return tree, nil
}

// WriteFile writes content to path, creating parent directories.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), a.dirMode); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, a.fileMode)
}

// WriteArtifacts writes every artifact under root in sorted path order.
func (a *LocalSourceFSAdapter) WriteArtifacts(ctx context.Context, root m.Path, artifacts m.ArtifactMap) error {
	for _, rel := range artifacts.Paths() {
		if err := ctx.Err(); err != nil {
			return err
		}

		dest := root.Join(filepath.FromSlash(string(rel)))
		if err := a.writeAtomic(string(dest), artifacts[rel]); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
	}

	return nil
}

func (a *LocalSourceFSAdapter) writeAtomic(dest string, content []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, a.dirMode); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, a.fileMode)

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

// ResolveSource tries path as given and under each search prefix.
func (a *LocalSourceFSAdapter) ResolveSource(path m.Path) (m.Path, error) {
	if filepath.IsAbs(string(path)) {
		if a.isFile(path) {
			return path, nil
		}

		return "", fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}

	for _, prefix := range SourceSearchPrefixes {
		candidate := m.Path(filepath.Join(prefix, string(path)))
		if a.isFile(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched %s)", ErrSourceNotFound, path, strings.Join(searchDescriptions(), ", "))
}

// DetectSources lists the matching files directly inside dir.
func (a *LocalSourceFSAdapter) DetectSources(dir m.Path, exts []string) ([]m.Path, error) {
	wanted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		wanted["."+strings.TrimPrefix(ext, ".")] = true
	}

	var sources []m.Path

	err := a.Walk(dir, false, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if wanted[filepath.Ext(path)] {
			sources = append(sources, m.Path(path))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i] < sources[j]
	})

	return sources, nil
}

func (a *LocalSourceFSAdapter) isFile(path m.Path) bool {
	info, err := os.Stat(string(path))
	return err == nil && !info.IsDir()
}

func searchDescriptions() []string {
	out := make([]string, 0, len(SourceSearchPrefixes))
	for _, prefix := range SourceSearchPrefixes {
		if prefix == "" {
			prefix = "."
		}

		out = append(out, prefix+string(filepath.Separator))
	}

	return out
}
