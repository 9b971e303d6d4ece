package adapter

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

func TestLocalSourceFSAdapter_Walk(t *testing.T) {
	t.Run("non recursive skips nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "q.py"), "x = 1\n")

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		writeTestFile(t, filepath.Join(nestedDir, "child.py"), "y = 2\n")

		var visited []string
		err := adapter.Walk(m.Path(root), false, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}

		for _, forbidden := range []string{nestedDir, filepath.Join(nestedDir, "child.py")} {
			if containsPath(visited, forbidden) {
				t.Fatalf("Walk() unexpectedly visited %s when recursive is false", forbidden)
			}
		}

		if !containsPath(visited, filepath.Join(root, "q.py")) {
			t.Fatalf("Walk() did not visit top-level file")
		}
	})

	t.Run("recursive visits nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		root := t.TempDir()
		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		child := filepath.Join(nestedDir, "child.py")
		writeTestFile(t, child, "y = 2\n")

		var visited []string
		err := adapter.Walk(m.Path(root), true, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}

		if !containsPath(visited, child) {
			t.Fatalf("Walk() did not visit nested file when recursive")
		}
	})
}

func TestLocalSourceFSAdapter_ReadFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "q.py")
	content := "## answer_code ##\nx = 1\n## answer_code ##\n"
	writeTestFile(t, path, content)

	got, err := adapter.ReadFile(context.Background(), m.Path(path))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(got) != content {
		t.Fatalf("ReadFile() = %q, want %q", string(got), content)
	}

	t.Run("honours cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := adapter.ReadFile(ctx, m.Path(path)); !errors.Is(err, context.Canceled) {
			t.Fatalf("ReadFile() error = %v, want context.Canceled", err)
		}
	})
}

func TestLocalSourceFSAdapter_HashFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "q.py")
	content := []byte("def f():\n    return 1\n")
	writeTestBytes(t, path, content)

	expected := fmt.Sprintf("%x", sha256.Sum256(content))

	hash, err := adapter.HashFile(m.Path(path))
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}

	if hash != expected {
		t.Fatalf("HashFile() = %s, want %s", hash, expected)
	}
}

func TestLocalSourceFSAdapter_FileInfoAndExists(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "q.py")
	writeTestFile(t, path, "x = 1\n")

	info, err := adapter.FileInfo(m.Path(path))
	if err != nil {
		t.Fatalf("FileInfo() error = %v", err)
	}

	if info.IsDir() {
		t.Fatalf("FileInfo() reported file as directory")
	}

	if !adapter.Exists(m.Path(path)) {
		t.Fatalf("Exists() = false for existing file")
	}

	if adapter.Exists(m.Path(filepath.Join(root, "missing.py"))) {
		t.Fatalf("Exists() = true for missing file")
	}
}

func TestLocalSourceFSAdapter_CreateTempDirAndRemoveAll(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	tmp, err := adapter.CreateTempDir("fppgen-test-*")
	if err != nil {
		t.Fatalf("CreateTempDir() error = %v", err)
	}

	if fi, err := os.Stat(string(tmp)); err != nil || !fi.IsDir() {
		t.Fatalf("CreateTempDir() did not create directory, stat err=%v", err)
	}

	writeTestFile(t, filepath.Join(string(tmp), "file.rb"), "puts 1\n")

	if err := adapter.RemoveAll(tmp); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}

	if _, err := os.Stat(string(tmp)); !os.IsNotExist(err) {
		t.Fatalf("RemoveAll() did not remove directory, stat err=%v", err)
	}
}

func TestLocalSourceFSAdapter_ReadTree(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "lib"))
	mustMkdir(t, filepath.Join(root, ".git"))
	writeTestFile(t, filepath.Join(root, "lib", "app.rb"), "class App; end\n")
	writeTestFile(t, filepath.Join(root, "Gemfile"), "gem 'rspec'\n")
	writeTestFile(t, filepath.Join(root, ".git", "HEAD"), "ref: main\n")

	tree, err := adapter.ReadTree(context.Background(), m.Path(root))
	if err != nil {
		t.Fatalf("ReadTree() error = %v", err)
	}

	if len(tree) != 2 {
		t.Fatalf("ReadTree() returned %d files, want 2: %v", len(tree), tree.Paths())
	}

	if string(tree["lib/app.rb"]) != "class App; end\n" {
		t.Fatalf("ReadTree() lib/app.rb = %q", tree["lib/app.rb"])
	}

	if _, ok := tree[".git/HEAD"]; ok {
		t.Fatalf("ReadTree() included .git contents")
	}
}

func TestLocalSourceFSAdapter_WriteArtifacts(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	artifacts := m.ArtifactMap{}
	artifacts.Put("question.html", "<pl-question-panel>\n")
	artifacts.Put("tests/app/spec/script_spec.rb", "require_relative '../script.rb'\n")

	writeTestFile(t, filepath.Join(root, "question.html"), "stale")

	if err := adapter.WriteArtifacts(context.Background(), m.Path(root), artifacts); err != nil {
		t.Fatalf("WriteArtifacts() error = %v", err)
	}

	for rel, want := range artifacts {
		got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(string(rel))))
		if err != nil {
			t.Fatalf("failed to read %s: %v", rel, err)
		}

		if string(got) != string(want) {
			t.Fatalf("%s = %q, want %q", rel, got, want)
		}
	}

	leftovers, err := filepath.Glob(filepath.Join(root, ".tmp-*"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}

	if len(leftovers) != 0 {
		t.Fatalf("WriteArtifacts() left temporary files: %v", leftovers)
	}
}

func TestLocalSourceFSAdapter_WriteFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	path := filepath.Join(t.TempDir(), "nested", "info.json")
	if err := adapter.WriteFile(m.Path(path), []byte("{}\n")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil || string(got) != "{}\n" {
		t.Fatalf("WriteFile() wrote %q, err=%v", got, err)
	}
}

func TestLocalSourceFSAdapter_ResolveSource(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "questions"))
	writeTestFile(t, filepath.Join(root, "top.py"), "x = 1\n")
	writeTestFile(t, filepath.Join(root, "questions", "nested.py"), "x = 1\n")
	originalWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(originalWD); err != nil {
			t.Fatal(err)
		}
	})

	tests := []struct {
		name    string
		input   string
		want    m.Path
		wantErr bool
	}{
		{name: "working directory", input: "top.py", want: "top.py"},
		{name: "questions directory", input: "nested.py", want: m.Path(filepath.Join("questions", "nested.py"))},
		{name: "absolute path", input: filepath.Join(root, "top.py"), want: m.Path(filepath.Join(root, "top.py"))},
		{name: "missing", input: "absent.py", wantErr: true},
		{name: "directory is not a source", input: "questions", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adapter.ResolveSource(m.Path(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrSourceNotFound) {
					t.Fatalf("ResolveSource() error = %v, want ErrSourceNotFound", err)
				}

				return
			}

			if err != nil {
				t.Fatalf("ResolveSource() error = %v", err)
			}

			if got != tt.want {
				t.Fatalf("ResolveSource() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLocalSourceFSAdapter_DetectSources(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "b.py"), "")
	writeTestFile(t, filepath.Join(root, "a.rb"), "")
	writeTestFile(t, filepath.Join(root, "notes.txt"), "")
	mustMkdir(t, filepath.Join(root, "a"))
	writeTestFile(t, filepath.Join(root, "a", "generated.py"), "")

	got, err := adapter.DetectSources(m.Path(root), []string{"py", ".rb"})
	if err != nil {
		t.Fatalf("DetectSources() error = %v", err)
	}

	want := []m.Path{m.Path(filepath.Join(root, "a.rb")), m.Path(filepath.Join(root, "b.py"))}
	if len(got) != len(want) {
		t.Fatalf("DetectSources() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DetectSources()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	writeTestBytes(t, path, []byte(contents))
}

func writeTestBytes(t *testing.T, path string, contents []byte) {
	t.Helper()
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("failed to create dir %s: %v", path, err)
	}
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}

	return false
}
