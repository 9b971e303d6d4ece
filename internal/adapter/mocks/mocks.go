// Package mocks provides testify mocks for the adapter interfaces.
package mocks

import (
	"context"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"fppgen.dev/pkg/fppgen/internal/adapter"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

var (
	_ adapter.SourceFSAdapter      = (*MockSourceFSAdapter)(nil)
	_ adapter.PatchAdapter         = (*MockPatchAdapter)(nil)
	_ adapter.CommandRunnerAdapter = (*MockCommandRunnerAdapter)(nil)
	_ adapter.NameExtractorAdapter = (*MockNameExtractorAdapter)(nil)
	_ adapter.SourceWatcherAdapter = (*MockSourceWatcherAdapter)(nil)
)

// MockSourceFSAdapter is a mock of adapter.SourceFSAdapter.
type MockSourceFSAdapter struct {
	mock.Mock
}

func (_m *MockSourceFSAdapter) Walk(root m.Path, recursive bool, fn adapter.FilepathWalkFunc) error {
	return _m.Called(root, recursive, fn).Error(0)
}

func (_m *MockSourceFSAdapter) ReadFile(ctx context.Context, path m.Path) ([]byte, error) {
	ret := _m.Called(ctx, path)

	content, _ := ret.Get(0).([]byte)

	return content, ret.Error(1)
}

func (_m *MockSourceFSAdapter) HashFile(path m.Path) (string, error) {
	ret := _m.Called(path)
	return ret.String(0), ret.Error(1)
}

func (_m *MockSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	ret := _m.Called(path)

	info, _ := ret.Get(0).(os.FileInfo)

	return info, ret.Error(1)
}

func (_m *MockSourceFSAdapter) Exists(path m.Path) bool {
	return _m.Called(path).Bool(0)
}

func (_m *MockSourceFSAdapter) CreateTempDir(pattern string) (m.Path, error) {
	ret := _m.Called(pattern)

	path, _ := ret.Get(0).(m.Path)

	return path, ret.Error(1)
}

func (_m *MockSourceFSAdapter) RemoveAll(path m.Path) error {
	return _m.Called(path).Error(0)
}

func (_m *MockSourceFSAdapter) MkdirAll(path m.Path) error {
	return _m.Called(path).Error(0)
}

func (_m *MockSourceFSAdapter) ReadTree(ctx context.Context, root m.Path) (m.ArtifactMap, error) {
	ret := _m.Called(ctx, root)

	tree, _ := ret.Get(0).(m.ArtifactMap)

	return tree, ret.Error(1)
}

func (_m *MockSourceFSAdapter) WriteFile(path m.Path, content []byte) error {
	return _m.Called(path, content).Error(0)
}

func (_m *MockSourceFSAdapter) WriteArtifacts(ctx context.Context, root m.Path, artifacts m.ArtifactMap) error {
	return _m.Called(ctx, root, artifacts).Error(0)
}

func (_m *MockSourceFSAdapter) ResolveSource(path m.Path) (m.Path, error) {
	ret := _m.Called(path)

	if fn, ok := ret.Get(0).(func(m.Path) m.Path); ok {
		return fn(path), ret.Error(1)
	}

	resolved, _ := ret.Get(0).(m.Path)

	return resolved, ret.Error(1)
}

func (_m *MockSourceFSAdapter) DetectSources(dir m.Path, exts []string) ([]m.Path, error) {
	ret := _m.Called(dir, exts)

	paths, _ := ret.Get(0).([]m.Path)

	return paths, ret.Error(1)
}

// MockPatchAdapter is a mock of adapter.PatchAdapter.
type MockPatchAdapter struct {
	mock.Mock
}

func (_m *MockPatchAdapter) Apply(ctx context.Context, input, output m.Path, diff string) error {
	return _m.Called(ctx, input, output, diff).Error(0)
}

// MockCommandRunnerAdapter is a mock of adapter.CommandRunnerAdapter.
type MockCommandRunnerAdapter struct {
	mock.Mock
}

func (_m *MockCommandRunnerAdapter) Run(ctx context.Context, workDir m.Path, command string) (string, error) {
	ret := _m.Called(ctx, workDir, command)
	return ret.String(0), ret.Error(1)
}

// MockNameExtractorAdapter is a mock of adapter.NameExtractorAdapter.
type MockNameExtractorAdapter struct {
	mock.Mock
}

func (_m *MockNameExtractorAdapter) ExtractNames(ctx context.Context, source string) ([]m.AnnotatedName, error) {
	ret := _m.Called(ctx, source)

	names, _ := ret.Get(0).([]m.AnnotatedName)

	return names, ret.Error(1)
}

// MockSourceWatcherAdapter is a mock of adapter.SourceWatcherAdapter.
type MockSourceWatcherAdapter struct {
	mock.Mock
}

func (_m *MockSourceWatcherAdapter) Watch(ctx context.Context, paths []m.Path, debounce time.Duration, onChange func(m.Path)) error {
	return _m.Called(ctx, paths, debounce, onChange).Error(0)
}
