// Package mocks provides testify mocks for the controller interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fppgen.dev/pkg/fppgen/internal/controller"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

var _ controller.UI = (*MockUI)(nil)

// MockUI is a mock of controller.UI.
type MockUI struct {
	mock.Mock
}

func (_m *MockUI) Start(ctx context.Context, total int) error {
	return _m.Called(ctx, total).Error(0)
}

func (_m *MockUI) Close(ctx context.Context) {
	_m.Called(ctx)
}

func (_m *MockUI) DisplayStarted(ctx context.Context, source m.Path) {
	_m.Called(ctx, source)
}

func (_m *MockUI) DisplayResult(ctx context.Context, result m.GenerationResult) {
	_m.Called(ctx, result)
}

func (_m *MockUI) DisplaySummary(ctx context.Context, results []m.GenerationResult) {
	_m.Called(ctx, results)
}

func (_m *MockUI) DisplayWatching(ctx context.Context, sources []m.Path) {
	_m.Called(ctx, sources)
}
