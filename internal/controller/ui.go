// Package controller provides output adapters for displaying generation progress.
package controller

import (
	"context"
	"io"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// UI defines the interface for reporting question generation.
// Implementations can use different output methods (simple text, TUI, etc).
// Display methods may be called from several goroutines.
type UI interface {
	// Start prepares the UI for a batch of total files.
	Start(ctx context.Context, total int) error
	// Close finalizes the UI.
	Close(ctx context.Context)
	DisplayStarted(ctx context.Context, source m.Path)
	DisplayResult(ctx context.Context, result m.GenerationResult)
	DisplaySummary(ctx context.Context, results []m.GenerationResult)
	DisplayWatching(ctx context.Context, sources []m.Path)
}

// IsTerminal reports whether w is attached to an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewUI picks the TUI for interactive terminals and SimpleUI otherwise. Quiet
// output always uses SimpleUI.
func NewUI(cmd *cobra.Command, quiet bool) UI {
	if !quiet && IsTerminal(cmd.OutOrStdout()) {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd, quiet)
}
