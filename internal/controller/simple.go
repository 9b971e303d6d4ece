package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// styles holds the console styles, rendered for a specific writer.
type styles struct {
	ok   lipgloss.Style
	fail lipgloss.Style
	info lipgloss.Style
	warn lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)

	return styles{
		ok:   r.NewStyle().Foreground(lipgloss.Color("10")),
		fail: r.NewStyle().Foreground(lipgloss.Color("9")),
		info: r.NewStyle().Foreground(lipgloss.Color("12")),
		warn: r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd    *cobra.Command
	quiet  bool
	styles styles
	mu     sync.Mutex
}

// NewSimpleUI creates a new SimpleUI. In quiet mode only failures and the batch
// summary are printed.
func NewSimpleUI(cmd *cobra.Command, quiet bool) *SimpleUI {
	return &SimpleUI{cmd: cmd, quiet: quiet, styles: newStyles(cmd.OutOrStdout())}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, total int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.quiet && total > 1 {
		s.printf("%s\n", s.styles.info.Render(fmt.Sprintf("Generating %d questions", total)))
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayStarted announces a source file.
func (s *SimpleUI) DisplayStarted(ctx context.Context, source m.Path) {
	if ctx.Err() != nil || s.quiet {
		return
	}

	s.printf("%s\n", s.styles.info.Render("Generating from source "+string(source)))
}

// DisplayResult reports the outcome for one source file.
func (s *SimpleUI) DisplayResult(ctx context.Context, result m.GenerationResult) {
	if ctx.Err() != nil {
		return
	}

	if result.Failed() {
		s.printf("%s\n", s.styles.fail.Render(fmt.Sprintf("Failed %s: %v", result.Source, result.Err)))
		return
	}

	if s.quiet {
		return
	}

	s.printf("%s\n", s.styles.ok.Render(fmt.Sprintf("Done %s -> %s (%d files)", result.Source, result.QuestionDir, result.Artifacts)))
}

// DisplaySummary prints a table of a multi-file batch and the overall outcome.
func (s *SimpleUI) DisplaySummary(ctx context.Context, results []m.GenerationResult) {
	if ctx.Err() != nil || len(results) < 2 {
		return
	}

	s.printf("\n%s", renderSummaryTable(results))

	successes, failures := countResults(results)

	switch {
	case failures == 0:
		s.printf("%s\n", s.styles.ok.Render("Batch completed successfully on "+nFiles(successes)))
	case successes == 0:
		s.printf("%s\n", s.styles.fail.Render("Batch failed on all "+nFiles(failures)))
	default:
		s.printf("%s%s\n",
			s.styles.ok.Render("Batch completed successfully on "+nFiles(successes)),
			s.styles.fail.Render(" and failed on "+nFiles(failures)))
	}
}

// DisplayWatching lists the watched sources.
func (s *SimpleUI) DisplayWatching(ctx context.Context, sources []m.Path) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s\n", s.styles.warn.Render(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", nFiles(len(sources)))))

	if s.quiet {
		return
	}

	for _, source := range sources {
		s.printf("  - %s\n", source)
	}
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func renderSummaryTable(results []m.GenerationResult) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Source", "Backend", "Files", "Status"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})

	for _, result := range results {
		status := "ok"
		if result.Failed() {
			status = "failed"
		}

		table.Append([]string{string(result.Source), result.Backend, fmt.Sprintf("%d", result.Artifacts), status})
	}

	successes, failures := countResults(results)

	table.SetFooter([]string{
		fmt.Sprintf("Total %d", len(results)),
		"",
		"",
		fmt.Sprintf("%d ok / %d failed", successes, failures),
	})

	table.Render()

	return tableBuffer.String()
}

func countResults(results []m.GenerationResult) (successes, failures int) {
	for _, result := range results {
		if result.Failed() {
			failures++
		} else {
			successes++
		}
	}

	return successes, failures
}

func nFiles(n int) string {
	if n == 1 {
		return "1 file"
	}

	return fmt.Sprintf("%d files", n)
}
