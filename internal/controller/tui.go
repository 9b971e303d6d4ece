package controller

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// TUI implements UI using Bubble Tea. Finished files are printed above a
// spinner line listing the files still in progress.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
	mu      sync.Mutex
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

type startedMsg struct{ source m.Path }

type resultMsg struct{ result m.GenerationResult }

type printMsg struct{ text string }

type quitMsg struct{}

// Start launches the Bubble Tea program in the background.
func (t *TUI) Start(ctx context.Context, total int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		t.program.Send(totalMsg(total))
		return nil
	}

	t.program = tea.NewProgram(
		newProgressModel(total, newStyles(t.output)),
		tea.WithOutput(t.output),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
		tea.WithContext(ctx),
	)
	t.done = make(chan struct{})

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)

		_, _ = program.Run()
	}(t.program, t.done)

	return nil
}

// Close stops the program and waits for the final frame to be written.
func (t *TUI) Close(_ context.Context) {
	t.mu.Lock()
	program, done := t.program, t.done
	t.program, t.done = nil, nil
	t.mu.Unlock()

	if program == nil {
		return
	}

	program.Send(quitMsg{})
	<-done
}

// DisplayStarted adds source to the in-progress line.
func (t *TUI) DisplayStarted(ctx context.Context, source m.Path) {
	t.send(ctx, startedMsg{source: source})
}

// DisplayResult prints the outcome for one source file.
func (t *TUI) DisplayResult(ctx context.Context, result m.GenerationResult) {
	t.send(ctx, resultMsg{result: result})
}

// DisplaySummary prints the batch table.
func (t *TUI) DisplaySummary(ctx context.Context, results []m.GenerationResult) {
	if len(results) < 2 {
		return
	}

	successes, failures := countResults(results)

	t.send(ctx, printMsg{text: fmt.Sprintf("\n%s%d ok, %d failed", renderSummaryTable(results), successes, failures)})
}

// DisplayWatching prints the watched sources.
func (t *TUI) DisplayWatching(ctx context.Context, sources []m.Path) {
	lines := make([]string, 0, len(sources)+1)
	lines = append(lines, fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", nFiles(len(sources))))

	for _, source := range sources {
		lines = append(lines, "  - "+string(source))
	}

	t.send(ctx, printMsg{text: strings.Join(lines, "\n")})
}

func (t *TUI) send(ctx context.Context, msg tea.Msg) {
	if ctx.Err() != nil {
		return
	}

	t.mu.Lock()
	program := t.program
	t.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}

type totalMsg int

// progressModel is the Bubble Tea model behind TUI.
type progressModel struct {
	spinner  spinner.Model
	styles   styles
	total    int
	finished int
	active   map[m.Path]bool
	quitting bool
}

func newProgressModel(total int, st styles) progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return progressModel{
		spinner: sp,
		styles:  st,
		total:   total,
		active:  map[m.Path]bool{},
	}
}

func (pm progressModel) Init() tea.Cmd {
	return pm.spinner.Tick
}

func (pm progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		pm.spinner, cmd = pm.spinner.Update(msg)

		return pm, cmd

	case totalMsg:
		pm.total = int(msg)
		pm.finished = 0

		return pm, nil

	case startedMsg:
		pm.active[msg.source] = true
		return pm, nil

	case resultMsg:
		delete(pm.active, msg.result.Source)
		pm.finished++

		return pm, tea.Println(pm.resultLine(msg.result))

	case printMsg:
		return pm, tea.Println(msg.text)

	case quitMsg:
		pm.quitting = true
		return pm, tea.Quit
	}

	return pm, nil
}

func (pm progressModel) View() string {
	if pm.quitting || len(pm.active) == 0 {
		return ""
	}

	sources := make([]string, 0, len(pm.active))
	for source := range pm.active {
		sources = append(sources, string(source))
	}

	sort.Strings(sources)

	progress := ""
	if pm.total > 1 {
		progress = fmt.Sprintf("[%d/%d] ", pm.finished, pm.total)
	}

	return fmt.Sprintf("%s %sGenerating %s\n", pm.spinner.View(), progress, strings.Join(sources, ", "))
}

func (pm progressModel) resultLine(result m.GenerationResult) string {
	if result.Failed() {
		return pm.styles.fail.Render(fmt.Sprintf("✗ %s: %v", result.Source, result.Err))
	}

	return pm.styles.ok.Render(fmt.Sprintf("✓ %s -> %s (%d files, %s)",
		result.Source, result.QuestionDir, result.Artifacts, result.Duration.Round(time.Millisecond)))
}
