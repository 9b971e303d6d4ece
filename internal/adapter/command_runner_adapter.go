package adapter

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// CommandRunnerAdapter runs shell commands on behalf of backend clean hooks.
type CommandRunnerAdapter interface {
	// Run executes command through the shell in workDir and returns the combined
	// stdout/stderr output once the process has exited.
	Run(ctx context.Context, workDir m.Path, command string) (output string, err error)
}

// LocalCommandRunnerAdapter provides a concrete implementation using os/exec.
type LocalCommandRunnerAdapter struct {
	shell string
}

// NewLocalCommandRunnerAdapter constructs a LocalCommandRunnerAdapter that runs
// commands with `sh -c`.
func NewLocalCommandRunnerAdapter() *LocalCommandRunnerAdapter {
	return &LocalCommandRunnerAdapter{shell: "sh"}
}

// Run executes command in workDir. A non-zero exit status is reported as an
// *m.ExternalToolError carrying the exit code and output.
func (a *LocalCommandRunnerAdapter) Run(ctx context.Context, workDir m.Path, command string) (string, error) {
	// #nosec G204 - the command comes from the user's own configuration
	cmd := exec.CommandContext(ctx, a.shell, "-c", command)
	cmd.Dir = string(workDir)

	var combined bytes.Buffer

	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	output := combined.String()

	if err != nil {
		return output, toolError(firstWord(command), output, err)
	}

	return output, nil
}

// toolError converts an exec failure into an *m.ExternalToolError.
func toolError(tool, output string, err error) error {
	toolErr := &m.ExternalToolError{Tool: tool, Output: output, Err: err}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}

	return toolErr
}

func firstWord(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "sh"
	}

	return fields[0]
}
