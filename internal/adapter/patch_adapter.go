package adapter

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// PatchAdapter applies normal-format diffs to files.
type PatchAdapter interface {
	// Apply writes the result of patching input with diff to output. input is
	// never modified.
	Apply(ctx context.Context, input, output m.Path, diff string) error
}

// LocalPatchAdapter shells out to the system `patch` utility.
type LocalPatchAdapter struct {
	binary string
}

// NewLocalPatchAdapter constructs a LocalPatchAdapter. An empty binary selects `patch`.
func NewLocalPatchAdapter(binary string) *LocalPatchAdapter {
	if strings.TrimSpace(binary) == "" {
		binary = "patch"
	}

	return &LocalPatchAdapter{binary: binary}
}

// Apply runs `patch --normal -o output input` with the diff on stdin.
func (a *LocalPatchAdapter) Apply(ctx context.Context, input, output m.Path, diff string) error {
	// #nosec G204 - binary comes from configuration, paths are generated
	cmd := exec.CommandContext(ctx, a.binary, "--normal", "-o", string(output), string(input))
	cmd.Stdin = strings.NewReader(diff + "\n")

	var combined bytes.Buffer

	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if err := cmd.Run(); err != nil {
		return toolError(a.binary, combined.String(), err)
	}

	return nil
}
