package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fppgen.dev/pkg/fppgen/internal/domain"
	m "fppgen.dev/pkg/fppgen/internal/model"
)

func TestWatchCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want domain.WatchArgs
	}{
		{
			name: "defaults",
			args: []string{"watch", "q.py"},
			want: domain.WatchArgs{Paths: []m.Path{"q.py"}, Clean: true, Debounce: domain.DefaultDebounce},
		},
		{
			name: "flags",
			args: []string{"watch", "--debounce", "1s", "--no-parse", "--no-clean"},
			want: domain.WatchArgs{Paths: []m.Path{}, NoParse: true, Debounce: time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, _ := useMockWorkflow(t)
			wf.On("Watch", mock.Anything, tt.want).Return(nil).Once()

			_, err := executeCommand(t, newWatchCmd(), tt.args...)
			require.NoError(t, err)
			wf.AssertExpectations(t)
		})
	}
}

func TestWatchCmd_PassesCommandContext(t *testing.T) {
	wf, _ := useMockWorkflow(t)
	wf.On("Watch", mock.MatchedBy(func(ctx context.Context) bool { return ctx != nil }), mock.Anything).
		Return(context.Canceled)

	_, err := executeCommand(t, newWatchCmd(), "watch")
	assert.ErrorIs(t, err, context.Canceled)
}
