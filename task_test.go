package central

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func TestTaskAdapters(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")

	var called bool
	require.NoError(t, runTask(ctx, TaskFunc(func() { called = true })))
	require.True(t, called)

	var seen any
	require.NoError(t, runTask(ctx, TaskContext(func(ctx context.Context) { seen = ctx.Value(ctxKey{}) })))
	require.Equal(t, "v", seen)
}

func TestRunTask(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr error
		wantMsg string
	}{
		{
			name: "success",
			task: func(context.Context) error { return nil },
		},
		{
			name:    "returned error is passed through",
			task:    func(context.Context) error { return errBoom },
			wantErr: errBoom,
		},
		{
			name:    "panic with value",
			task:    func(context.Context) error { panic("kaboom") },
			wantErr: ErrTaskPanicked,
			wantMsg: "kaboom",
		},
		{
			name:    "panic with error",
			task:    func(context.Context) error { panic(fmt.Errorf("wrapped: %w", errBoom)) },
			wantErr: ErrTaskPanicked,
			wantMsg: "wrapped: boom",
		},
		{
			name:    "context error",
			task:    func(ctx context.Context) error { return ctx.Err() },
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			if errors.Is(tt.wantErr, context.Canceled) {
				cancel()
			}
			defer cancel()

			err := runTask(ctx, tt.task)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				require.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}
