package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ja2ui0/highball/internal/platform"
)

// commandRunner spawns one invocation and waits for it. The split from
// the engine lets tests assert on executed argv without any process.
type commandRunner interface {
	Run(ctx context.Context, inv invocation) (exitCode int, output []byte, err error)
}

// execRunner runs invocations through os/exec with priority lowering.
type execRunner struct {
	logger *slog.Logger
}

// Run executes the invocation and returns its exit code and combined
// output. A non-zero exit is not an error at this layer; err reports
// spawn failures and context cancellation only.
func (r *execRunner) Run(ctx context.Context, inv invocation) (int, []byte, error) {
	// #nosec G204 -- argv is built from planned operations, not user input
	cmd := exec.CommandContext(ctx, inv.argv[0], inv.argv[1:]...)

	if len(inv.env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range inv.env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	if inv.stdin != "" {
		cmd.Stdin = strings.NewReader(inv.stdin)
	}

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	// Interrupt first so ssh tears down the session and the remote
	// process dies with it; hard kill after the delay.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 10 * time.Second

	if err := cmd.Start(); err != nil {
		return -1, nil, err
	}

	if err := platform.LowerPriority(cmd.Process.Pid); err != nil {
		r.logger.Debug("could not lower process priority", "pid", cmd.Process.Pid, "error", err)
	}

	err := cmd.Wait()
	if err != nil {
		if ctx.Err() != nil {
			return -1, combined.Bytes(), ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), combined.Bytes(), nil
		}
		return -1, combined.Bytes(), err
	}
	return 0, combined.Bytes(), nil
}

// mockRunner records invocations and returns scripted results in tests.
type mockRunner struct {
	RunFunc func(ctx context.Context, inv invocation) (int, []byte, error)

	// Invocations stores every spawn request, in order.
	Invocations []invocation
}

func (m *mockRunner) Run(ctx context.Context, inv invocation) (int, []byte, error) {
	m.Invocations = append(m.Invocations, inv)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, inv)
	}
	return 0, nil, nil
}

var (
	_ commandRunner = (*execRunner)(nil)
	_ commandRunner = (*mockRunner)(nil)
)
