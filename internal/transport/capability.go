package transport

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/ja2ui0/highball/internal/domain"
)

// probeTimeout bounds host reachability checks. Capability probes are
// short network-bound calls, unlike transfer operations which run
// unbounded.
const probeTimeout = 10 * time.Second

// CapabilityChecker verifies that a resolved route can actually execute
// before any operation is built.
type CapabilityChecker interface {
	// LocalBinary checks that a tool is invocable on this host.
	LocalBinary(ctx context.Context, name string) error

	// RemoteBinary checks that a tool is invocable on the remote host.
	RemoteBinary(ctx context.Context, host domain.Endpoint, name string) error

	// RemoteRuntime checks that a container runtime exists on the remote
	// host.
	RemoteRuntime(ctx context.Context, host domain.Endpoint) error
}

// ExecChecker probes capabilities by looking up and invoking real
// binaries. Remote probes go through ssh with a bounded timeout.
type ExecChecker struct {
	// SSHBinary is the remote-shell tool, "ssh" by default.
	SSHBinary string
	// Runtimes lists acceptable container runtimes, probed in order.
	Runtimes []string
}

// NewExecChecker creates an ExecChecker with defaults.
func NewExecChecker() *ExecChecker {
	return &ExecChecker{
		SSHBinary: "ssh",
		Runtimes:  []string{"docker", "podman"},
	}
}

// LocalBinary checks PATH for the tool.
func (c *ExecChecker) LocalBinary(_ context.Context, name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return &domain.CapabilityError{
			Reason: domain.ReasonMissingBinary,
			Detail: fmt.Sprintf("%s not found in PATH", name),
		}
	}
	return nil
}

// RemoteBinary runs `command -v` on the remote host.
func (c *ExecChecker) RemoteBinary(ctx context.Context, host domain.Endpoint, name string) error {
	if err := c.remoteProbe(ctx, host, "command -v "+ShellQuote(name)); err != nil {
		return &domain.CapabilityError{
			Reason: domain.ReasonMissingBinary,
			Detail: fmt.Sprintf("%s not found on %s: %v", name, host.Host, err),
		}
	}
	return nil
}

// RemoteRuntime probes configured container runtimes on the remote host.
func (c *ExecChecker) RemoteRuntime(ctx context.Context, host domain.Endpoint) error {
	for _, rt := range c.Runtimes {
		if err := c.remoteProbe(ctx, host, "command -v "+ShellQuote(rt)); err == nil {
			return nil
		}
	}
	return &domain.CapabilityError{
		Reason: domain.ReasonMissingRuntime,
		Detail: fmt.Sprintf("no container runtime (%v) on %s", c.Runtimes, host.Host),
	}
}

func (c *ExecChecker) remoteProbe(ctx context.Context, host domain.Endpoint, command string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{"-o", "BatchMode=yes"}
	if host.Port > 0 {
		args = append(args, "-p", fmt.Sprint(host.Port))
	}
	args = append(args, host.UserHost(), command)

	ssh := c.SSHBinary
	if ssh == "" {
		ssh = "ssh"
	}
	// #nosec G204 -- host and command come from resolved job config, not user input
	cmd := exec.CommandContext(ctx, ssh, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return &domain.CapabilityError{
				Reason: domain.ReasonHostUnreachable,
				Detail: fmt.Sprintf("%s did not respond within %s", host.Host, probeTimeout),
			}
		}
		return err
	}
	return nil
}

// MockChecker is a CapabilityChecker for tests.
type MockChecker struct {
	LocalBinaryFunc   func(ctx context.Context, name string) error
	RemoteBinaryFunc  func(ctx context.Context, host domain.Endpoint, name string) error
	RemoteRuntimeFunc func(ctx context.Context, host domain.Endpoint) error
}

// LocalBinary calls the mock func, defaulting to success.
func (m *MockChecker) LocalBinary(ctx context.Context, name string) error {
	if m.LocalBinaryFunc != nil {
		return m.LocalBinaryFunc(ctx, name)
	}
	return nil
}

// RemoteBinary calls the mock func, defaulting to success.
func (m *MockChecker) RemoteBinary(ctx context.Context, host domain.Endpoint, name string) error {
	if m.RemoteBinaryFunc != nil {
		return m.RemoteBinaryFunc(ctx, host, name)
	}
	return nil
}

// RemoteRuntime calls the mock func, defaulting to success.
func (m *MockChecker) RemoteRuntime(ctx context.Context, host domain.Endpoint) error {
	if m.RemoteRuntimeFunc != nil {
		return m.RemoteRuntimeFunc(ctx, host)
	}
	return nil
}

// Ensure implementations satisfy the interface.
var (
	_ CapabilityChecker = (*ExecChecker)(nil)
	_ CapabilityChecker = (*MockChecker)(nil)
)
