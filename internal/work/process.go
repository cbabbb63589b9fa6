package work

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
)

// waitDelay bounds how long Wait keeps draining pipes after the process group
// was killed, in case a grandchild inherited them.
const waitDelay = 2 * time.Second

// newCommand creates an exec.Cmd in its own process group. Context
// cancellation kills the whole group rather than only the direct child.
func newCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = waitDelay
	return cmd
}

// executeCommand runs cmd and returns its stdout and stderr. Both pipes are
// drained concurrently and fully before cmd.Wait, so output larger than the
// pipe buffer cannot deadlock the child. pm may be nil.
func executeCommand(cmd *exec.Cmd, pm *ProcessManager) (stdout []byte, stderr []byte, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start command: %w", err)
	}
	if pm != nil {
		pm.Track(cmd)
		defer pm.Untrack(cmd)
	}

	var wg sync.WaitGroup
	var stdoutBuf, stderrBuf bytes.Buffer

	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(&stdoutBuf, stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		io.Copy(&stderrBuf, stderrPipe)
	}()
	wg.Wait()

	waitErr := cmd.Wait()

	stdout = stdoutBuf.Bytes()
	stderr = stderrBuf.Bytes()

	if waitErr != nil {
		if len(stderr) > 0 {
			return stdout, stderr, fmt.Errorf("command failed: %w (stderr: %s)", waitErr, bytes.TrimSpace(stderr))
		}
		return stdout, stderr, fmt.Errorf("command failed: %w", waitErr)
	}

	return stdout, stderr, nil
}

// killProcessGroup sends SIGKILL to every process in the command's group.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return fmt.Errorf("process not started")
	}

	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process group: %w", err)
	}

	return nil
}

// ProcessManager tracks the subprocesses started by command work so they can
// all be terminated on shutdown.
//
//	pm := work.NewProcessManager()
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	go func() {
//		<-ctx.Done()
//		pm.KillAll()
//	}()
type ProcessManager struct {
	mu    sync.Mutex
	procs map[int]*exec.Cmd
}

// NewProcessManager creates a new ProcessManager.
func NewProcessManager() *ProcessManager {
	return &ProcessManager{
		procs: make(map[int]*exec.Cmd),
	}
}

// Track registers a started subprocess.
func (pm *ProcessManager) Track(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.procs[cmd.Process.Pid] = cmd
}

// Untrack removes a subprocess once it has been waited for.
func (pm *ProcessManager) Untrack(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.procs, cmd.Process.Pid)
}

// KillAll terminates the process group of every tracked subprocess.
func (pm *ProcessManager) KillAll() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var result *multierror.Error
	for pid, cmd := range pm.procs {
		if err := killProcessGroup(cmd); err != nil {
			result = multierror.Append(result, fmt.Errorf("process %d: %w", pid, err))
		}
	}
	return result.ErrorOrNil()
}

// Count returns the number of currently tracked processes.
func (pm *ProcessManager) Count() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.procs)
}
