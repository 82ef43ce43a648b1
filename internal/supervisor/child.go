package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Spec describes the command a Child runs.
type Spec struct {
	Command []string
	Dir     string
	// Env is appended to the parent environment. Nil inherits it unchanged.
	Env []string
}

// Child owns one spawned process and the read end of its merged output pipe.
type Child struct {
	ctx   context.Context
	name  string
	cmd   *exec.Cmd
	lines chan string

	mu      sync.Mutex
	readErr error

	waitDone chan struct{}
	waitErr  error
}

// Start spawns the command described by spec. The returned child is already
// running; its output must be drained through Lines.
func Start(ctx context.Context, spec Spec) (*Child, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("supervisor: command requires at least one argument")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}
	// A single *os.File for both streams makes exec hand the same descriptor
	// to fd 1 and fd 2 without any copying goroutine.
	cmd.Stdout = pw
	cmd.Stderr = pw

	c := &Child{
		ctx:      ctx,
		name:     spec.Command[0],
		cmd:      cmd,
		lines:    make(chan string),
		waitDone: make(chan struct{}),
	}
	cmd.Cancel = c.stop

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("start %s: %w", c.name, err)
	}
	// The child holds its own copy of the write end; ours must go so the
	// reader observes EOF when the child exits.
	_ = pw.Close()

	go c.readLines(pr)
	go func() {
		c.waitErr = cmd.Wait()
		close(c.waitDone)
	}()

	return c, nil
}

// PID returns the operating system process id of the child.
func (c *Child) PID() int {
	if c.cmd.Process == nil {
		return -1
	}
	return c.cmd.Process.Pid
}

// Lines returns the merged output of the child, one line per element in
// arrival order. Each element keeps its line terminator, so a final line
// without one is delivered as is. The channel is closed at end of output or
// when the start context is cancelled. It can only be consumed once.
func (c *Child) Lines() <-chan string {
	return c.lines
}

// Err reports a read failure on the output pipe. It is meaningful once the
// Lines channel has been closed.
func (c *Child) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Done is closed once the child has been reaped.
func (c *Child) Done() <-chan struct{} {
	return c.waitDone
}

// Wait blocks until the child exits or ctx is cancelled and returns the
// child's exit code. A child terminated by a signal reports 128 plus the
// signal number.
func (c *Child) Wait(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return -1, ctx.Err()
	case <-c.waitDone:
	}
	if err := c.Err(); err != nil {
		return -1, fmt.Errorf("read %s output: %w", c.name, err)
	}
	return exitCode(c.waitErr)
}

// Stop asks the child to terminate without waiting for it. It is safe to
// call after the child has exited.
func (c *Child) Stop() error {
	select {
	case <-c.waitDone:
		return nil
	default:
	}
	if err := c.stop(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop %s: %w", c.name, err)
	}
	return nil
}

func (c *Child) readLines(r io.ReadCloser) {
	defer close(c.lines)
	defer r.Close()

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			select {
			case c.lines <- line:
			case <-c.ctx.Done():
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.mu.Lock()
				c.readErr = err
				c.mu.Unlock()
			}
			return
		}
	}
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code, ok := signalExitCode(exitErr.ProcessState); ok {
			return code, nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
