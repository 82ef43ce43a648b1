package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// Kind tags how a supervised run ended.
type Kind int

const (
	// KindCompleted means the child ran to completion; its exit code is
	// propagated as is.
	KindCompleted Kind = iota
	// KindExecutableNotFound means the command could not be located.
	KindExecutableNotFound
	// KindInterrupted means the run context was cancelled, usually by
	// SIGINT or SIGTERM.
	KindInterrupted
	// KindFailed covers every other spawn, relay or wait failure.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindCompleted:
		return "completed"
	case KindExecutableNotFound:
		return "executable_not_found"
	case KindInterrupted:
		return "interrupted"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the tagged result of Supervisor.Run.
type Outcome struct {
	Kind Kind
	// ExitCode is the child's own code and only meaningful for KindCompleted.
	ExitCode int
	// Err carries the underlying failure for every kind but KindCompleted.
	Err error
}

// Code maps the outcome to the supervisor's process exit status.
func (o Outcome) Code() int {
	switch o.Kind {
	case KindCompleted:
		return o.ExitCode
	case KindInterrupted:
		return 0
	default:
		return 1
	}
}

// Diagnostic renders the single line devrun prints for the outcome. Completed
// runs print nothing.
func (o Outcome) Diagnostic(m Messages) string {
	switch o.Kind {
	case KindExecutableNotFound:
		if m.NotFound != "" {
			return m.NotFound
		}
		return fmt.Sprintf("Error: %v", o.Err)
	case KindInterrupted:
		return m.Shutdown
	case KindFailed:
		if m.Failure != "" {
			return fmt.Sprintf(m.Failure, o.Err)
		}
		return fmt.Sprintf("Error: %v", o.Err)
	default:
		return ""
	}
}

func completed(code int) Outcome {
	return Outcome{Kind: KindCompleted, ExitCode: code}
}

func interrupted(err error) Outcome {
	return Outcome{Kind: KindInterrupted, Err: err}
}

func failed(err error) Outcome {
	return Outcome{Kind: KindFailed, Err: err}
}

// classifyStart converts a Start error into an outcome.
func classifyStart(ctx context.Context, err error) Outcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return interrupted(ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return interrupted(err)
	}
	if isNotFound(err) {
		return Outcome{Kind: KindExecutableNotFound, Err: err}
	}
	return failed(err)
}

func isNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Op != "chdir" {
		return errors.Is(err, fs.ErrNotExist)
	}
	return false
}
