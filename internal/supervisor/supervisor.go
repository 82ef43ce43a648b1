package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Paintersrp/devrun/internal/metrics"
)

// Messages holds the plain-text lines the supervisor prints on its own
// behalf. Failure must contain one %v verb for the underlying error.
type Messages struct {
	Banner   string
	Shutdown string
	NotFound string
	Failure  string
}

// Supervisor runs one child command and relays its output.
type Supervisor struct {
	Spec     Spec
	Messages Messages
	// Stdout receives relayed child output and the supervisor's own lines.
	// Nil selects os.Stdout.
	Stdout io.Writer
	Logger *zap.SugaredLogger
}

// Run spawns the child, relays its merged output line by line as it arrives,
// waits for it to exit and reports the result. Cancelling ctx at any point
// stops relaying immediately and yields KindInterrupted.
func (s *Supervisor) Run(ctx context.Context) Outcome {
	started := time.Now()
	log := s.logger()

	s.println(s.Messages.Banner)
	outcome := s.run(ctx, log)
	if msg := outcome.Diagnostic(s.Messages); msg != "" {
		s.println(msg)
	}

	metrics.RecordRun(outcome.Kind.String(), outcome.Code(), time.Since(started))
	log.Debugw("run finished",
		"outcome", outcome.Kind.String(),
		"exit_code", outcome.Code(),
		"duration", time.Since(started),
		"error", outcome.Err,
	)
	return outcome
}

func (s *Supervisor) run(ctx context.Context, log *zap.SugaredLogger) Outcome {
	log.Debugw("starting child", "command", strings.Join(s.Spec.Command, " "), "dir", s.Spec.Dir)
	child, err := Start(ctx, s.Spec)
	if err != nil {
		outcome := classifyStart(ctx, err)
		log.Debugw("start failed", "outcome", outcome.Kind.String(), "error", err)
		return outcome
	}
	log.Debugw("child started", "pid", child.PID())
	metrics.SetChildRunning(true)
	defer metrics.SetChildRunning(false)

	out := s.stdout()
	lines := child.Lines()
relay:
	for {
		if err := ctx.Err(); err != nil {
			return s.abandon(child, log, interrupted(err))
		}
		select {
		case <-ctx.Done():
			return s.abandon(child, log, interrupted(ctx.Err()))
		case line, ok := <-lines:
			if !ok {
				break relay
			}
			if _, err := io.WriteString(out, line); err != nil {
				return s.abandon(child, log, failed(fmt.Errorf("relay output: %w", err)))
			}
			metrics.AddLinesRelayed(1)
		}
	}

	// A cancelled context also closes Lines early.
	if err := ctx.Err(); err != nil {
		return s.abandon(child, log, interrupted(err))
	}

	code, err := child.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return s.abandon(child, log, interrupted(ctxErr))
	}
	if err != nil {
		return s.abandon(child, log, failed(err))
	}
	log.Debugw("child exited", "pid", child.PID(), "exit_code", code)
	return completed(code)
}

func (s *Supervisor) abandon(child *Child, log *zap.SugaredLogger, outcome Outcome) Outcome {
	if err := child.Stop(); err != nil {
		log.Warnw("stop child", "pid", child.PID(), "error", err)
	}
	return outcome
}

func (s *Supervisor) println(line string) {
	if line == "" {
		return
	}
	fmt.Fprintln(s.stdout(), line)
}

func (s *Supervisor) stdout() io.Writer {
	if s.Stdout == nil {
		return os.Stdout
	}
	return s.Stdout
}

func (s *Supervisor) logger() *zap.SugaredLogger {
	if s.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.Logger
}
