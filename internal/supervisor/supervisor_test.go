package supervisor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunRelaysLinesInOrder(t *testing.T) {
	skipOnWindows(t)

	var out bytes.Buffer
	sup := &Supervisor{
		Spec:     shell(`printf 'one\ntwo\nthree\n'`),
		Messages: testMessages,
		Stdout:   &out,
	}

	outcome := sup.Run(context.Background())
	if outcome.Kind != KindCompleted {
		t.Fatalf("expected completed outcome, got %v (%v)", outcome.Kind, outcome.Err)
	}
	if outcome.Code() != 0 {
		t.Fatalf("expected exit code 0, got %d", outcome.Code())
	}
	want := testMessages.Banner + "\none\ntwo\nthree\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n got %q\nwant %q", out.String(), want)
	}
}

func TestRunPropagatesChildExitCode(t *testing.T) {
	skipOnWindows(t)

	var out bytes.Buffer
	sup := &Supervisor{Spec: shell("echo failing; exit 7"), Messages: testMessages, Stdout: &out}

	outcome := sup.Run(context.Background())
	if outcome.Kind != KindCompleted {
		t.Fatalf("expected completed outcome, got %v (%v)", outcome.Kind, outcome.Err)
	}
	if outcome.Code() != 7 {
		t.Fatalf("expected exit code 7, got %d", outcome.Code())
	}
	if strings.Contains(out.String(), "Error") {
		t.Fatalf("completed run must not print a diagnostic: %q", out.String())
	}
}

func TestRunMergesStderrInOrder(t *testing.T) {
	skipOnWindows(t)

	var out bytes.Buffer
	sup := &Supervisor{
		Spec:     shell("echo out1; echo err1 1>&2; echo out2; echo err2 1>&2"),
		Messages: Messages{},
		Stdout:   &out,
	}

	if outcome := sup.Run(context.Background()); outcome.Code() != 0 {
		t.Fatalf("expected exit code 0, got %d (%v)", outcome.Code(), outcome.Err)
	}
	if want := "out1\nerr1\nout2\nerr2\n"; out.String() != want {
		t.Fatalf("unexpected output:\n got %q\nwant %q", out.String(), want)
	}
}

func TestRunRelaysLinesVerbatim(t *testing.T) {
	skipOnWindows(t)

	var out bytes.Buffer
	sup := &Supervisor{Spec: shell(`printf 'crlf\r\n  padded  \nno newline'`), Stdout: &out}

	if outcome := sup.Run(context.Background()); outcome.Code() != 0 {
		t.Fatalf("expected exit code 0, got %d (%v)", outcome.Code(), outcome.Err)
	}
	if want := "crlf\r\n  padded  \nno newline"; out.String() != want {
		t.Fatalf("unexpected output:\n got %q\nwant %q", out.String(), want)
	}
}

func TestRunReportsMissingExecutable(t *testing.T) {
	for _, command := range []string{"devrun-test-missing-executable", "/nonexistent/devrun/npm"} {
		t.Run(command, func(t *testing.T) {
			var out bytes.Buffer
			sup := &Supervisor{
				Spec:     Spec{Command: []string{command, "run", "dev"}},
				Messages: testMessages,
				Stdout:   &out,
			}

			outcome := sup.Run(context.Background())
			if outcome.Kind != KindExecutableNotFound {
				t.Fatalf("expected executable not found, got %v (%v)", outcome.Kind, outcome.Err)
			}
			if outcome.Code() != 1 {
				t.Fatalf("expected exit code 1, got %d", outcome.Code())
			}
			want := testMessages.Banner + "\n" + testMessages.NotFound + "\n"
			if out.String() != want {
				t.Fatalf("unexpected output:\n got %q\nwant %q", out.String(), want)
			}
		})
	}
}

func TestRunInterruptedWhileChildRuns(t *testing.T) {
	skipOnWindows(t)

	out := newRecorder()
	sup := &Supervisor{Spec: shell("echo started; sleep 30; echo never"), Messages: testMessages, Stdout: out}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan Outcome, 1)
	go func() { done <- sup.Run(ctx) }()

	out.waitFor(t, "started\n", 5*time.Second)
	cancelled := time.Now()
	cancel()

	select {
	case outcome := <-done:
		if outcome.Kind != KindInterrupted {
			t.Fatalf("expected interrupted outcome, got %v (%v)", outcome.Kind, outcome.Err)
		}
		if outcome.Code() != 0 {
			t.Fatalf("expected exit code 0, got %d", outcome.Code())
		}
		if elapsed := time.Since(cancelled); elapsed > 2*time.Second {
			t.Fatalf("interrupt took %s", elapsed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not return after cancellation")
	}

	got := out.String()
	if !strings.HasSuffix(got, testMessages.Shutdown+"\n") {
		t.Fatalf("expected shutdown notice at end of output, got %q", got)
	}
	if strings.Contains(got, "never") {
		t.Fatalf("unexpected output after interruption: %q", got)
	}
}

func TestRunWithCancelledContext(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	sup := &Supervisor{Spec: shell("echo unreachable"), Messages: testMessages, Stdout: &out}
	outcome := sup.Run(ctx)
	if outcome.Kind != KindInterrupted || outcome.Code() != 0 {
		t.Fatalf("expected interrupted with code 0, got %v/%d", outcome.Kind, outcome.Code())
	}
	if strings.Contains(out.String(), "unreachable") {
		t.Fatalf("child should not have run: %q", out.String())
	}
}

func TestRunStreamsBeforeChildExits(t *testing.T) {
	skipOnWindows(t)

	out := newRecorder()
	sup := &Supervisor{Spec: shell("echo first; sleep 1; echo second"), Stdout: out}

	if outcome := sup.Run(context.Background()); outcome.Code() != 0 {
		t.Fatalf("expected exit code 0, got %d (%v)", outcome.Code(), outcome.Err)
	}

	first := out.writeAt(t, "first")
	second := out.writeAt(t, "second")
	if gap := second.Sub(first); gap < 500*time.Millisecond {
		t.Fatalf("expected first line to be relayed before the child slept, gap was %s", gap)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	skipOnWindows(t)

	runOnce := func() (string, int) {
		var out bytes.Buffer
		sup := &Supervisor{Spec: shell("echo a; echo b 1>&2; exit 3"), Messages: testMessages, Stdout: &out}
		code := sup.Run(context.Background()).Code()
		return out.String(), code
	}

	out1, code1 := runOnce()
	out2, code2 := runOnce()
	if out1 != out2 || code1 != code2 {
		t.Fatalf("runs differ: %q/%d vs %q/%d", out1, code1, out2, code2)
	}
	if code1 != 3 {
		t.Fatalf("expected exit code 3, got %d", code1)
	}
}

func TestRunReportsSignalledChild(t *testing.T) {
	skipOnWindows(t)

	var out bytes.Buffer
	sup := &Supervisor{Spec: shell("kill -9 $$"), Stdout: &out}
	outcome := sup.Run(context.Background())
	if outcome.Kind != KindCompleted {
		t.Fatalf("expected completed outcome, got %v (%v)", outcome.Kind, outcome.Err)
	}
	if outcome.Code() != 137 {
		t.Fatalf("expected exit code 137, got %d", outcome.Code())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("stdout closed")
}

func TestRunReportsRelayFailure(t *testing.T) {
	skipOnWindows(t)

	sup := &Supervisor{Spec: shell("echo payload; sleep 30"), Messages: testMessages, Stdout: failingWriter{}}

	done := make(chan Outcome, 1)
	go func() { done <- sup.Run(context.Background()) }()

	select {
	case outcome := <-done:
		if outcome.Kind != KindFailed {
			t.Fatalf("expected failed outcome, got %v (%v)", outcome.Kind, outcome.Err)
		}
		if outcome.Code() != 1 {
			t.Fatalf("expected exit code 1, got %d", outcome.Code())
		}
		if !strings.Contains(outcome.Err.Error(), "stdout closed") {
			t.Fatalf("expected underlying error, got %v", outcome.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not return after relay failure")
	}
}
