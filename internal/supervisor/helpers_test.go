package supervisor

import (
	"bytes"
	stdruntime "runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

var testMessages = Messages{
	Banner:   "Starting Terminal Portfolio Development Server...",
	Shutdown: "\nShutting down development server...",
	NotFound: "Error: npm not found. Make sure Node.js is installed.",
	Failure:  "Error starting development server: %v",
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("supervisor tests rely on /bin/sh")
	}
}

func shell(script string) Spec {
	return Spec{Command: []string{"/bin/sh", "-c", script}}
}

type timedWrite struct {
	at   time.Time
	data string
}

// recorder is a goroutine-safe writer that timestamps every write and lets
// tests block until some output has appeared.
type recorder struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes []timedWrite
	notify chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 1)}
}

func (r *recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	r.writes = append(r.writes, timedWrite{at: time.Now(), data: string(p)})
	n, err := r.buf.Write(p)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return n, err
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func (r *recorder) writeAt(t *testing.T, substr string) time.Time {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.writes {
		if strings.Contains(w.data, substr) {
			return w.at
		}
	}
	t.Fatalf("no write containing %q in %q", substr, r.buf.String())
	return time.Time{}
}

func (r *recorder) waitFor(t *testing.T, substr string, timeout time.Duration) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if strings.Contains(r.String(), substr) {
			return
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			t.Fatalf("timed out waiting for %q, got %q", substr, r.String())
		}
	}
}
