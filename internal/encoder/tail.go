package encoder

import (
	"strings"
	"sync"
)

// tailWriter keeps the last n lines written to it. ffmpeg is chatty on
// stderr; only the tail is useful in an error report.
type tailWriter struct {
	mu      sync.Mutex
	n       int
	lines   []string
	partial string
}

func newTailWriter(n int) *tailWriter {
	return &tailWriter{n: n}
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.partial + string(p)
	parts := strings.Split(s, "\n")
	t.partial = parts[len(parts)-1]
	t.lines = append(t.lines, parts[:len(parts)-1]...)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
	return len(p), nil
}

func (t *tailWriter) Tail() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := t.lines
	if t.partial != "" {
		lines = append(append([]string{}, lines...), t.partial)
	}
	if len(lines) > t.n {
		lines = lines[len(lines)-t.n:]
	}
	return strings.Join(lines, "\n")
}
