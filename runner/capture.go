package runner

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const defaultOutputTailBytes = 1 * 1024 * 1024 // 1MB kept in memory per test

// tailBuffer keeps only the last N bytes written to it so a representative
// snippet of test output can be attached to the TestResult without retaining
// the entire log in memory.
type tailBuffer struct {
	maxBytes int

	mu       sync.Mutex
	total    int64
	contents []byte
}

func newTailBuffer(maxBytes int) *tailBuffer {
	if maxBytes <= 0 {
		maxBytes = defaultOutputTailBytes
	}
	return &tailBuffer{maxBytes: maxBytes}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	b.contents = append(b.contents, p...)
	if len(b.contents) > b.maxBytes {
		b.contents = b.contents[len(b.contents)-b.maxBytes:]
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]byte, len(b.contents))
	copy(cp, b.contents)
	return cp
}

func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.contents)) < b.total
}

// Stdout redirection is a process-global resource, so installation is
// exclusive: the guard holds a package-level lock for its whole window and
// concurrent installs queue on it. That rules out one test's output bleeding
// into another's capture, at the cost of serializing the captured sections
// of concurrently running in-process tests.
var captureMu sync.Mutex

// captureGuard redirects the process's stdout and stderr into a bounded
// in-memory buffer until released.
type captureGuard struct {
	buf      *tailBuffer
	origOut  *os.File
	origErr  *os.File
	w        *os.File
	done     chan struct{}
	released bool
}

// captureStdio swaps os.Stdout and os.Stderr for a pipe feeding a tail
// buffer. Release on every exit path; the swap is not optional cleanup.
func captureStdio(maxBytes int) (*captureGuard, error) {
	captureMu.Lock()
	r, w, err := os.Pipe()
	if err != nil {
		captureMu.Unlock()
		return nil, fmt.Errorf("creating capture pipe: %w", err)
	}

	g := &captureGuard{
		buf:     newTailBuffer(maxBytes),
		origOut: os.Stdout,
		origErr: os.Stderr,
		w:       w,
		done:    make(chan struct{}),
	}
	os.Stdout = w
	os.Stderr = w

	go func() {
		_, _ = io.Copy(g.buf, r)
		_ = r.Close()
		close(g.done)
	}()
	return g, nil
}

// Release restores the original stdout/stderr, drains the pipe and returns
// everything captured. It must be called exactly once per guard.
func (g *captureGuard) Release() []byte {
	if g.released {
		return g.buf.Bytes()
	}
	g.released = true

	os.Stdout = g.origOut
	os.Stderr = g.origErr
	_ = g.w.Close()
	<-g.done
	captureMu.Unlock()
	return g.buf.Bytes()
}
