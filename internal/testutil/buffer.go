// Package testutil holds small helpers shared by the cellwarden test
// suites: a race-safe log sink and free-port allocation for the ingress
// servers the tests spin up.
package testutil

import (
	"bytes"
	"sync"
)

// ThreadSafeBuffer is an io.Writer that tests hand to slog handlers.
// Listener goroutines and the test body write and read concurrently,
// so every access takes the lock.
type ThreadSafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *ThreadSafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *ThreadSafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset discards the accumulated output.
func (b *ThreadSafeBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
