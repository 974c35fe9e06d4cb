package signalsim_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tomasbasham/signalsim"
)

// lineBuffer collects log output and is safe for concurrent use.
type lineBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSuffix(b.buf.String(), "\n"), "\n")
}

// Count returns the number of lines containing substr.
func (b *lineBuffer) Count(substr string) int {
	n := 0
	for _, line := range b.Lines() {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func newTestLogger() (*slog.Logger, *lineBuffer) {
	buf := &lineBuffer{}
	return slog.New(signalsim.NewLineHandler(buf, nil)), buf
}

var errDiskFull = errors.New("disk full")

// failingWriter rejects every write.
type failingWriter struct {
	attempts atomic.Int64
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.attempts.Add(1)
	return 0, errDiskFull
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
