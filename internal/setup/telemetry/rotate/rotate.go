// Package rotate caps log files to their most recent lines.
package rotate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer appends to a log file and compacts it to the newest MaxLines lines
// once twice that many lines have been written since the last compaction.
type Writer struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	maxLines int
	tail     *ring
	written  int
}

// Open opens path for appending. A maxLines of zero or less disables compaction.
func Open(path string, maxLines int) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	w := &Writer{path: path, file: file, maxLines: maxLines}
	if maxLines > 0 {
		w.tail = newRing(maxLines)
	}
	return w, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil || w.tail == nil {
		return n, err
	}

	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		w.tail.push(string(line))
		w.written++
	}

	if w.written >= 2*w.maxLines {
		if err := w.compact(); err != nil {
			return n, fmt.Errorf("failed to compact log file: %w", err)
		}
		w.written = w.tail.len()
	}

	return n, nil
}

// Sync flushes the file.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

// Close closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// compact replaces the file with the buffered tail through a temporary file.
func (w *Writer) compact() error {
	var buf bytes.Buffer
	for _, line := range w.tail.lines() {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	temp, err := os.CreateTemp(filepath.Dir(w.path), ".rotate-*")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return err
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	_ = w.file.Close()
	if err := os.Rename(tempPath, w.path); err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = file
	return nil
}

// ring keeps the newest lines in insertion order.
type ring struct {
	buf  []string
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]string, capacity)}
}

func (r *ring) push(line string) {
	r.buf[r.next] = line
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

func (r *ring) lines() []string {
	if !r.full {
		return append([]string(nil), r.buf[:r.next]...)
	}
	out := make([]string, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
