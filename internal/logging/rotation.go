package logging

import (
	"fmt"
	"os"
	"sync"
)

// RotationConfig controls size-based log rotation.
type RotationConfig struct {
	// MaxSizeBytes is the size at which the current log file is rotated.
	// Zero disables rotation.
	MaxSizeBytes int64
	// MaxBackups is the number of rotated files to keep (file.1 .. file.N).
	MaxBackups int
}

// DefaultRotationConfig returns rotation settings of 10 MiB per file with
// five backups retained.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSizeBytes: 10 * 1024 * 1024,
		MaxBackups:   5,
	}
}

// RotatingWriter is an io.WriteCloser that rotates the underlying file when
// it reaches a configured size. Backups are kept as numbered siblings
// (file.1 is the most recent). Safe for concurrent use.
type RotatingWriter struct {
	mu     sync.Mutex
	path   string
	cfg    RotationConfig
	file   *os.File
	size   int64
	closed bool
}

// NewRotatingWriter opens (or creates) the log file at path for appending.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.openFile(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) openFile() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("logging: stat log file: %w", err)
	}

	w.file = f
	w.size = info.Size()
	return nil
}

// Write appends p to the log file, rotating first if the write would push
// the file past the configured size limit.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, os.ErrClosed
	}

	if w.cfg.MaxSizeBytes > 0 && w.size+int64(len(p)) > w.cfg.MaxSizeBytes && w.size > 0 {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate closes the current file, shifts backups up by one, and reopens a
// fresh file at the original path. Caller must hold w.mu.
func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("logging: close for rotation: %w", err)
	}

	// Shift file.N-1 -> file.N, dropping the oldest.
	for i := w.cfg.MaxBackups; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", w.path, i)
		if i == w.cfg.MaxBackups {
			os.Remove(src)
			continue
		}
		dst := fmt.Sprintf("%s.%d", w.path, i+1)
		if _, err := os.Stat(src); err == nil {
			os.Rename(src, dst)
		}
	}
	if w.cfg.MaxBackups > 0 {
		if err := os.Rename(w.path, w.path+".1"); err != nil {
			return fmt.Errorf("logging: rename for rotation: %w", err)
		}
	} else {
		os.Remove(w.path)
	}

	return w.openFile()
}

// Sync flushes the current file to disk.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// CurrentSize returns the size of the active log file in bytes.
func (w *RotatingWriter) CurrentSize() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Close closes the underlying file. Subsequent writes fail.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
