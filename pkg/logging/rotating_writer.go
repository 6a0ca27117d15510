package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// DefaultBackups is the number of rotated files kept next to a log
const DefaultBackups = 5

// RotatingWriter appends to a log file and shifts it to numbered backups
// (audit.log.1, audit.log.2, ...) once it reaches maxSize bytes. The oldest
// backup beyond the configured count is removed.
type RotatingWriter struct {
	mu      sync.Mutex
	fs      afero.Fs
	f       afero.File
	path    string
	maxSize int64
	backups int
	size    int64
}

// NewRotatingWriter opens path on fs for appending
func NewRotatingWriter(fs afero.Fs, path string, maxSize int64, backups int) (*RotatingWriter, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if backups < 0 {
		backups = 0
	}
	w := &RotatingWriter{
		fs:      fs,
		path:    path,
		maxSize: maxSize,
		backups: backups,
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.openLocked(); err != nil {
		return nil, err
	}
	if w.size >= w.maxSize {
		if err := w.rotateLocked(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Write implements io.Writer
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current file. Later writes fail with os.ErrClosed.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *RotatingWriter) openLocked() error {
	if err := w.fs.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.f = f
	w.size = info.Size()
	return nil
}

func (w *RotatingWriter) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}

// rotateLocked shifts path.N-1 to path.N down to path to path.1 and opens
// a fresh file. With no backups the current file is truncated.
func (w *RotatingWriter) rotateLocked() error {
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}

	if w.backups == 0 {
		if err := w.fs.Remove(w.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing log file: %w", err)
		}
		return w.openLocked()
	}

	// Missing backups are expected until the log has rotated often enough
	_ = w.fs.Remove(w.backupPath(w.backups))
	for n := w.backups - 1; n >= 1; n-- {
		_ = w.fs.Rename(w.backupPath(n), w.backupPath(n+1))
	}
	if err := w.fs.Rename(w.path, w.backupPath(1)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotating log file: %w", err)
	}

	return w.openLocked()
}
