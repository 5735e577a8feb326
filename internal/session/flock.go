package session

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// FileLock provides cross-process mutual exclusion using flock(2). Each
// Lock opens its own file description, so goroutines in one process exclude
// each other as well.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a FileLock on dir/name. The file is created on first
// use and never removed.
func NewFileLock(dir, name string) *FileLock {
	return &FileLock{path: filepath.Join(dir, name)}
}

// Lock acquires an exclusive lock, blocking until available.
func (fl *FileLock) Lock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return fmt.Errorf("flock: %w", err)
	}
	fl.file = f
	return nil
}

// TryLock attempts to acquire the lock without blocking. It returns false if
// another holder has it.
func (fl *FileLock) TryLock() (bool, error) {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}
	fl.file = f
	return true, nil
}

// Unlock releases the lock and closes the lock file.
func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := fl.file.Close()
	fl.file = nil
	return err
}
