package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File permission modes for lock files and their directory.
const (
	lockDirPermissions  = 0750
	lockFilePermissions = 0644
)

// File is a Resource backed by flock(2) on an open file.
//
// The lock belongs to the open file description, so two File values
// opened on the same path exclude each other even inside one process.
// The file itself is never written; its contents are irrelevant.
type File struct {
	f    *os.File
	name string
}

// OpenFile opens (creating if needed) the lock file at path.
// The caller must Close it when the resource is no longer needed.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), lockDirPermissions); err != nil {
		return nil, fmt.Errorf("lock: creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("lock: opening %s: %w", path, err)
	}
	return &File{f: f, name: path}, nil
}

// OpenDevice opens the per-device lock file dir/<hostname>.lock.
func OpenDevice(dir, hostname string) (*File, error) {
	if hostname == "" || hostname == "." || hostname == ".." ||
		strings.ContainsAny(hostname, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, hostname)
	}
	return OpenFile(filepath.Join(dir, hostname+".lock"))
}

// TryLock takes the exclusive lock without blocking.
// Returns ErrWouldBlock if another holder has it.
func (l *File) TryLock() error {
	return tryLockFile(l.f)
}

// Unlock releases the lock. Unlocking a file that is not locked is a no-op.
func (l *File) Unlock() error {
	return unlockFile(l.f)
}

// Name returns the lock file path.
func (l *File) Name() string {
	return l.name
}

// Close closes the file, which also drops any lock still held through it.
func (l *File) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
