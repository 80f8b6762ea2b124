package lock

import "errors"

var (
	// ErrWouldBlock is returned by Resource.TryLock when another holder has the lock.
	ErrWouldBlock = errors.New("lock: resource is held")

	// ErrInvalidName is returned when a lock file name would escape its directory.
	ErrInvalidName = errors.New("lock: invalid name")
)
