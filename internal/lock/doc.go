// Package lock provides advisory, retry-bounded mutual exclusion over a
// shared resource, typically one lab device, across processes.
//
// A Manager polls Resource.TryLock instead of blocking: by default five
// attempts 100ms apart. Failing to acquire is reported as false, not as
// an error, so callers can answer "device busy, try later".
//
// Usage:
//
//	res, err := lock.OpenDevice(cfg.Locking.Dir, "board-01")
//	if err != nil {
//	    return err
//	}
//	defer res.Close()
//
//	mgr := lock.NewManager(lock.Options{})
//	ok, err := mgr.Acquire(ctx, res, 0)
//	if err != nil {
//	    return err
//	}
//	if !ok {
//	    return errDeviceBusy
//	}
//	defer mgr.Release(res)
//
// Resources are injected, so tests can substitute an in-memory handle.
package lock
