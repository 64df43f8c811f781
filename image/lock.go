package image

import (
	"context"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

const lockRetry = 50 * time.Millisecond

// LockPath is the sidecar file locked on behalf of the image at path. The
// image itself is never locked so that locking cannot create it. Taking a
// lock creates the sidecar, and it is left in place afterwards: removing
// it would let two processes hold locks on different files.
func LockPath(path string) string {
	return path + ".lock"
}

// Lock takes the exclusive lock of the image at path, waiting until it is
// free or ctx is done. Commands that create or may modify an image hold it.
// A missing image directory is ErrNotFound.
func Lock(ctx context.Context, path string) (func() error, error) {
	l := flock.NewFlock(LockPath(path))
	ok, err := l.TryLockContext(ctx, lockRetry)
	return unlocker(path, l, ok, err)
}

// RLock takes the lock of the image at path in shared mode.
func RLock(ctx context.Context, path string) (func() error, error) {
	l := flock.NewFlock(LockPath(path))
	ok, err := l.TryRLockContext(ctx, lockRetry)
	return unlocker(path, l, ok, err)
}

func unlocker(path string, l *flock.Flock, ok bool, err error) (func() error, error) {
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, verifyErr(path, ErrNotFound, errors.Wrapf(err, "lock %q", l.Path()))
		}
		return nil, errors.Wrapf(err, "lock %q", l.Path())
	}
	if !ok {
		return nil, errors.Errorf("lock %q: not acquired", l.Path())
	}
	return l.Unlock, nil
}
