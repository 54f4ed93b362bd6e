package lockfile

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var pollEvery = time.Second

// Take acquires an exclusive advisory lock on path, creating it if needed.
// While another process holds the lock, waiting is invoked once per poll and
// Take keeps trying until ctx is done. The returned func releases the lock
// and may be called more than once.
func Take(ctx context.Context, path string, waiting func()) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening lock %s", path)
	}

	tk := time.NewTicker(pollEvery)
	defer tk.Stop()

	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}

		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
			f.Close()
			return nil, errors.Wrapf(err, "locking %s", path)
		}

		if waiting != nil {
			waiting()
		}

		select {
		case <-tk.C:
			// ok
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		}
	}

	var released bool

	closer := func() {
		if released {
			return
		}

		released = true

		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}

	return closer, nil
}
