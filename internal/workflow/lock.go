package workflow

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"hlspack/internal/services"
)

// LockFileName is created in every job's output base while it is packaged.
const LockFileName = ".hlspack.lock"

// acquireOutputLock takes the exclusive lock on dir. The returned release
// function is safe to call once.
func acquireOutputLock(dir string) (func() error, error) {
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, PhasePrepare, "lock output", dir, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, PhasePrepare, "lock output",
			fmt.Sprintf("%s is being packaged by another job", dir), nil)
	}
	return func() error {
		if err := lock.Unlock(); err != nil {
			return err
		}
		return nil
	}, nil
}
