package runlock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/grachmannico95/branch-ingest/internal/domain"
)

// Lock guards one batch validation run per business date on this host.
type Lock struct {
	flock *flock.Flock
	path  string
}

// Path returns the lock file for date inside dir.
func Path(dir string, date time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("validate_%s.lock", date.Format("2006-01-02")))
}

// Acquire takes the lock for date without blocking. It returns
// domain.ErrRunLocked when another process holds it.
func Acquire(dir string, date time.Time) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create lock directory %s: %w", dir, err)
	}

	path := Path(dir, date)
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("could not acquire file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrRunLocked)
	}

	return &Lock{flock: fl, path: path}, nil
}

func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("could not release file lock: %w", err)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove lock file: %w", err)
	}
	return nil
}
