package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Lock serializes writers of the dataset, both within the process and across
// processes sharing the documents directory.
type Lock struct {
	path string
	sem  chan struct{}
	file *flock.Flock
}

func NewLock(path string) *Lock {
	return &Lock{
		path: path,
		sem:  make(chan struct{}, 1),
		file: flock.New(path),
	}
}

func (l *Lock) Path() string {
	return l.path
}

// Acquire blocks until the lock is held or ctx is done. The returned function
// releases it.
func (l *Lock) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire merge lock: %w", ctx.Err())
	}

	err = os.MkdirAll(filepath.Dir(l.path), 0777)
	if err != nil {
		<-l.sem
		return nil, fmt.Errorf("acquire merge lock: %w", err)
	}
	ok, err := l.file.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		<-l.sem
		return nil, fmt.Errorf("acquire merge lock: %w", err)
	}
	if !ok {
		<-l.sem
		return nil, fmt.Errorf("acquire merge lock: %s is held by another process", l.path)
	}

	return func() {
		l.file.Unlock()
		<-l.sem
	}, nil
}
