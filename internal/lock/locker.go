package lock

import (
	"context"

	"upload-gateway/pkg/logger"
)

// Operation is the lock mode held against a resource key.
type Operation string

const (
	OperationRead  Operation = "read"
	OperationWrite Operation = "write"
)

// Locker serializes conflicting mutations of logical resource paths.
// Acquire fails with upload_errors.ErrResourceBusy when the key is held
// in a conflicting mode. Locks carry no lease: a holder that crashes
// without releasing blocks that resource until an operator intervenes.
type Locker interface {
	Acquire(ctx context.Context, resourceKey string, op Operation) error
	Release(ctx context.Context, resourceKey string, op Operation) error
}

// Held records one acquired lock so a failed multi-resource critical
// section can unwind exactly the locks it took, in order.
type Held struct {
	Key string
	Op  Operation
}

// ReleaseAll releases every tracked lock, best effort. Release failures
// are logged and do not stop the unwind.
func ReleaseAll(ctx context.Context, locker Locker, held []Held, log *logger.Logger) {
	for _, h := range held {
		if err := locker.Release(ctx, h.Key, h.Op); err != nil && log != nil {
			log.Errorf("failed to release lock %s: %s", h.Key, err)
		}
	}
}
