package lock

import (
	"context"
	"fmt"
	"sync"

	upload_errors "upload-gateway/pkg/errors"
)

// MockLocker implements Locker with an in-memory map for testing.
// Write locks are exclusive; read locks are shared among readers.
type MockLocker struct {
	mu      sync.Mutex
	writers map[string]bool
	readers map[string]int
}

func NewMockLocker() *MockLocker {
	return &MockLocker{
		writers: make(map[string]bool),
		readers: make(map[string]int),
	}
}

func (m *MockLocker) Acquire(ctx context.Context, resourceKey string, op Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writers[resourceKey] {
		return fmt.Errorf("%w: %s", upload_errors.ErrResourceBusy, resourceKey)
	}
	if op == OperationWrite {
		if m.readers[resourceKey] > 0 {
			return fmt.Errorf("%w: %s", upload_errors.ErrResourceBusy, resourceKey)
		}
		m.writers[resourceKey] = true
		return nil
	}
	m.readers[resourceKey]++
	return nil
}

func (m *MockLocker) Release(ctx context.Context, resourceKey string, op Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if op == OperationWrite {
		delete(m.writers, resourceKey)
		return nil
	}
	if m.readers[resourceKey] > 0 {
		m.readers[resourceKey]--
	}
	return nil
}

// HeldKeys returns the keys currently write-locked. Test helper.
func (m *MockLocker) HeldKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for key, held := range m.writers {
		if held {
			keys = append(keys, key)
		}
	}
	return keys
}
