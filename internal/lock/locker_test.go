package lock

import (
	"context"
	"testing"

	upload_errors "upload-gateway/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLockerWriteExclusive(t *testing.T) {
	ctx := context.Background()
	locker := NewMockLocker()

	require.NoError(t, locker.Acquire(ctx, "bucket/a.txt", OperationWrite))

	err := locker.Acquire(ctx, "bucket/a.txt", OperationWrite)
	assert.ErrorIs(t, err, upload_errors.ErrResourceBusy)
	err = locker.Acquire(ctx, "bucket/a.txt", OperationRead)
	assert.ErrorIs(t, err, upload_errors.ErrResourceBusy)

	require.NoError(t, locker.Release(ctx, "bucket/a.txt", OperationWrite))
	assert.NoError(t, locker.Acquire(ctx, "bucket/a.txt", OperationWrite))
}

func TestMockLockerReadShared(t *testing.T) {
	ctx := context.Background()
	locker := NewMockLocker()

	require.NoError(t, locker.Acquire(ctx, "bucket/a.txt", OperationRead))
	require.NoError(t, locker.Acquire(ctx, "bucket/a.txt", OperationRead))

	// a writer is blocked while readers remain
	assert.ErrorIs(t, locker.Acquire(ctx, "bucket/a.txt", OperationWrite), upload_errors.ErrResourceBusy)

	require.NoError(t, locker.Release(ctx, "bucket/a.txt", OperationRead))
	assert.ErrorIs(t, locker.Acquire(ctx, "bucket/a.txt", OperationWrite), upload_errors.ErrResourceBusy)

	require.NoError(t, locker.Release(ctx, "bucket/a.txt", OperationRead))
	assert.NoError(t, locker.Acquire(ctx, "bucket/a.txt", OperationWrite))
}

func TestReleaseAll(t *testing.T) {
	ctx := context.Background()
	locker := NewMockLocker()

	held := []Held{}
	for _, key := range []string{"b/one", "b/two", "b/three"} {
		require.NoError(t, locker.Acquire(ctx, key, OperationWrite))
		held = append(held, Held{Key: key, Op: OperationWrite})
	}
	require.Len(t, locker.HeldKeys(), 3)

	ReleaseAll(ctx, locker, held, nil)
	assert.Empty(t, locker.HeldKeys())
}
