package services

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"upload-gateway/internal/domain/job"
	"upload-gateway/internal/lock"
	"upload-gateway/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type finalizeFixture struct {
	finalizer *Finalizer
	store     *memJobStore
	locker    *lock.MockLocker
	meta      *fakeMeta
	objects   *fakeObjects
	queue     *fakeQueue
	sink      *fakeSink
	tempDir   string
}

func newFinalizeFixture(t *testing.T) *finalizeFixture {
	t.Helper()
	f := &finalizeFixture{
		store:   newMemJobStore(),
		locker:  lock.NewMockLocker(),
		meta:    newFakeMeta(),
		objects: &fakeObjects{reads: os.ReadFile},
		queue:   &fakeQueue{},
		sink:    &fakeSink{},
		tempDir: t.TempDir(),
	}
	f.finalizer = NewFinalizer(
		f.locker, f.meta, f.objects, f.sink, f.queue,
		logger.Nop(), ZoneGreenroom,
		func(zone string) string { return "Greenroom" },
	)
	return f
}

// readyManager builds a job parked in CHUNK_UPLOADED, the state the
// pipeline picks up from.
func (f *finalizeFixture) readyManager(t *testing.T, filename string) *StatusManager {
	t.Helper()
	ctx := context.Background()
	mgr := NewStatusManager(f.store, "sess-1", "proj", job.ActionDataUpload, "alice")
	require.NoError(t, mgr.SetJobID(ctx, "job-1"))
	mgr.SetSource(filename)
	mgr.AddPayload(job.PayloadParentFolderGEID, "")
	_, err := mgr.Go(ctx, job.StatusPreUploaded)
	require.NoError(t, err)
	_, err = mgr.Go(ctx, job.StatusChunkUploaded)
	require.NoError(t, err)
	return mgr
}

func (f *finalizeFixture) writeChunks(t *testing.T, filename string, parts []string) []string {
	t.Helper()
	paths := make([]string, 0, len(parts))
	for i, part := range parts {
		p := filepath.Join(f.tempDir, ChunkName(filename, i+1))
		require.NoError(t, os.WriteFile(p, []byte(part), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func (f *finalizeFixture) storedStatus(t *testing.T) *job.UploadJob {
	t.Helper()
	recs, err := f.store.GetByPrefix(context.Background(), job.KeyPattern("sess-1", "job-1", job.ActionDataUpload, "proj", "alice"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0]
}

func TestFinalizeAssemblesInChunkOrder(t *testing.T) {
	f := newFinalizeFixture(t)
	mgr := f.readyManager(t, "data.txt")
	chunks := f.writeChunks(t, "data.txt", []string{"aa", "bb", "cc"})

	f.finalizer.Run(context.Background(), mgr, &FinalizeRequest{
		ProjectCode: "proj",
		Operator:    "alice",
		Filename:    "data.txt",
		TotalSize:   6,
		ChunkPaths:  chunks,
		TempDir:     f.tempDir,
	})

	assert.Equal(t, job.StatusSucceed, f.storedStatus(t).Status)
	require.Len(t, f.objects.puts, 1)
	assert.Equal(t, "aabbcc", string(f.objects.puts[0].Content))

	// chunks are consumed as they are appended
	for _, chunk := range chunks {
		_, err := os.Stat(chunk)
		assert.True(t, os.IsNotExist(err), chunk)
	}
	assert.Empty(t, f.locker.HeldKeys())
}

func TestFinalizeMissingChunkTerminates(t *testing.T) {
	f := newFinalizeFixture(t)
	mgr := f.readyManager(t, "data.txt")
	chunks := f.writeChunks(t, "data.txt", []string{"aa"})
	chunks = append(chunks, filepath.Join(f.tempDir, ChunkName("data.txt", 2)))

	f.finalizer.Run(context.Background(), mgr, &FinalizeRequest{
		ProjectCode: "proj",
		Operator:    "alice",
		Filename:    "data.txt",
		ChunkPaths:  chunks,
		TempDir:     f.tempDir,
	})

	rec := f.storedStatus(t)
	assert.Equal(t, job.StatusTerminated, rec.Status)
	assert.NotEmpty(t, rec.Payload[job.PayloadErrorMsg])
	assert.Empty(t, f.objects.puts)
	assert.Empty(t, f.locker.HeldKeys())
}

func TestFinalizeLockBusyTerminates(t *testing.T) {
	f := newFinalizeFixture(t)
	ctx := context.Background()
	mgr := f.readyManager(t, "data.txt")
	chunks := f.writeChunks(t, "data.txt", []string{"aa"})

	// the destination is held by somebody else
	require.NoError(t, f.locker.Acquire(ctx, "gr-proj/data.txt", lock.OperationWrite))

	f.finalizer.Run(ctx, mgr, &FinalizeRequest{
		ProjectCode: "proj",
		Operator:    "alice",
		Filename:    "data.txt",
		ChunkPaths:  chunks,
		TempDir:     f.tempDir,
	})

	assert.Equal(t, job.StatusTerminated, f.storedStatus(t).Status)
	assert.Empty(t, f.objects.puts)
}

func TestFinalizeMetadataFailureTerminates(t *testing.T) {
	f := newFinalizeFixture(t)
	f.meta.createFileErr = errors.New("graph service down")
	mgr := f.readyManager(t, "data.txt")
	chunks := f.writeChunks(t, "data.txt", []string{"aa"})

	f.finalizer.Run(context.Background(), mgr, &FinalizeRequest{
		ProjectCode: "proj",
		Operator:    "alice",
		Filename:    "data.txt",
		ChunkPaths:  chunks,
		TempDir:     f.tempDir,
	})

	rec := f.storedStatus(t)
	assert.Equal(t, job.StatusTerminated, rec.Status)
	assert.Contains(t, rec.Payload[job.PayloadErrorMsg], "graph service down")

	// the object was already persisted; only registration failed
	assert.Len(t, f.objects.puts, 1)
	assert.Empty(t, f.queue.events)
	assert.Empty(t, f.locker.HeldKeys())
}

func TestFinalizeZipGetsArchivePreview(t *testing.T) {
	f := newFinalizeFixture(t)
	mgr := f.readyManager(t, "bundle.zip")

	chunkPath := filepath.Join(f.tempDir, ChunkName("bundle.zip", 1))
	writeTestZip(t, chunkPath, map[string]string{"docs/readme.md": "hi"})

	f.finalizer.Run(context.Background(), mgr, &FinalizeRequest{
		ProjectCode: "proj",
		Operator:    "alice",
		Filename:    "bundle.zip",
		ChunkPaths:  []string{chunkPath},
		TempDir:     f.tempDir,
	})

	require.Equal(t, job.StatusSucceed, f.storedStatus(t).Status)
	preview, ok := f.meta.previews["geid-file-bundle.zip"]
	require.True(t, ok)
	docs, ok := preview["docs"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, docs, "readme.md")
}

func TestFinalizePublishesCompletionEvent(t *testing.T) {
	f := newFinalizeFixture(t)
	mgr := f.readyManager(t, "data.txt")
	chunks := f.writeChunks(t, "data.txt", []string{"aa"})

	f.finalizer.Run(context.Background(), mgr, &FinalizeRequest{
		ProjectCode:  "proj",
		Operator:     "alice",
		Filename:     "data.txt",
		RelativePath: "sub",
		ChunkPaths:   chunks,
		TempDir:      f.tempDir,
	})

	require.Len(t, f.queue.events, 1)
	evt := f.queue.events[0]
	assert.Equal(t, "data_uploaded", evt.EventType)
	assert.Equal(t, "s3://gr-proj/sub/data.txt", evt.Payload["input_path"])
	assert.Equal(t, "proj", evt.Payload["project"])
	assert.Equal(t, "alice", evt.Payload["uploader"])
	assert.Equal(t, "geid-file-data.txt", evt.Payload["source_geid"])

	require.Len(t, f.sink.entries, 1)
	assert.Equal(t, "Greenroom/sub/data.txt", f.sink.entries[0].Target)
	assert.Equal(t, "data_upload", f.sink.entries[0].Action)
}

func writeTestZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}
