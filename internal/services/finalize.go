package services

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"upload-gateway/internal/audit"
	"upload-gateway/internal/domain/job"
	"upload-gateway/internal/events"
	"upload-gateway/internal/lock"
	"upload-gateway/internal/metadata"
	"upload-gateway/internal/storage"
	"upload-gateway/pkg/logger"
)

// FinalizeRequest carries everything the pipeline needs to assemble and
// register one finished upload.
type FinalizeRequest struct {
	ProjectCode     string
	Operator        string
	Filename        string
	RelativePath    string
	TotalSize       int64
	Tags            []string
	DcmID           string
	ProcessPipeline string
	FromParents     []string
	UploadMessage   string
	ChunkPaths      []string
	TempDir         string
}

// Finalizer runs the post-upload pipeline: merge chunks, persist the
// object, register metadata, log, publish, and advance the job to
// SUCCEED. It never reports errors to a caller; failures are recorded
// on the job and the job is terminated.
type Finalizer struct {
	locker    lock.Locker
	meta      metadata.API
	objects   ObjectStore
	audit     audit.Sink
	queue     events.Queue
	log       *logger.Logger
	zone      string
	zoneLabel func(zone string) string
}

func NewFinalizer(
	locker lock.Locker,
	meta metadata.API,
	objects ObjectStore,
	auditSink audit.Sink,
	queue events.Queue,
	log *logger.Logger,
	zone string,
	zoneLabel func(zone string) string,
) *Finalizer {
	return &Finalizer{
		locker:    locker,
		meta:      meta,
		objects:   objects,
		audit:     auditSink,
		queue:     queue,
		log:       log,
		zone:      zone,
		zoneLabel: zoneLabel,
	}
}

// Run executes the pipeline for one job. The destination lock is
// released on every path out of this function.
func (f *Finalizer) Run(ctx context.Context, mgr *StatusManager, req *FinalizeRequest) {
	bucket := BucketName(f.zone, req.ProjectCode)
	objectPath := path.Join(req.RelativePath, req.Filename)
	resourceKey := path.Join(bucket, objectPath)

	if err := f.locker.Acquire(ctx, resourceKey, lock.OperationWrite); err != nil {
		f.terminate(ctx, mgr, err)
		return
	}
	defer func() {
		if err := f.locker.Release(ctx, resourceKey, lock.OperationWrite); err != nil {
			f.log.Errorf("failed to release lock %s: %s", resourceKey, err)
		}
	}()

	merged := filepath.Join(req.TempDir, req.Filename)
	if err := assembleChunks(merged, req.ChunkPaths); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.log.Warnf("chunk assembly for %s: folder %s is already empty: %s", req.Filename, req.TempDir, err)
		} else {
			f.log.Errorf("chunk assembly for %s failed: %s", req.Filename, err)
		}
		f.terminate(ctx, mgr, err)
		return
	}

	versionID, err := f.objects.PutFile(ctx, bucket, objectPath, merged)
	if err != nil {
		f.log.Errorf("object upload %s failed: %s", resourceKey, err)
		f.terminate(ctx, mgr, err)
		return
	}

	parentGEID, _ := mgr.Record().Payload[job.PayloadParentFolderGEID].(string)
	entity, err := f.meta.CreateFileEntity(ctx, &metadata.FileEntityRequest{
		Uploader:         req.Operator,
		FileName:         req.Filename,
		Path:             req.RelativePath,
		FileSize:         req.TotalSize,
		Description:      "Raw file in " + f.zone,
		Namespace:        f.zone,
		ProjectCode:      req.ProjectCode,
		Labels:           req.Tags,
		Bucket:           bucket,
		ObjectPath:       objectPath,
		VersionID:        versionID,
		Operator:         req.Operator,
		ParentFolderGEID: parentGEID,
		ProcessPipeline:  req.ProcessPipeline,
		ParentQuery:      req.FromParents,
	})
	if err != nil {
		f.log.Errorf("metadata registration for %s failed: %s", resourceKey, err)
		f.terminate(ctx, mgr, err)
		return
	}

	// best effort, never fails the pipeline
	if strings.EqualFold(filepath.Ext(merged), ".zip") {
		if preview, perr := ArchivePreview(merged); perr != nil {
			f.log.Warnf("archive preview for %s failed: %s", entity.GlobalEntityID, perr)
		} else if perr := f.meta.SaveArchivePreview(ctx, entity.GlobalEntityID, preview); perr != nil {
			f.log.Warnf("saving archive preview for %s failed: %s", entity.GlobalEntityID, perr)
		}
	}

	target := f.zoneLabel(f.zone) + "/" + objectPath
	err = f.audit.Append(ctx, audit.Entry{
		Action:      job.ActionDataUpload,
		Operator:    req.Operator,
		Target:      target,
		Outcome:     target,
		Resource:    "file",
		DisplayName: req.Filename,
		ProjectCode: req.ProjectCode,
		Extra:       map[string]any{"upload_message": req.UploadMessage},
	})
	if err != nil {
		f.log.Errorf("audit log for %s failed: %s", resourceKey, err)
		f.terminate(ctx, mgr, err)
		return
	}

	err = f.queue.Publish(ctx, events.EventDataUploaded, map[string]any{
		"input_path":  storage.Locator(bucket, objectPath),
		"project":     req.ProjectCode,
		"dcm_id":      req.DcmID,
		"uploader":    req.Operator,
		"source_geid": entity.GlobalEntityID,
	})
	if err != nil {
		f.log.Errorf("event publish for %s failed: %s", resourceKey, err)
		f.terminate(ctx, mgr, err)
		return
	}

	if _, err := mgr.Go(ctx, job.StatusFinalized); err != nil {
		f.terminate(ctx, mgr, err)
		return
	}

	if err := os.RemoveAll(req.TempDir); err != nil {
		f.log.Warnf("temp dir cleanup %s failed: %s", req.TempDir, err)
	}

	mgr.AddPayload(job.PayloadSourceGEID, entity.GlobalEntityID)
	if _, err := mgr.Go(ctx, job.StatusSucceed); err != nil {
		f.log.Errorf("failed to mark job %s as succeeded: %s", mgr.Record().JobID, err)
		return
	}
	f.log.Infof("upload job done: %s", resourceKey)
}

// terminate records the failure on the job and moves it to TERMINATED.
func (f *Finalizer) terminate(ctx context.Context, mgr *StatusManager, cause error) {
	mgr.AddPayload(job.PayloadErrorMsg, cause.Error())
	if _, err := mgr.Go(ctx, job.StatusTerminated); err != nil {
		f.log.Errorf("failed to terminate job %s: %s", mgr.Record().JobID, err)
	}
}

// assembleChunks appends chunks 1..N in order into dest, deleting each
// chunk file once consumed. A missing chunk fails the whole assembly.
func assembleChunks(dest string, chunkPaths []string) error {
	out, err := os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	for _, chunkPath := range chunkPaths {
		if err := appendChunk(out, chunkPath); err != nil {
			return err
		}
		if err := os.Remove(chunkPath); err != nil {
			return err
		}
	}
	return nil
}

func appendChunk(out *os.File, chunkPath string) error {
	in, err := os.Open(chunkPath)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(out, in)
	return err
}
