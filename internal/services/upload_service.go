package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"upload-gateway/internal/domain/folder"
	"upload-gateway/internal/domain/job"
	"upload-gateway/internal/idgen"
	"upload-gateway/internal/lock"
	"upload-gateway/internal/metadata"
	upload_errors "upload-gateway/pkg/errors"
	"upload-gateway/pkg/logger"

	"golang.org/x/text/unicode/norm"
)

const (
	JobTypeFile   = "AS_FILE"
	JobTypeFolder = "AS_FOLDER"
)

// FileUpload is one file admitted by a pre-upload call.
type FileUpload struct {
	Filename     string
	RelativePath string
	DcmID        string
}

// PreUploadRequest admits a batch of files into one upload session.
type PreUploadRequest struct {
	ProjectCode       string
	Operator          string
	JobType           string
	FolderTags        []string
	Data              []FileUpload
	UploadMessage     string
	CurrentFolderNode string
}

// ChunkRequest locates one chunk inside a job's temp area.
type ChunkRequest struct {
	ProjectCode         string
	Operator            string
	ResumableIdentifier string
	Filename            string
	RelativePath        string
	ChunkNumber         int
	TotalChunks         int
	TotalSize           int64
	DcmID               string
}

// OnSuccessRequest signals that every chunk of a job has been sent and
// hands the job to the Finalize Pipeline.
type OnSuccessRequest struct {
	ProjectCode         string
	Operator            string
	ResumableIdentifier string
	Filename            string
	RelativePath        string
	TotalChunks         int
	TotalSize           int64
	Tags                []string
	DcmID               string
	ProcessPipeline     string
	FromParents         []string
	UploadMessage       string
}

// UploadService orchestrates admission: pre-upload, chunk intake,
// finalize scheduling, and job-status queries.
type UploadService struct {
	store     JobStore
	locker    lock.Locker
	meta      metadata.API
	ids       idgen.Allocator
	folders   *FolderManager
	finalizer *Finalizer
	log       *logger.Logger
	tempBase  string
	zone      string
}

func NewUploadService(
	store JobStore,
	locker lock.Locker,
	meta metadata.API,
	ids idgen.Allocator,
	folders *FolderManager,
	finalizer *Finalizer,
	log *logger.Logger,
	tempBase, zone string,
) *UploadService {
	return &UploadService{
		store:     store,
		locker:    locker,
		meta:      meta,
		ids:       ids,
		folders:   folders,
		finalizer: finalizer,
		log:       log,
		tempBase:  tempBase,
		zone:      zone,
	}
}

// PreUpload admits a batch of files: per file it locks the target path,
// materializes the folder chain, and creates one job. Folder-creation
// records queued across the batch are persisted in two batched calls at
// the end; job records go to the store in one pipelined write. On the
// first failure every lock acquired so far is released before the error
// returns.
func (s *UploadService) PreUpload(ctx context.Context, sessionID string, req *PreUploadRequest) ([]*job.UploadJob, error) {
	if req.JobType != JobTypeFile && req.JobType != JobTypeFolder {
		return nil, fmt.Errorf("%w: invalid job type: %s", upload_errors.ErrInvalidInput, req.JobType)
	}

	project, err := s.meta.GetProject(ctx, req.ProjectCode)
	if err != nil {
		return nil, err
	}

	// browsers may send NFD-encoded names; store everything as NFC
	for i := range req.Data {
		req.Data[i].Filename = NormalizeFilename(req.Data[i].Filename, req.Data[i].DcmID)
	}

	if err := s.checkConflicts(ctx, req); err != nil {
		return nil, err
	}

	taskID, err := s.ids.AllocateID(ctx)
	if err != nil {
		return nil, err
	}

	batch := NewFolderBatch()
	staged := make([]*job.UploadJob, 0, len(req.Data))
	var held []lock.Held
	defer func() {
		// admission locks are scoped to this request; finalize takes its own
		lock.ReleaseAll(ctx, s.locker, held, s.log)
	}()

	bucket := BucketName(s.zone, req.ProjectCode)
	for _, item := range req.Data {
		resourceKey := path.Join(bucket, item.RelativePath, item.Filename)
		if err := s.locker.Acquire(ctx, resourceKey, lock.OperationWrite); err != nil {
			return nil, err
		}
		held = append(held, lock.Held{Key: resourceKey, Op: lock.OperationWrite})

		parent, err := s.folders.Materialize(ctx, batch, project, item.RelativePath, req.Operator, s.zone, req.FolderTags)
		if err != nil {
			return nil, err
		}
		parentGEID := ""
		if parent != nil {
			parentGEID = parent.GlobalEntityID
		}

		jobID, err := s.ids.AllocateID(ctx)
		if err != nil {
			return nil, err
		}

		mgr := NewStatusManager(s.store, sessionID, req.ProjectCode, job.ActionDataUpload, req.Operator)
		if err := mgr.SetJobID(ctx, jobID); err != nil {
			return nil, err
		}
		mgr.SetSource(path.Join(item.RelativePath, item.Filename))
		mgr.AddPayload(job.PayloadTaskID, taskID)
		mgr.AddPayload(job.PayloadResumableIdentifier, jobID)
		mgr.AddPayload(job.PayloadParentFolderGEID, parentGEID)

		if err := os.MkdirAll(s.TempDir(jobID), 0o755); err != nil {
			mgr.AddPayload(job.PayloadErrorMsg, err.Error())
			if _, goErr := mgr.Go(ctx, job.StatusTerminated); goErr != nil {
				s.log.Errorf("failed to terminate job %s: %s", jobID, goErr)
			}
			return nil, err
		}
		if err := mgr.Mark(job.StatusPreUploaded); err != nil {
			return nil, err
		}
		staged = append(staged, mgr.Record())
	}

	if len(batch.ToCreate) > 0 {
		if err := s.persistFolderBatch(ctx, batch); err != nil {
			return nil, err
		}
	}

	if err := s.store.PipelinedPut(ctx, staged); err != nil {
		return nil, err
	}
	return staged, nil
}

// persistFolderBatch locks every new folder's display path, then issues
// the batched node-create and relation-link calls. Folder locks are
// released whatever the outcome; created nodes are not rolled back when
// the relation link fails, the whole pre-upload call just fails.
func (s *UploadService) persistFolderBatch(ctx context.Context, batch *FolderBatch) error {
	var held []lock.Held
	defer func() {
		lock.ReleaseAll(ctx, s.locker, held, s.log)
	}()

	for _, node := range batch.ToCreate {
		key := BucketName(node.Zone, node.ProjectCode) + "/" + node.DisplayPath
		if err := s.locker.Acquire(ctx, key, lock.OperationWrite); err != nil {
			return err
		}
		held = append(held, lock.Held{Key: key, Op: lock.OperationWrite})
	}

	if err := s.meta.BatchCreateFolders(ctx, batch.ToCreate[0].Zone, batch.ToCreate); err != nil {
		return err
	}
	if err := s.meta.BatchLinkRelations(ctx, batch.Relations); err != nil {
		return err
	}
	s.log.Infof("folder batch persisted: %d node(s)", len(batch.ToCreate))
	return nil
}

// checkConflicts returns a ConflictError listing every colliding path.
func (s *UploadService) checkConflicts(ctx context.Context, req *PreUploadRequest) error {
	var failed []ConflictItem

	switch req.JobType {
	case JobTypeFile:
		for _, item := range req.Data {
			displayPath := folder.Display(item.RelativePath, item.Filename)
			exists, err := s.meta.PathExists(ctx, s.zone, req.ProjectCode, displayPath)
			if err != nil {
				return err
			}
			if exists {
				failed = append(failed, ConflictItem{
					Name:         item.Filename,
					RelativePath: item.RelativePath,
					Type:         "File",
				})
			}
		}
	case JobTypeFolder:
		seen := map[string]bool{}
		for _, item := range req.Data {
			root := req.CurrentFolderNode
			if root == "" {
				root = rootSegment(item.RelativePath)
			}
			if root == "" || seen[root] {
				continue
			}
			seen[root] = true
			exists, err := s.meta.PathExists(ctx, s.zone, req.ProjectCode, root)
			if err != nil {
				return err
			}
			if exists {
				failed = append(failed, ConflictItem{
					DisplayPath:  root,
					RelativePath: item.RelativePath,
					Type:         "Folder",
				})
			}
		}
	}

	if len(failed) > 0 {
		return &ConflictError{Failed: failed}
	}
	return nil
}

// SaveChunk writes one chunk into the job's temp area. Re-sending a
// chunk number overwrites the prior file, which keeps at-least-once
// client delivery harmless.
func (s *UploadService) SaveChunk(ctx context.Context, sessionID string, req *ChunkRequest, data io.Reader) error {
	filename := NormalizeFilename(req.Filename, req.DcmID)
	dest := filepath.Join(s.TempDir(req.ResumableIdentifier), ChunkName(filename, req.ChunkNumber))

	if err := writeChunk(dest, data); err != nil {
		mgr, loadErr := LoadStatusManager(ctx, s.store, sessionID, req.ResumableIdentifier, req.ProjectCode, job.ActionDataUpload, req.Operator)
		if loadErr == nil {
			mgr.AddPayload(job.PayloadErrorMsg, err.Error())
			if _, goErr := mgr.Go(ctx, job.StatusTerminated); goErr != nil {
				s.log.Errorf("failed to terminate job %s: %s", req.ResumableIdentifier, goErr)
			}
		}
		return err
	}
	return nil
}

// OnSuccess moves the job to CHUNK_UPLOADED synchronously and schedules
// the Finalize Pipeline as a detached background task. The returned
// record reflects CHUNK_UPLOADED; later transitions surface through
// job-status reads.
func (s *UploadService) OnSuccess(ctx context.Context, sessionID string, req *OnSuccessRequest) (*job.UploadJob, error) {
	filename := NormalizeFilename(req.Filename, req.DcmID)
	tempDir := s.TempDir(req.ResumableIdentifier)

	mgr, err := LoadStatusManager(ctx, s.store, sessionID, req.ResumableIdentifier, req.ProjectCode, job.ActionDataUpload, req.Operator)
	if err != nil {
		return nil, err
	}

	chunkPaths := make([]string, 0, req.TotalChunks)
	for i := 1; i <= req.TotalChunks; i++ {
		chunkPaths = append(chunkPaths, filepath.Join(tempDir, ChunkName(filename, i)))
	}

	if _, err := mgr.Go(ctx, job.StatusChunkUploaded); err != nil {
		return nil, err
	}
	// the pipeline keeps mutating the manager's record; the caller gets
	// its own copy
	rec := mgr.Record().Clone()

	// detached: the pipeline runs to completion regardless of this request
	go s.finalizer.Run(context.Background(), mgr, &FinalizeRequest{
		ProjectCode:     req.ProjectCode,
		Operator:        req.Operator,
		Filename:        filename,
		RelativePath:    req.RelativePath,
		TotalSize:       req.TotalSize,
		Tags:            req.Tags,
		DcmID:           req.DcmID,
		ProcessPipeline: req.ProcessPipeline,
		FromParents:     req.FromParents,
		UploadMessage:   req.UploadMessage,
		ChunkPaths:      chunkPaths,
		TempDir:         tempDir,
	})

	return rec, nil
}

// Status returns every job of the session for the project (and operator,
// when given). Reads always succeed; failed jobs surface as TERMINATED.
func (s *UploadService) Status(ctx context.Context, sessionID, projectCode, operator string) ([]*job.UploadJob, error) {
	prefix := job.KeyPattern(sessionID, "*", job.ActionDataUpload, projectCode, operator)
	return s.store.GetByPrefix(ctx, prefix)
}

// ClearSession deletes every data-upload job record of the session.
func (s *UploadService) ClearSession(ctx context.Context, sessionID string) error {
	prefix := job.KeyPattern(sessionID, "*", job.ActionDataUpload, "", "")
	return s.store.DeleteByPrefix(ctx, prefix)
}

// TempDir is the per-job chunk staging area.
func (s *UploadService) TempDir(resumableIdentifier string) string {
	return filepath.Join(s.tempBase, resumableIdentifier)
}

// ChunkName names chunk files inside the temp area.
func ChunkName(filename string, chunkNumber int) string {
	return fmt.Sprintf("%s_part_%03d", filename, chunkNumber)
}

// NormalizeFilename folds the name to NFC and applies the dcm prefix
// convention when a real dcm id is present.
func NormalizeFilename(filename, dcmID string) string {
	name := norm.NFC.String(filename)
	if dcmID != "" && dcmID != "undefined" {
		return dcmID + "_" + name
	}
	return name
}

func rootSegment(relativePath string) string {
	trimmed := strings.Trim(relativePath, "/")
	if trimmed == "" {
		return ""
	}
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

func writeChunk(dest string, data io.Reader) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, data)
	return err
}
