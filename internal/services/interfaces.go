package services

import (
	"context"
	"fmt"

	"upload-gateway/internal/domain/job"
)

// Zone names for the two logical storage partitions.
const (
	ZoneGreenroom = "greenroom"
	ZoneCore      = "core"
)

// JobStore is the durable upload-job registry consumed by the core.
// internal/redis.JobStore is the production implementation.
type JobStore interface {
	Put(ctx context.Context, rec *job.UploadJob) error
	PipelinedPut(ctx context.Context, recs []*job.UploadJob) error
	GetByPrefix(ctx context.Context, prefix string) ([]*job.UploadJob, error)
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// ObjectStore persists assembled uploads durably and reports the version
// identifier assigned by the storage system.
type ObjectStore interface {
	PutFile(ctx context.Context, bucket, objectPath, localPath string) (string, error)
}

// BucketName derives the zone-qualified storage bucket for a project.
func BucketName(zone, projectCode string) string {
	if zone == ZoneGreenroom {
		return "gr-" + projectCode
	}
	return "core-" + projectCode
}

// ConflictItem names one colliding file or folder path in an admission
// conflict response.
type ConflictItem struct {
	Name         string `json:"name,omitempty"`
	RelativePath string `json:"relative_path,omitempty"`
	DisplayPath  string `json:"display_path,omitempty"`
	Type         string `json:"type"`
}

// ConflictError reports every path collision found during admission in
// one shot, not just the first.
type ConflictError struct {
	Failed []ConflictItem
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%d path conflict(s)", len(e.Failed))
}
