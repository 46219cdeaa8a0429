package httpdto

import (
	"upload-gateway/internal/domain/job"
	"upload-gateway/internal/services"
)

// FileUploadDTO is one entry in a pre-upload batch
type FileUploadDTO struct {
	ResumableFilename     string `json:"resumable_filename" binding:"required"`
	ResumableRelativePath string `json:"resumable_relative_path,omitempty"`
	DcmID                 string `json:"dcm_id,omitempty"`
}

// PreUploadRequest is used for POST /v1/files/jobs
type PreUploadRequest struct {
	ProjectCode       string          `json:"project_code" binding:"required"`
	Operator          string          `json:"operator" binding:"required"`
	JobType           string          `json:"job_type" binding:"required"`
	FolderTags        []string        `json:"folder_tags,omitempty"`
	Data              []FileUploadDTO `json:"data" binding:"required"`
	UploadMessage     string          `json:"upload_message,omitempty"`
	CurrentFolderNode string          `json:"current_folder_node,omitempty"`
}

func (r *PreUploadRequest) ToService() *services.PreUploadRequest {
	data := make([]services.FileUpload, 0, len(r.Data))
	for _, item := range r.Data {
		data = append(data, services.FileUpload{
			Filename:     item.ResumableFilename,
			RelativePath: item.ResumableRelativePath,
			DcmID:        item.DcmID,
		})
	}
	return &services.PreUploadRequest{
		ProjectCode:       r.ProjectCode,
		Operator:          r.Operator,
		JobType:           r.JobType,
		FolderTags:        r.FolderTags,
		Data:              data,
		UploadMessage:     r.UploadMessage,
		CurrentFolderNode: r.CurrentFolderNode,
	}
}

// ChunkForm is the non-file part of the multipart POST /v1/files/chunks
type ChunkForm struct {
	ProjectCode           string `form:"project_code" binding:"required"`
	Operator              string `form:"operator" binding:"required"`
	ResumableIdentifier   string `form:"resumable_identifier" binding:"required"`
	ResumableFilename     string `form:"resumable_filename" binding:"required"`
	ResumableRelativePath string `form:"resumable_relative_path"`
	ResumableChunkNumber  int    `form:"resumable_chunk_number" binding:"required"`
	ResumableTotalChunks  int    `form:"resumable_total_chunks"`
	ResumableTotalSize    int64  `form:"resumable_total_size"`
	DcmID                 string `form:"dcm_id"`
}

func (r *ChunkForm) ToService() *services.ChunkRequest {
	return &services.ChunkRequest{
		ProjectCode:         r.ProjectCode,
		Operator:            r.Operator,
		ResumableIdentifier: r.ResumableIdentifier,
		Filename:            r.ResumableFilename,
		RelativePath:        r.ResumableRelativePath,
		ChunkNumber:         r.ResumableChunkNumber,
		TotalChunks:         r.ResumableTotalChunks,
		TotalSize:           r.ResumableTotalSize,
		DcmID:               r.DcmID,
	}
}

// OnSuccessRequest is used for POST /v1/files
type OnSuccessRequest struct {
	ProjectCode           string   `json:"project_code" binding:"required"`
	Operator              string   `json:"operator" binding:"required"`
	ResumableIdentifier   string   `json:"resumable_identifier" binding:"required"`
	ResumableFilename     string   `json:"resumable_filename" binding:"required"`
	ResumableRelativePath string   `json:"resumable_relative_path,omitempty"`
	ResumableTotalChunks  int      `json:"resumable_total_chunks" binding:"required"`
	ResumableTotalSize    int64    `json:"resumable_total_size"`
	Tags                  []string `json:"tags,omitempty"`
	DcmID                 string   `json:"dcm_id,omitempty"`
	ProcessPipeline       string   `json:"process_pipeline,omitempty"`
	FromParents           []string `json:"from_parents,omitempty"`
	UploadMessage         string   `json:"upload_message,omitempty"`
}

func (r *OnSuccessRequest) ToService() *services.OnSuccessRequest {
	return &services.OnSuccessRequest{
		ProjectCode:         r.ProjectCode,
		Operator:            r.Operator,
		ResumableIdentifier: r.ResumableIdentifier,
		Filename:            r.ResumableFilename,
		RelativePath:        r.ResumableRelativePath,
		TotalChunks:         r.ResumableTotalChunks,
		TotalSize:           r.ResumableTotalSize,
		Tags:                r.Tags,
		DcmID:               r.DcmID,
		ProcessPipeline:     r.ProcessPipeline,
		FromParents:         r.FromParents,
		UploadMessage:       r.UploadMessage,
	}
}

// JobDTO represents an upload job in API responses
type JobDTO struct {
	SessionID       string         `json:"session_id"`
	JobID           string         `json:"job_id"`
	Source          string         `json:"source"`
	Action          string         `json:"action"`
	Status          string         `json:"status"`
	ProjectCode     string         `json:"project_code"`
	Operator        string         `json:"operator"`
	Progress        int            `json:"progress"`
	Payload         map[string]any `json:"payload"`
	UpdateTimestamp string         `json:"update_timestamp"`
}

func NewJobDTO(rec *job.UploadJob) JobDTO {
	return JobDTO{
		SessionID:       rec.SessionID,
		JobID:           rec.JobID,
		Source:          rec.Source,
		Action:          rec.Action,
		Status:          string(rec.Status),
		ProjectCode:     rec.ProjectCode,
		Operator:        rec.Operator,
		Progress:        rec.Progress,
		Payload:         rec.Payload,
		UpdateTimestamp: rec.UpdateTimestamp,
	}
}

func NewJobDTOs(recs []*job.UploadJob) []JobDTO {
	out := make([]JobDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, NewJobDTO(rec))
	}
	return out
}

// PresignResponse is returned for GET /v2/files/presigned/:bucket/*key
type PresignResponse struct {
	URL string `json:"url"`
}
