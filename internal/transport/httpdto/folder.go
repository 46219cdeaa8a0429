package httpdto

import (
	"upload-gateway/internal/services"
)

// CreateFolderRequest is used for POST /v1/folders
type CreateFolderRequest struct {
	FolderName      string   `json:"folder_name" binding:"required"`
	ProjectCode     string   `json:"project_code" binding:"required"`
	Zone            string   `json:"zone" binding:"required"`
	Uploader        string   `json:"uploader" binding:"required"`
	Tags            []string `json:"tags,omitempty"`
	DestinationGEID string   `json:"destination_geid,omitempty"`
}

func (r *CreateFolderRequest) ToService() *services.CreateFolderRequest {
	return &services.CreateFolderRequest{
		FolderName:      r.FolderName,
		ProjectCode:     r.ProjectCode,
		Zone:            r.Zone,
		Uploader:        r.Uploader,
		Tags:            r.Tags,
		DestinationGEID: r.DestinationGEID,
	}
}
