package services

import (
	"context"
	"fmt"
	"regexp"

	"upload-gateway/internal/domain/folder"
	"upload-gateway/internal/idgen"
	"upload-gateway/internal/lock"
	"upload-gateway/internal/metadata"
	upload_errors "upload-gateway/pkg/errors"
	"upload-gateway/pkg/logger"
)

var invalidFolderChars = regexp.MustCompile(`[\\/:?*<>|"']`)

// CreateFolderRequest creates one folder, at project root or under an
// existing destination folder.
type CreateFolderRequest struct {
	FolderName      string
	ProjectCode     string
	Zone            string
	Uploader        string
	Tags            []string
	DestinationGEID string
}

// FolderService creates standalone folders outside the upload flow.
type FolderService struct {
	meta   metadata.API
	ids    idgen.Allocator
	locker lock.Locker
	log    *logger.Logger
}

func NewFolderService(meta metadata.API, ids idgen.Allocator, locker lock.Locker, log *logger.Logger) *FolderService {
	return &FolderService{meta: meta, ids: ids, locker: locker, log: log}
}

// Create validates the name, resolves the parent, checks for a display
// path collision, and persists the node plus its parent link while
// holding a write lock on the new display path.
func (s *FolderService) Create(ctx context.Context, req *CreateFolderRequest) (*folder.Node, error) {
	if err := ValidateFolderName(req.FolderName); err != nil {
		return nil, err
	}

	var (
		relativePath string
		level        int
		parentGEID   string
		parentName   string
	)
	if req.DestinationGEID != "" {
		parent, err := s.meta.GetFolderByGEID(ctx, req.DestinationGEID)
		if err != nil {
			return nil, err
		}
		relativePath = parent.DisplayPath
		level = parent.Level + 1
		parentGEID = parent.GlobalEntityID
		parentName = parent.Name
	} else {
		project, err := s.meta.GetProject(ctx, req.ProjectCode)
		if err != nil {
			return nil, err
		}
		parentGEID = project.GlobalEntityID
		parentName = project.Code
	}

	displayPath := folder.Display(relativePath, req.FolderName)
	exists, err := s.meta.PathExists(ctx, req.Zone, req.ProjectCode, displayPath)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &ConflictError{Failed: []ConflictItem{{
			Name:        req.FolderName,
			DisplayPath: displayPath,
			Type:        "Folder",
		}}}
	}

	resourceKey := BucketName(req.Zone, req.ProjectCode) + "/" + displayPath
	if err := s.locker.Acquire(ctx, resourceKey, lock.OperationWrite); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.locker.Release(ctx, resourceKey, lock.OperationWrite); err != nil {
			s.log.Errorf("failed to release lock %s: %s", resourceKey, err)
		}
	}()

	geid, err := s.ids.AllocateID(ctx)
	if err != nil {
		return nil, err
	}
	node := &folder.Node{
		GlobalEntityID: geid,
		Name:           req.FolderName,
		Level:          level,
		ParentGEID:     parentGEID,
		ParentName:     parentName,
		Creator:        req.Uploader,
		RelativePath:   relativePath,
		Zone:           req.Zone,
		ProjectCode:    req.ProjectCode,
		Tags:           req.Tags,
		DisplayPath:    displayPath,
	}

	if err := s.meta.BatchCreateFolders(ctx, req.Zone, []*folder.Node{node}); err != nil {
		return nil, err
	}
	if err := s.meta.BatchLinkRelations(ctx, []folder.Relation{{StartGEID: parentGEID, EndGEID: geid}}); err != nil {
		return nil, err
	}
	return node, nil
}

// ValidateFolderName enforces the shared naming rule: 1 to 20
// characters, none of \/:?*<>|"'.
func ValidateFolderName(name string) error {
	if len(name) < 1 || len(name) > 20 || invalidFolderChars.MatchString(name) {
		return fmt.Errorf(`%w: folder should not contain \/:?*<>|"' and must contain 1 to 20 characters`, upload_errors.ErrInvalidInput)
	}
	return nil
}
