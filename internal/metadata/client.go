package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"upload-gateway/internal/domain/folder"
	upload_errors "upload-gateway/pkg/errors"
)

// Project is the container node every upload targets.
type Project struct {
	GlobalEntityID string `json:"global_entity_id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
}

// FileEntityRequest registers one uploaded file with the graph-metadata
// service after chunk assembly.
type FileEntityRequest struct {
	Uploader         string   `json:"uploader"`
	FileName         string   `json:"file_name"`
	Path             string   `json:"path"`
	FileSize         int64    `json:"file_size"`
	Description      string   `json:"description"`
	Namespace        string   `json:"namespace"`
	ProjectCode      string   `json:"project_code"`
	Labels           []string `json:"labels"`
	Bucket           string   `json:"bucket"`
	ObjectPath       string   `json:"minio_object_path"`
	VersionID        string   `json:"version_id"`
	Operator         string   `json:"operator,omitempty"`
	ParentFolderGEID string   `json:"parent_folder_geid"`
	ProcessPipeline  string   `json:"process_pipeline,omitempty"`
	ParentQuery      []string `json:"parent_query,omitempty"`
}

// FileEntity is the node returned by a successful registration.
type FileEntity struct {
	GlobalEntityID string `json:"global_entity_id"`
	Name           string `json:"name"`
	DisplayPath    string `json:"display_path"`
}

// API is the narrow contract the core consumes from the graph-metadata
// service. Implementations are remote; tests substitute fakes.
type API interface {
	GetProject(ctx context.Context, projectCode string) (*Project, error)
	// QueryFolder finds a persisted folder node by its (relativePath, name)
	// dedup key, or returns nil when absent.
	QueryFolder(ctx context.Context, zone, projectCode, relativePath, name string) (*folder.Node, error)
	// PathExists reports whether any non-archived node (file or folder)
	// occupies the display path within the project and zone.
	PathExists(ctx context.Context, zone, projectCode, displayPath string) (bool, error)
	GetFolderByGEID(ctx context.Context, geid string) (*folder.Node, error)
	BatchCreateFolders(ctx context.Context, zone string, nodes []*folder.Node) error
	BatchLinkRelations(ctx context.Context, relations []folder.Relation) error
	CreateFileEntity(ctx context.Context, req *FileEntityRequest) (*FileEntity, error)
	// SaveArchivePreview stores the zip-content listing for a registered
	// file. Best-effort from the caller's point of view.
	SaveArchivePreview(ctx context.Context, fileGEID string, preview map[string]any) error
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL   string
	http      *http.Client
	zoneLabel func(zone string) string
}

func NewClient(baseURL string, zoneLabel func(zone string) string) *Client {
	return &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		zoneLabel: zoneLabel,
	}
}

func (c *Client) GetProject(ctx context.Context, projectCode string) (*Project, error) {
	var result []Project
	err := c.post(ctx, "nodes/Container/query", map[string]any{"code": projectCode}, &result)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, upload_errors.ErrProjectNotFound
	}
	return &result[0], nil
}

func (c *Client) QueryFolder(ctx context.Context, zone, projectCode, relativePath, name string) (*folder.Node, error) {
	payload := map[string]any{
		"query": map[string]any{
			"folder_relative_path": relativePath,
			"name":                 name,
			"project_code":         projectCode,
			"archived":             false,
			"labels":               []string{c.zoneLabel(zone), "Folder"},
		},
	}
	var result struct {
		Result []struct {
			GlobalEntityID string   `json:"global_entity_id"`
			Name           string   `json:"name"`
			Level          int      `json:"folder_level"`
			Uploader       string   `json:"uploader"`
			RelativePath   string   `json:"folder_relative_path"`
			ProjectCode    string   `json:"project_code"`
			Tags           []string `json:"tags"`
		} `json:"result"`
	}
	if err := c.post(ctx, "nodes/query", payload, &result); err != nil {
		return nil, err
	}
	for _, n := range result.Result {
		if n.RelativePath == relativePath && n.Name == name && n.ProjectCode == projectCode {
			return &folder.Node{
				GlobalEntityID: n.GlobalEntityID,
				Name:           n.Name,
				Level:          n.Level,
				Creator:        n.Uploader,
				RelativePath:   n.RelativePath,
				Zone:           zone,
				ProjectCode:    n.ProjectCode,
				Tags:           n.Tags,
				DisplayPath:    folder.Display(n.RelativePath, n.Name),
			}, nil
		}
	}
	return nil, nil
}

func (c *Client) GetFolderByGEID(ctx context.Context, geid string) (*folder.Node, error) {
	payload := map[string]any{
		"query": map[string]any{
			"global_entity_id": geid,
			"labels":           []string{"Folder"},
		},
	}
	var result struct {
		Result []struct {
			GlobalEntityID string   `json:"global_entity_id"`
			Name           string   `json:"name"`
			Level          int      `json:"folder_level"`
			Uploader       string   `json:"uploader"`
			RelativePath   string   `json:"folder_relative_path"`
			ProjectCode    string   `json:"project_code"`
			Tags           []string `json:"tags"`
		} `json:"result"`
	}
	if err := c.post(ctx, "nodes/query", payload, &result); err != nil {
		return nil, err
	}
	if len(result.Result) == 0 {
		return nil, fmt.Errorf("%w: folder %s", upload_errors.ErrNotFound, geid)
	}
	n := result.Result[0]
	return &folder.Node{
		GlobalEntityID: n.GlobalEntityID,
		Name:           n.Name,
		Level:          n.Level,
		Creator:        n.Uploader,
		RelativePath:   n.RelativePath,
		ProjectCode:    n.ProjectCode,
		Tags:           n.Tags,
		DisplayPath:    folder.Display(n.RelativePath, n.Name),
	}, nil
}

func (c *Client) PathExists(ctx context.Context, zone, projectCode, displayPath string) (bool, error) {
	payload := map[string]any{
		"display_path": displayPath,
		"project_code": projectCode,
		"archived":     false,
	}
	var result []json.RawMessage
	url := fmt.Sprintf("nodes/%s/query", c.zoneLabel(zone))
	if err := c.post(ctx, url, payload, &result); err != nil {
		return false, err
	}
	return len(result) > 0, nil
}

func (c *Client) BatchCreateFolders(ctx context.Context, zone string, nodes []*folder.Node) error {
	payload := map[string]any{
		"payload":        nodes,
		"zone":           c.zoneLabel(zone),
		"link_container": false,
	}
	return c.post(ctx, "folders/batch", payload, nil)
}

func (c *Client) BatchLinkRelations(ctx context.Context, relations []folder.Relation) error {
	links := make([]map[string]any, 0, len(relations))
	for _, rel := range relations {
		links = append(links, map[string]any{
			"start_params": map[string]string{"global_entity_id": rel.StartGEID},
			"end_params":   map[string]string{"global_entity_id": rel.EndGEID},
		})
	}
	payload := map[string]any{
		"payload":         links,
		"params_location": []string{"start", "end"},
		"start_label":     "Folder",
		"end_label":       "Folder",
	}
	return c.post(ctx, "relations/own/batch", payload, nil)
}

func (c *Client) CreateFileEntity(ctx context.Context, req *FileEntityRequest) (*FileEntity, error) {
	var result struct {
		Result FileEntity `json:"result"`
		Error  string     `json:"error"`
	}
	if err := c.post(ctx, "filedata/", req, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: create meta failed: %s", upload_errors.ErrUpstreamFailure, result.Error)
	}
	return &result.Result, nil
}

func (c *Client) SaveArchivePreview(ctx context.Context, fileGEID string, preview map[string]any) error {
	payload := map[string]any{
		"file_geid":       fileGEID,
		"archive_preview": preview,
	}
	return c.post(ctx, "archive", payload, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", upload_errors.ErrUpstreamFailure, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s: status %d", upload_errors.ErrUpstreamFailure, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
