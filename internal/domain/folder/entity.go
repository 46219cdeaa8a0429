package folder

// Node represents one folder-path segment within a project and zone.
// Within one project+zone the pair (RelativePath, Name) is unique.
type Node struct {
	GlobalEntityID string   `json:"global_entity_id"`
	Name           string   `json:"folder_name"`
	Level          int      `json:"folder_level"`
	ParentGEID     string   `json:"folder_parent_geid"`
	ParentName     string   `json:"folder_parent_name"`
	Creator        string   `json:"uploader"`
	RelativePath   string   `json:"folder_relative_path"`
	Zone           string   `json:"zone"`
	ProjectCode    string   `json:"project_code"`
	Tags           []string `json:"folder_tags"`
	DisplayPath    string   `json:"display_path"`
}

// Display joins RelativePath and Name into the external dedup key.
func Display(relativePath, name string) string {
	if relativePath == "" {
		return name
	}
	return relativePath + "/" + name
}

// Relation is a parent-to-child link record between two folder nodes
// (or from the project node to a top-level folder).
type Relation struct {
	StartGEID string `json:"start_geid"`
	EndGEID   string `json:"end_geid"`
}
