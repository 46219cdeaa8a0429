package services

import (
	"archive/zip"
	"strings"
)

// ArchivePreview builds a nested listing of a zip file's contents:
// directories map to nested objects carrying "is_dir": true, files to
// leaf objects with name and uncompressed size.
func ArchivePreview(filePath string) (map[string]any, error) {
	archive, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	results := map[string]any{}
	for _, file := range archive.File {
		parts := strings.Split(file.Name, "/")
		filename := parts[len(parts)-1]
		if filename == "" && len(parts) > 1 {
			filename = parts[len(parts)-2]
		}

		current := results
		for _, dir := range parts[:len(parts)-1] {
			if dir == "" {
				continue
			}
			next, ok := current[dir].(map[string]any)
			if !ok {
				next = map[string]any{"is_dir": true}
				current[dir] = next
			}
			current = next
		}

		if !file.FileInfo().IsDir() {
			current[filename] = map[string]any{
				"filename": filename,
				"size":     file.UncompressedSize64,
				"is_dir":   false,
			}
		}
	}
	return results, nil
}
