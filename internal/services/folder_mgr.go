package services

import (
	"context"
	"strings"

	"upload-gateway/internal/domain/folder"
	"upload-gateway/internal/idgen"
	"upload-gateway/internal/metadata"
)

// FolderBatch carries the request-scoped resolution cache and the
// creation records queued during one pre-upload call. The cache is
// passed explicitly and mutated as paths are resolved, so files later
// in the batch observe folders resolved by earlier ones.
type FolderBatch struct {
	cache     []*folder.Node
	ToCreate  []*folder.Node
	Relations []folder.Relation
}

func NewFolderBatch() *FolderBatch {
	return &FolderBatch{}
}

func (b *FolderBatch) lookup(relativePath, name string) *folder.Node {
	for _, node := range b.cache {
		if node.RelativePath == relativePath && node.Name == name {
			return node
		}
	}
	return nil
}

func (b *FolderBatch) remember(node *folder.Node) {
	b.cache = append(b.cache, node)
}

// FolderManager materializes the folder chain for a target relative
// path, deduplicating against the batch cache and the metadata store.
type FolderManager struct {
	meta metadata.API
	ids  idgen.Allocator
}

func NewFolderManager(meta metadata.API, ids idgen.Allocator) *FolderManager {
	return &FolderManager{meta: meta, ids: ids}
}

// Materialize walks relativePath root-to-leaf and returns the file's
// immediate containing folder (nil when the file lives at project root).
// Nodes absent from both cache and store are queued on the batch with a
// freshly allocated identity plus a parent link record; nothing is
// persisted here. Persistence happens once per pre-upload call, after
// every file's path has been resolved.
func (m *FolderManager) Materialize(
	ctx context.Context,
	batch *FolderBatch,
	project *metadata.Project,
	relativePath, creator, zone string,
	tags []string,
) (*folder.Node, error) {
	segments := splitPath(relativePath)
	var chain []*folder.Node

	for level, name := range segments {
		prefix := strings.Join(segments[:level], "/")

		node := batch.lookup(prefix, name)
		if node == nil {
			stored, err := m.meta.QueryFolder(ctx, zone, project.Code, prefix, name)
			if err != nil {
				return nil, err
			}
			if stored != nil {
				node = stored
				batch.remember(node)
			}
		}

		if node == nil {
			geid, err := m.ids.AllocateID(ctx)
			if err != nil {
				return nil, err
			}
			node = &folder.Node{
				GlobalEntityID: geid,
				Name:           name,
				Level:          level,
				Creator:        creator,
				RelativePath:   prefix,
				Zone:           zone,
				ProjectCode:    project.Code,
				Tags:           tags,
				DisplayPath:    folder.Display(prefix, name),
			}
			if level == 0 {
				node.ParentGEID = project.GlobalEntityID
				node.ParentName = project.Code
			} else {
				parent := chain[level-1]
				node.ParentGEID = parent.GlobalEntityID
				node.ParentName = parent.Name
			}
			batch.ToCreate = append(batch.ToCreate, node)
			batch.Relations = append(batch.Relations, folder.Relation{
				StartGEID: node.ParentGEID,
				EndGEID:   node.GlobalEntityID,
			})
			batch.remember(node)
		}

		chain = append(chain, node)
	}

	if len(chain) == 0 {
		return nil, nil
	}
	return chain[len(chain)-1], nil
}

func splitPath(relativePath string) []string {
	trimmed := strings.Trim(relativePath, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
