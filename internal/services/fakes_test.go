package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"upload-gateway/internal/audit"
	"upload-gateway/internal/domain/folder"
	"upload-gateway/internal/domain/job"
	"upload-gateway/internal/metadata"
	upload_errors "upload-gateway/pkg/errors"
)

// memJobStore mirrors the redis-backed store contract, including the
// ":*" glob appended on prefix reads.
type memJobStore struct {
	mu   sync.Mutex
	recs map[string]*job.UploadJob
}

func newMemJobStore() *memJobStore {
	return &memJobStore{recs: map[string]*job.UploadJob{}}
}

func (s *memJobStore) Put(ctx context.Context, rec *job.UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Key()] = copyRecord(rec)
	return nil
}

func (s *memJobStore) PipelinedPut(ctx context.Context, recs []*job.UploadJob) error {
	for _, rec := range recs {
		if err := s.Put(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *memJobStore) GetByPrefix(ctx context.Context, prefix string) ([]*job.UploadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.recs {
		if globMatch(prefix+":*", key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([]*job.UploadJob, 0, len(keys))
	for _, key := range keys {
		out = append(out, copyRecord(s.recs[key]))
	}
	return out, nil
}

func (s *memJobStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.recs {
		if globMatch(prefix+":*", key) {
			delete(s.recs, key)
		}
	}
	return nil
}

func copyRecord(rec *job.UploadJob) *job.UploadJob {
	data, _ := json.Marshal(rec)
	out := &job.UploadJob{}
	_ = json.Unmarshal(data, out)
	return out
}

// globMatch supports '*' wildcards only, matching any run of characters.
func globMatch(pattern, s string) bool {
	if pattern == "" {
		return s == ""
	}
	if pattern[0] == '*' {
		for i := 0; i <= len(s); i++ {
			if globMatch(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	}
	return s != "" && s[0] == pattern[0] && globMatch(pattern[1:], s[1:])
}

// seqAllocator hands out deterministic ids: id-1, id-2, ...
type seqAllocator struct {
	mu sync.Mutex
	n  int
}

func (a *seqAllocator) AllocateID(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.n++
	return fmt.Sprintf("id-%d", a.n), nil
}

func (a *seqAllocator) AllocateIDs(ctx context.Context, n int) ([]string, error) {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, _ := a.AllocateID(ctx)
		out = append(out, id)
	}
	return out, nil
}

// fakeMeta is an in-memory stand-in for the graph-metadata service.
type fakeMeta struct {
	mu sync.Mutex

	projects      map[string]*metadata.Project
	storedFolders []*folder.Node
	existingPaths map[string]bool

	createdFolders  []*folder.Node
	linkedRelations []folder.Relation
	fileRequests    []*metadata.FileEntityRequest
	previews        map[string]map[string]any

	createFileErr error
	batchErr      error
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{
		projects: map[string]*metadata.Project{
			"proj": {GlobalEntityID: "geid-proj", Code: "proj", Name: "Project"},
		},
		existingPaths: map[string]bool{},
		previews:      map[string]map[string]any{},
	}
}

func (m *fakeMeta) GetProject(ctx context.Context, projectCode string) (*metadata.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectCode]
	if !ok {
		return nil, upload_errors.ErrProjectNotFound
	}
	return p, nil
}

func (m *fakeMeta) QueryFolder(ctx context.Context, zone, projectCode, relativePath, name string) (*folder.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.storedFolders {
		if n.ProjectCode == projectCode && n.RelativePath == relativePath && n.Name == name {
			return n, nil
		}
	}
	return nil, nil
}

func (m *fakeMeta) PathExists(ctx context.Context, zone, projectCode, displayPath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existingPaths[displayPath], nil
}

func (m *fakeMeta) GetFolderByGEID(ctx context.Context, geid string) (*folder.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.storedFolders {
		if n.GlobalEntityID == geid {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: folder %s", upload_errors.ErrNotFound, geid)
}

func (m *fakeMeta) BatchCreateFolders(ctx context.Context, zone string, nodes []*folder.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchErr != nil {
		return m.batchErr
	}
	m.createdFolders = append(m.createdFolders, nodes...)
	m.storedFolders = append(m.storedFolders, nodes...)
	return nil
}

func (m *fakeMeta) BatchLinkRelations(ctx context.Context, relations []folder.Relation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkedRelations = append(m.linkedRelations, relations...)
	return nil
}

func (m *fakeMeta) CreateFileEntity(ctx context.Context, req *metadata.FileEntityRequest) (*metadata.FileEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFileErr != nil {
		return nil, m.createFileErr
	}
	m.fileRequests = append(m.fileRequests, req)
	return &metadata.FileEntity{
		GlobalEntityID: "geid-file-" + req.FileName,
		Name:           req.FileName,
		DisplayPath:    folder.Display(req.Path, req.FileName),
	}, nil
}

func (m *fakeMeta) SaveArchivePreview(ctx context.Context, fileGEID string, preview map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previews[fileGEID] = preview
	return nil
}

type putCall struct {
	Bucket     string
	ObjectPath string
	Content    []byte
}

// fakeObjects records uploads and captures the assembled file bytes.
type fakeObjects struct {
	mu    sync.Mutex
	puts  []putCall
	fail  error
	reads func(localPath string) ([]byte, error)
}

func (o *fakeObjects) PutFile(ctx context.Context, bucket, objectPath, localPath string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return "", o.fail
	}
	var content []byte
	if o.reads != nil {
		data, err := o.reads(localPath)
		if err != nil {
			return "", err
		}
		content = data
	}
	o.puts = append(o.puts, putCall{Bucket: bucket, ObjectPath: objectPath, Content: content})
	return fmt.Sprintf("version-%d", len(o.puts)), nil
}

type publishedEvent struct {
	EventType string
	Payload   map[string]any
}

type fakeQueue struct {
	mu     sync.Mutex
	events []publishedEvent
	fail   error
}

func (q *fakeQueue) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return q.fail
	}
	q.events = append(q.events, publishedEvent{EventType: eventType, Payload: payload})
	return nil
}

type fakeSink struct {
	mu      sync.Mutex
	entries []audit.Entry
	fail    error
}

func (s *fakeSink) Append(ctx context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.entries = append(s.entries, entry)
	return nil
}
