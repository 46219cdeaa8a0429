package job

import (
	"strconv"
	"strings"
	"time"
)

// KeyNamespace prefixes every job key in the store.
const KeyNamespace = "dataaction"

// ActionDataUpload is the action tag for chunked file uploads.
const ActionDataUpload = "data_upload"

// Status is the upload job lifecycle state.
type Status string

const (
	StatusInit          Status = "INIT"
	StatusPreUploaded   Status = "PRE_UPLOADED"
	StatusChunkUploaded Status = "CHUNK_UPLOADED"
	StatusFinalized     Status = "FINALIZED"
	StatusSucceed       Status = "SUCCEED"
	StatusTerminated    Status = "TERMINATED"
)

// transitions is the closed adjacency table. TERMINATED is reachable from
// every non-terminal state; SUCCEED and TERMINATED accept nothing further.
var transitions = map[Status][]Status{
	StatusInit:          {StatusPreUploaded, StatusTerminated},
	StatusPreUploaded:   {StatusChunkUploaded, StatusTerminated},
	StatusChunkUploaded: {StatusFinalized, StatusTerminated},
	StatusFinalized:     {StatusSucceed, StatusTerminated},
	StatusSucceed:       {},
	StatusTerminated:    {},
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusSucceed || s == StatusTerminated
}

// Payload keys written by this service. Unknown keys are pass-through.
const (
	PayloadTaskID              = "task_id"
	PayloadResumableIdentifier = "resumable_identifier"
	PayloadParentFolderGEID    = "parent_folder_geid"
	PayloadErrorMsg            = "error_msg"
	PayloadSourceGEID          = "source_geid"
)

// Payload is the open attribute bag on a job record.
type Payload map[string]any

// UploadJob tracks the lifecycle of one file's upload. The tuple
// (SessionID, JobID, Action, ProjectCode, Operator, Source) forms the
// storage key, so changing Source mid-flight produces a new record.
type UploadJob struct {
	SessionID       string  `json:"session_id"`
	JobID           string  `json:"job_id"`
	Source          string  `json:"source"`
	Action          string  `json:"action"`
	Status          Status  `json:"status"`
	ProjectCode     string  `json:"project_code"`
	Operator        string  `json:"operator"`
	Progress        int     `json:"progress"`
	Payload         Payload `json:"payload"`
	UpdateTimestamp string  `json:"update_timestamp"`
}

// Key returns the exact store key for this record.
func (j *UploadJob) Key() string {
	return strings.Join([]string{
		KeyNamespace, j.SessionID, j.JobID, j.Action, j.ProjectCode, j.Operator, j.Source,
	}, ":")
}

// Clone returns an independent copy with its own payload map, safe to
// hand to readers while another goroutine keeps mutating the original.
func (j *UploadJob) Clone() *UploadJob {
	out := *j
	out.Payload = make(Payload, len(j.Payload))
	for k, v := range j.Payload {
		out.Payload[k] = v
	}
	return &out
}

// Stamp refreshes UpdateTimestamp to the current epoch second.
func (j *UploadJob) Stamp() {
	j.UpdateTimestamp = strconv.FormatInt(time.Now().Unix(), 10)
}

// KeyPattern builds a glob for prefix-scoped reads and deletes. Empty
// trailing segments are dropped to broaden the match; pass "*" for a
// segment to match any value in that position.
func KeyPattern(sessionID, jobID, action, projectCode, operator string) string {
	parts := []string{KeyNamespace, sessionID, jobID, action, projectCode, operator}
	for len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ":")
}
