package services

import (
	"context"
	"fmt"

	"upload-gateway/internal/domain/job"
	upload_errors "upload-gateway/pkg/errors"
)

// StatusManager drives one job through its state machine, persisting
// every transition to the JobStore.
type StatusManager struct {
	store JobStore
	job   *job.UploadJob
}

// NewStatusManager starts an in-memory job in INIT. SetJobID must be
// called before the first save.
func NewStatusManager(store JobStore, sessionID, projectCode, action, operator string) *StatusManager {
	return &StatusManager{
		store: store,
		job: &job.UploadJob{
			SessionID:   sessionID,
			ProjectCode: projectCode,
			Action:      action,
			Operator:    operator,
			Status:      job.StatusInit,
			Payload:     job.Payload{},
		},
	}
}

// LoadStatusManager reads an existing job back from the store.
func LoadStatusManager(ctx context.Context, store JobStore, sessionID, jobID, projectCode, action, operator string) (*StatusManager, error) {
	prefix := job.KeyPattern(sessionID, jobID, action, projectCode, operator)
	fetched, err := store.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, fmt.Errorf("%w: job %s", upload_errors.ErrNotFound, jobID)
	}
	rec := fetched[0]
	if rec.Payload == nil {
		rec.Payload = job.Payload{}
	}
	return &StatusManager{store: store, job: rec}, nil
}

// SetJobID assigns the server-issued id. Fails when a record already
// exists under the candidate key: job ids are never reused.
func (m *StatusManager) SetJobID(ctx context.Context, jobID string) error {
	prefix := job.KeyPattern(m.job.SessionID, jobID, m.job.Action, m.job.ProjectCode, m.job.Operator)
	fetched, err := m.store.GetByPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	if len(fetched) > 0 {
		return fmt.Errorf("%w: %s", upload_errors.ErrJobIDTaken, jobID)
	}
	m.job.JobID = jobID
	return nil
}

func (m *StatusManager) SetSource(source string) {
	m.job.Source = source
}

func (m *StatusManager) SetProgress(progress int) {
	m.job.Progress = progress
}

// AddPayload updates the open attribute bag, overwriting an existing key.
func (m *StatusManager) AddPayload(key string, value any) {
	m.job.Payload[key] = value
}

// Mark validates and applies a transition in memory without persisting.
// Used when the caller batches the write into a pipelined put.
func (m *StatusManager) Mark(target job.Status) error {
	if !m.job.Status.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", upload_errors.ErrInvalidTransition, m.job.Status, target)
	}
	m.job.Status = target
	m.job.Stamp()
	return nil
}

// Go applies a transition and persists the full record, returning the
// persisted record.
func (m *StatusManager) Go(ctx context.Context, target job.Status) (*job.UploadJob, error) {
	if err := m.Mark(target); err != nil {
		return nil, err
	}
	if err := m.store.Put(ctx, m.job); err != nil {
		return nil, err
	}
	return m.job, nil
}

func (m *StatusManager) Record() *job.UploadJob {
	return m.job
}
