package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	rec := &UploadJob{
		SessionID:   "sess-1",
		JobID:       "job-1",
		Action:      ActionDataUpload,
		ProjectCode: "proj",
		Operator:    "alice",
		Source:      "sub/dir/file.txt",
	}
	assert.Equal(t, "dataaction:sess-1:job-1:data_upload:proj:alice:sub/dir/file.txt", rec.Key())
}

func TestKeyPattern(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected string
	}{
		{
			name:     "full tuple",
			pattern:  KeyPattern("sess-1", "job-1", ActionDataUpload, "proj", "alice"),
			expected: "dataaction:sess-1:job-1:data_upload:proj:alice",
		},
		{
			name:     "wildcard job id",
			pattern:  KeyPattern("sess-1", "*", ActionDataUpload, "proj", "alice"),
			expected: "dataaction:sess-1:*:data_upload:proj:alice",
		},
		{
			name:     "empty operator trimmed",
			pattern:  KeyPattern("sess-1", "*", ActionDataUpload, "proj", ""),
			expected: "dataaction:sess-1:*:data_upload:proj",
		},
		{
			name:     "session only",
			pattern:  KeyPattern("sess-1", "", "", "", ""),
			expected: "dataaction:sess-1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.pattern)
		})
	}
}

func TestCanTransition(t *testing.T) {
	chain := []Status{StatusInit, StatusPreUploaded, StatusChunkUploaded, StatusFinalized, StatusSucceed}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, chain[i].CanTransition(chain[i+1]), "%s -> %s", chain[i], chain[i+1])
	}

	// no skipping forward
	assert.False(t, StatusInit.CanTransition(StatusChunkUploaded))
	assert.False(t, StatusPreUploaded.CanTransition(StatusFinalized))
	assert.False(t, StatusChunkUploaded.CanTransition(StatusSucceed))

	// no going back
	assert.False(t, StatusChunkUploaded.CanTransition(StatusPreUploaded))
	assert.False(t, StatusFinalized.CanTransition(StatusInit))
}

func TestTerminatedReachableFromAnyNonTerminal(t *testing.T) {
	for _, s := range []Status{StatusInit, StatusPreUploaded, StatusChunkUploaded, StatusFinalized} {
		assert.True(t, s.CanTransition(StatusTerminated), "%s -> TERMINATED", s)
	}
}

func TestTerminalStatesFrozen(t *testing.T) {
	all := []Status{StatusInit, StatusPreUploaded, StatusChunkUploaded, StatusFinalized, StatusSucceed, StatusTerminated}
	for _, terminal := range []Status{StatusSucceed, StatusTerminated} {
		require.True(t, terminal.Terminal())
		for _, target := range all {
			assert.False(t, terminal.CanTransition(target), "%s -> %s", terminal, target)
		}
	}
}

func TestCloneDetachesPayload(t *testing.T) {
	rec := &UploadJob{
		SessionID: "sess-1",
		JobID:     "job-1",
		Status:    StatusChunkUploaded,
		Payload:   Payload{PayloadTaskID: "task-1"},
	}
	clone := rec.Clone()

	rec.Status = StatusFinalized
	rec.Payload[PayloadSourceGEID] = "geid-1"

	assert.Equal(t, StatusChunkUploaded, clone.Status)
	assert.Equal(t, "task-1", clone.Payload[PayloadTaskID])
	assert.NotContains(t, clone.Payload, PayloadSourceGEID)
}

func TestStamp(t *testing.T) {
	rec := &UploadJob{}
	require.Empty(t, rec.UpdateTimestamp)
	rec.Stamp()
	assert.NotEmpty(t, rec.UpdateTimestamp)
}
