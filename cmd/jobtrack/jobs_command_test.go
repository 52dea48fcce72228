package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genstudio/jobtrack/internal/track"
)

func TestJobsTableRows(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	jobs := []track.TrackedJob{
		{
			JobID:       "abc123",
			ProviderKey: "veo",
			OwnerRef:    "node-1",
			Params:      track.JobParams{Model: "veo3.1"},
			CreatedAt:   now.Add(-90 * time.Second).UnixMilli(),
		},
		{
			JobID:       "def456",
			ProviderKey: "vidu",
		},
	}

	rows := jobsTableRows(jobs, now)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"abc123", "veo", "node-1", "veo3.1", "1m30s"}, rows[0])
	assert.Equal(t, []string{"def456", "vidu", "", "", "-"}, rows[1])
}

func TestRenderTable_IncludesHeadersAndRows(t *testing.T) {
	out := renderTable(jobsTableHeaders(), [][]string{
		{"abc123", "veo", "node-1", "veo3.1", "5s"},
	})
	assert.Contains(t, out, "JOB ID")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "veo3.1")
}
