package service

import (
	"testing"

	"markettrack-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRegistryLifecycle(t *testing.T) {
	registry := NewJobRegistry()

	job := registry.Start("markets")
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobRunning, job.Status)

	got, ok := registry.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobRunning, got.Status)

	summary := model.NewRunSummary("markets")
	summary.Record("yoga mat", model.OutcomeUpdated, "")
	registry.Complete(job.ID, summary)

	got, ok = registry.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 1, got.Summary.Updated)
}

func TestJobRegistryFailure(t *testing.T) {
	registry := NewJobRegistry()

	job := registry.Start("products")
	registry.Fail(job.ID, "source unavailable")

	got, ok := registry.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobFailed, got.Status)
	assert.Equal(t, "source unavailable", got.Error)
}

func TestJobRegistryUnknownID(t *testing.T) {
	registry := NewJobRegistry()

	_, ok := registry.Get("missing")
	assert.False(t, ok)

	// Finishing an unknown job is a no-op, not a panic.
	registry.Complete("missing", nil)
	registry.Fail("missing", "x")
}

func TestJobRegistryClear(t *testing.T) {
	registry := NewJobRegistry()

	job := registry.Start("markets")
	registry.Clear(job.ID)

	_, ok := registry.Get(job.ID)
	assert.False(t, ok)
}
