package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
)

func TestInfraSnapshotter(t *testing.T) {
	dir := t.TempDir()
	tf := `
resource "google_compute_instance" "web" {
  machine_type = "n1-standard-1"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte(tf), 0o644))

	s := NewInfraSnapshotter(dir, func() string { return "cfg-hash" }, logger.Nop())

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, snap.ResourceCount)
	assert.Contains(t, snap.Resources, "google_compute_instance.web")
	assert.NotEmpty(t, snap.StateHash)
	assert.Equal(t, "cfg-hash", snap.ConfigurationHash)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestInfraSnapshotter_NoCollaborators(t *testing.T) {
	s := NewInfraSnapshotter("", nil, logger.Nop())

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Zero(t, snap.ResourceCount)
	assert.Empty(t, snap.StateHash)
	assert.Empty(t, snap.ConfigurationHash)
}

func TestInfraSnapshotter_MissingDirectory(t *testing.T) {
	s := NewInfraSnapshotter("/does/not/exist", nil, logger.Nop())

	_, err := s.Snapshot(context.Background())
	assert.Error(t, err)
}
