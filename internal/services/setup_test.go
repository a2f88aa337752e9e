package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pratik-mahalle/driftwatch/internal/config"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/driftwatch/internal/testutil"
)

func TestBuildManager_SkipsUnconstructableDetector(t *testing.T) {
	cfg := config.Default()
	cfg.Terraform.Directory = "/does/not/exist"
	cfg.Configuration.Enabled = false
	cfg.Snapshots.Enabled = false
	cfg.Alerting.Enabled = false

	store := testutil.NewMockEventStore()
	m := BuildManager(cfg, store, nil, logger.Nop(), Options{})

	// the terraform detector failed to construct; a run still works and
	// simply produces nothing
	events, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Run() = %d events, want 0", len(events))
	}
}

func TestBuildManager_WiresEnabledDetectors(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "app.yaml"), []byte("replicas: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Terraform.Directory = dir
	cfg.Configuration.Paths = []string{configDir}
	cfg.Alerting.Enabled = false

	store := testutil.NewMockEventStore()
	snapshots := testutil.NewMockSnapshotStore()
	runner := &testutil.MockPlanRunner{Result: nil, Err: os.ErrNotExist}

	m := BuildManager(cfg, store, snapshots, logger.Nop(), Options{PlanRunner: runner})

	events, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// plan runner failed (contained), config files unchanged: no drift
	if len(events) != 0 {
		t.Errorf("Run() = %d events, want 0", len(events))
	}
	if runner.Calls != 1 {
		t.Errorf("plan runner called %d times, want 1", runner.Calls)
	}
	// snapshotting is on by default and survives the empty run
	if len(snapshots.Snapshots) != 1 {
		t.Errorf("snapshot store holds %d snapshots, want 1", len(snapshots.Snapshots))
	}
}
