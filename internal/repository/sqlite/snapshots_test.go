package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	apperrors "github.com/pratik-mahalle/driftwatch/internal/pkg/errors"
)

func TestSnapshotStore_SaveAndLoad(t *testing.T) {
	store := NewSnapshotStore(testDB(t), "sqlite")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	cost := 421.50
	snap := &drift.Snapshot{
		Timestamp:         now,
		StateHash:         "abc123",
		ResourceCount:     2,
		Resources:         map[string]string{"google_compute_instance.web": "hash-a", "google_storage_bucket.assets": "hash-b"},
		ConfigurationHash: "cfg456",
		CostEstimate:      &cost,
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	got, err := store.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot() error = %v", err)
	}
	if !got.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, now)
	}
	if got.StateHash != "abc123" || got.ConfigurationHash != "cfg456" {
		t.Errorf("hashes = %s / %s", got.StateHash, got.ConfigurationHash)
	}
	if got.ResourceCount != 2 || len(got.Resources) != 2 {
		t.Errorf("resources = %d / %v", got.ResourceCount, got.Resources)
	}
	if got.CostEstimate == nil || *got.CostEstimate != 421.50 {
		t.Errorf("CostEstimate = %v", got.CostEstimate)
	}
}

func TestSnapshotStore_NilCost(t *testing.T) {
	store := NewSnapshotStore(testDB(t), "sqlite")
	ctx := context.Background()

	snap := &drift.Snapshot{Timestamp: time.Now().UTC(), StateHash: "x"}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	got, err := store.LatestSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.CostEstimate != nil {
		t.Errorf("CostEstimate = %v, want nil", got.CostEstimate)
	}
}

func TestSnapshotStore_LatestOfMany(t *testing.T) {
	store := NewSnapshotStore(testDB(t), "sqlite")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i, hash := range []string{"first", "second", "third"} {
		snap := &drift.Snapshot{
			Timestamp: now.Add(time.Duration(i) * time.Hour),
			StateHash: hash,
		}
		if err := store.SaveSnapshot(ctx, snap); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.LatestSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.StateHash != "third" {
		t.Errorf("LatestSnapshot() = %s, want third", got.StateHash)
	}

	since, err := store.SnapshotsSince(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 2 || since[0].StateHash != "third" {
		t.Errorf("SnapshotsSince() = %d snapshots, first %s", len(since), since[0].StateHash)
	}
}

func TestSnapshotStore_EmptyIsNotFound(t *testing.T) {
	store := NewSnapshotStore(testDB(t), "sqlite")

	_, err := store.LatestSnapshot(context.Background())
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("LatestSnapshot() on empty store error = %v, want not_found", err)
	}
}
