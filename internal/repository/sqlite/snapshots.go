package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	apperrors "github.com/pratik-mahalle/driftwatch/internal/pkg/errors"
)

// SnapshotStore is the database/sql implementation of drift.SnapshotStore.
type SnapshotStore struct {
	db     *sql.DB
	driver string
}

// NewSnapshotStore creates a snapshot store over the given connection.
func NewSnapshotStore(db *sql.DB, driver string) *SnapshotStore {
	return &SnapshotStore{db: db, driver: driver}
}

const snapshotColumns = `timestamp, state_hash, resource_count, resources, configuration_hash, cost_estimate`

// SaveSnapshot appends a snapshot record. Snapshots are append-only.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap *drift.Snapshot) error {
	resources, err := json.Marshal(snap.Resources)
	if err != nil {
		return apperrors.PersistenceFailure("Failed to encode snapshot resources", err)
	}

	var cost interface{}
	if snap.CostEstimate != nil {
		cost = *snap.CostEstimate
	}

	query := rebind(s.driver, `INSERT INTO infra_snapshots (`+snapshotColumns+`) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		snap.Timestamp.UTC().Format(time.RFC3339),
		snap.StateHash,
		snap.ResourceCount,
		string(resources),
		snap.ConfigurationHash,
		cost,
	)
	if err != nil {
		return apperrors.PersistenceFailure("Failed to save snapshot", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot.
func (s *SnapshotStore) LatestSnapshot(ctx context.Context) (*drift.Snapshot, error) {
	query := rebind(s.driver, `SELECT `+snapshotColumns+` FROM infra_snapshots ORDER BY timestamp DESC LIMIT 1`)

	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("Snapshot")
	}
	if err != nil {
		return nil, apperrors.PersistenceFailure("Failed to load latest snapshot", err)
	}
	return snap, nil
}

// SnapshotsSince retrieves snapshots taken at or after the given time,
// newest first.
func (s *SnapshotStore) SnapshotsSince(ctx context.Context, since time.Time) ([]*drift.Snapshot, error) {
	query := rebind(s.driver, `SELECT `+snapshotColumns+` FROM infra_snapshots
WHERE timestamp >= ? ORDER BY timestamp DESC`)

	rows, err := s.db.QueryContext(ctx, query, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, apperrors.PersistenceFailure("Failed to query snapshots", err)
	}
	defer rows.Close()

	var snaps []*drift.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, apperrors.PersistenceFailure("Failed to scan snapshot", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*drift.Snapshot, error) {
	var (
		snap      drift.Snapshot
		timestamp string
		resources string
		cost      sql.NullFloat64
	)
	err := row.Scan(&timestamp, &snap.StateHash, &snap.ResourceCount, &resources, &snap.ConfigurationHash, &cost)
	if err != nil {
		return nil, err
	}

	snap.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
	if resources != "" {
		_ = json.Unmarshal([]byte(resources), &snap.Resources)
	}
	if cost.Valid {
		snap.CostEstimate = &cost.Float64
	}
	return &snap, nil
}
