package drift

import (
	"context"
	"time"
)

// EventStore defines the interface for durable drift event storage.
type EventStore interface {
	// Store persists a batch of events in a single transaction.
	// Writes are upserts keyed by event id: replaying the same run
	// does not duplicate rows.
	Store(ctx context.Context, events []*Event) error

	// QuerySince retrieves events detected at or after the given time,
	// newest first.
	QuerySince(ctx context.Context, since time.Time) ([]*Event, error)

	// List retrieves events matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Event, error)

	// MarkResolved marks an event resolved and records the resolution time.
	MarkResolved(ctx context.Context, id string) error

	// Prune deletes events older than the given horizon and returns the
	// number of rows removed. Invoked by an external maintenance task;
	// the store never prunes on its own.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SnapshotStore defines the interface for append-only infrastructure
// snapshot storage.
type SnapshotStore interface {
	// SaveSnapshot appends a snapshot record.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error

	// LatestSnapshot returns the most recent snapshot, or NotFound.
	LatestSnapshot(ctx context.Context) (*Snapshot, error)

	// SnapshotsSince retrieves snapshots taken at or after the given time,
	// newest first.
	SnapshotsSince(ctx context.Context, since time.Time) ([]*Snapshot, error)
}
