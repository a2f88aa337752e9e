package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	apperrors "github.com/pratik-mahalle/driftwatch/internal/pkg/errors"
)

// EventStore is the database/sql implementation of drift.EventStore.
type EventStore struct {
	db     *sql.DB
	driver string
}

// NewEventStore creates an event store over the given connection.
func NewEventStore(db *sql.DB, driver string) *EventStore {
	return &EventStore{db: db, driver: driver}
}

const eventColumns = `id, timestamp, drift_type, severity, resource_type, resource_name,
expected_value, actual_value, diff, source_module, remediation_hint,
auto_fix_available, resolved, resolved_at`

// Store persists a batch of events inside one transaction. Writes are
// upserts keyed by event id, so replaying a run never duplicates rows and
// a crash mid-batch never leaves the run partially visible.
func (s *EventStore) Store(ctx context.Context, events []*drift.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.PersistenceFailure("Failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := rebind(s.driver, `INSERT INTO drift_events (`+eventColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    timestamp = excluded.timestamp,
    drift_type = excluded.drift_type,
    severity = excluded.severity,
    expected_value = excluded.expected_value,
    actual_value = excluded.actual_value,
    diff = excluded.diff,
    source_module = excluded.source_module,
    remediation_hint = excluded.remediation_hint,
    auto_fix_available = excluded.auto_fix_available`)

	for _, e := range events {
		var resolvedAt interface{}
		if e.ResolvedAt != nil {
			resolvedAt = e.ResolvedAt.UTC().Format(time.RFC3339)
		}

		_, err := tx.ExecContext(ctx, query,
			e.ID,
			e.Timestamp.UTC().Format(time.RFC3339),
			e.DriftType,
			e.Severity,
			e.ResourceType,
			e.ResourceName,
			e.ExpectedValue,
			e.ActualValue,
			e.Diff,
			e.SourceModule,
			e.RemediationHint,
			boolToInt(e.AutoFixAvailable),
			boolToInt(e.Resolved),
			resolvedAt,
		)
		if err != nil {
			return apperrors.PersistenceFailure("Failed to store drift event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.PersistenceFailure("Failed to commit drift events", err)
	}
	return nil
}

// QuerySince retrieves events detected at or after the given time, newest
// first.
func (s *EventStore) QuerySince(ctx context.Context, since time.Time) ([]*drift.Event, error) {
	query := rebind(s.driver, `SELECT `+eventColumns+` FROM drift_events
WHERE timestamp >= ? ORDER BY timestamp DESC, id`)

	rows, err := s.db.QueryContext(ctx, query, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, apperrors.PersistenceFailure("Failed to query drift events", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// List retrieves events matching the filter, newest first.
func (s *EventStore) List(ctx context.Context, filter drift.Filter) ([]*drift.Event, error) {
	where := []string{"1 = 1"}
	var args []interface{}

	if filter.ResourceType != "" {
		where = append(where, "resource_type = ?")
		args = append(args, filter.ResourceType)
	}
	if filter.ResourceName != "" {
		where = append(where, "resource_name = ?")
		args = append(args, filter.ResourceName)
	}
	if filter.DriftType != "" {
		where = append(where, "drift_type = ?")
		args = append(args, filter.DriftType)
	}
	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.Unresolved {
		where = append(where, "resolved = 0")
	}

	query := rebind(s.driver, fmt.Sprintf(`SELECT `+eventColumns+` FROM drift_events
WHERE %s ORDER BY timestamp DESC, id`, strings.Join(where, " AND ")))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.PersistenceFailure("Failed to list drift events", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// MarkResolved marks an event resolved and records the resolution time.
func (s *EventStore) MarkResolved(ctx context.Context, id string) error {
	query := rebind(s.driver, `UPDATE drift_events SET resolved = 1, resolved_at = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return apperrors.PersistenceFailure("Failed to resolve drift event", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.PersistenceFailure("Failed to resolve drift event", err)
	}
	if affected == 0 {
		return apperrors.NotFound("Drift event")
	}
	return nil
}

// Prune deletes events older than the given horizon. The store never
// calls this itself; retention is an external maintenance concern.
func (s *EventStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	query := rebind(s.driver, `DELETE FROM drift_events WHERE timestamp < ?`)

	result, err := s.db.ExecContext(ctx, query, olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, apperrors.PersistenceFailure("Failed to prune drift events", err)
	}
	return result.RowsAffected()
}

func scanEvents(rows *sql.Rows) ([]*drift.Event, error) {
	var events []*drift.Event
	for rows.Next() {
		var (
			e          drift.Event
			timestamp  string
			autoFix    int
			resolved   int
			resolvedAt sql.NullString
		)
		err := rows.Scan(&e.ID, &timestamp, &e.DriftType, &e.Severity, &e.ResourceType, &e.ResourceName,
			&e.ExpectedValue, &e.ActualValue, &e.Diff, &e.SourceModule, &e.RemediationHint,
			&autoFix, &resolved, &resolvedAt)
		if err != nil {
			return nil, apperrors.PersistenceFailure("Failed to scan drift event", err)
		}

		e.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, apperrors.PersistenceFailure("Failed to parse drift event timestamp", err)
		}
		e.AutoFixAvailable = autoFix != 0
		e.Resolved = resolved != 0
		if resolvedAt.Valid {
			t, err := time.Parse(time.RFC3339, resolvedAt.String)
			if err == nil {
				e.ResolvedAt = &t
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
