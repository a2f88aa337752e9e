package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pratik-mahalle/driftwatch/internal/config"
	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	apperrors "github.com/pratik-mahalle/driftwatch/internal/pkg/errors"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "drift_test.db"),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testEvent(id string, ts time.Time) *drift.Event {
	return &drift.Event{
		ID:            id,
		Timestamp:     ts,
		DriftType:     drift.TypeConfiguration,
		Severity:      drift.SeverityMedium,
		ResourceType:  "google_compute_instance",
		ResourceName:  "web",
		ExpectedValue: "n1-standard-1",
		ActualValue:   "n1-standard-2",
		Diff:          "--- before\n+++ after\n",
		SourceModule:  "module.compute",
	}
}

func TestEventStore_StoreAndQuery(t *testing.T) {
	store := NewEventStore(testDB(t), "sqlite")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	events := []*drift.Event{
		testEvent("aaa", now.Add(-2*time.Hour)),
		testEvent("bbb", now.Add(-1*time.Hour)),
		testEvent("ccc", now),
	}
	if err := store.Store(ctx, events); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := store.QuerySince(ctx, now.Add(-90*time.Minute))
	if err != nil {
		t.Fatalf("QuerySince() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("QuerySince() = %d events, want 2", len(got))
	}
	// newest first
	if got[0].ID != "ccc" || got[1].ID != "bbb" {
		t.Errorf("QuerySince() order = %s, %s", got[0].ID, got[1].ID)
	}

	if !got[0].Timestamp.Equal(now) {
		t.Errorf("Timestamp round-trip = %v, want %v", got[0].Timestamp, now)
	}
	if got[0].Diff != "--- before\n+++ after\n" {
		t.Errorf("Diff round-trip = %q", got[0].Diff)
	}
	if got[0].SourceModule != "module.compute" {
		t.Errorf("SourceModule round-trip = %q", got[0].SourceModule)
	}
}

func TestEventStore_BoundaryInclusive(t *testing.T) {
	store := NewEventStore(testDB(t), "sqlite")
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if err := store.Store(ctx, []*drift.Event{testEvent("edge", at)}); err != nil {
		t.Fatal(err)
	}

	got, err := store.QuerySince(ctx, at)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("QuerySince() at exact timestamp = %d events, want 1 (inclusive)", len(got))
	}
}

func TestEventStore_UpsertIsIdempotent(t *testing.T) {
	store := NewEventStore(testDB(t), "sqlite")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	ev := testEvent("same-id", now)
	if err := store.Store(ctx, []*drift.Event{ev}); err != nil {
		t.Fatal(err)
	}

	// replay with an updated observation
	updated := testEvent("same-id", now)
	updated.ActualValue = "n1-standard-4"
	if err := store.Store(ctx, []*drift.Event{updated}); err != nil {
		t.Fatal(err)
	}

	got, err := store.QuerySince(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("replayed store = %d rows, want 1", len(got))
	}
	if got[0].ActualValue != "n1-standard-4" {
		t.Errorf("upsert did not refresh actual_value: %q", got[0].ActualValue)
	}
}

func TestEventStore_UpsertPreservesResolution(t *testing.T) {
	store := NewEventStore(testDB(t), "sqlite")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := store.Store(ctx, []*drift.Event{testEvent("res-1", now)}); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkResolved(ctx, "res-1"); err != nil {
		t.Fatal(err)
	}

	// re-detecting the same condition must not clear the operator's
	// resolution
	if err := store.Store(ctx, []*drift.Event{testEvent("res-1", now)}); err != nil {
		t.Fatal(err)
	}

	got, err := store.List(ctx, drift.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Resolved {
		t.Error("upsert cleared the resolved flag")
	}
	if got[0].ResolvedAt == nil {
		t.Error("upsert cleared resolved_at")
	}
}

func TestEventStore_List(t *testing.T) {
	store := NewEventStore(testDB(t), "sqlite")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	a := testEvent("f-1", now)
	b := testEvent("f-2", now)
	b.Severity = drift.SeverityCritical
	b.DriftType = drift.TypeSecurity
	b.ResourceName = "allow-ssh"
	if err := store.Store(ctx, []*drift.Event{a, b}); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkResolved(ctx, "f-1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter drift.Filter
		want   []string
	}{
		{"all", drift.Filter{}, []string{"f-1", "f-2"}},
		{"by severity", drift.Filter{Severity: drift.SeverityCritical}, []string{"f-2"}},
		{"by type", drift.Filter{DriftType: drift.TypeSecurity}, []string{"f-2"}},
		{"by resource name", drift.Filter{ResourceName: "allow-ssh"}, []string{"f-2"}},
		{"unresolved only", drift.Filter{Unresolved: true}, []string{"f-2"}},
		{"no match", drift.Filter{Severity: drift.SeverityInfo}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %d events, want %d", len(got), len(tt.want))
			}
			ids := map[string]bool{}
			for _, e := range got {
				ids[e.ID] = true
			}
			for _, id := range tt.want {
				if !ids[id] {
					t.Errorf("List() missing %s", id)
				}
			}
		})
	}
}

func TestEventStore_MarkResolved(t *testing.T) {
	store := NewEventStore(testDB(t), "sqlite")
	ctx := context.Background()

	if err := store.Store(ctx, []*drift.Event{testEvent("r-1", time.Now().UTC())}); err != nil {
		t.Fatal(err)
	}

	if err := store.MarkResolved(ctx, "r-1"); err != nil {
		t.Fatalf("MarkResolved() error = %v", err)
	}

	got, err := store.List(ctx, drift.Filter{Unresolved: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("resolved event still listed as unresolved")
	}

	err = store.MarkResolved(ctx, "no-such-id")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("MarkResolved(unknown) error = %v, want not_found", err)
	}
}

// affectedErrDriver backs a connection whose exec results cannot report
// how many rows changed.
type affectedErrDriver struct{}

func (affectedErrDriver) Open(string) (driver.Conn, error) { return affectedErrConn{}, nil }

type affectedErrConn struct{}

func (affectedErrConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (affectedErrConn) Close() error                        { return nil }
func (affectedErrConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

func (affectedErrConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return affectedErrResult{}, nil
}

type affectedErrResult struct{}

func (affectedErrResult) LastInsertId() (int64, error) { return 0, nil }
func (affectedErrResult) RowsAffected() (int64, error) {
	return 0, errors.New("rows affected unavailable")
}

func TestEventStore_MarkResolvedAffectedRowsError(t *testing.T) {
	// A driver that cannot report affected rows is a persistence failure,
	// not a missing event.
	sql.Register("affected-error", affectedErrDriver{})
	db, err := sql.Open("affected-error", "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewEventStore(db, "sqlite")
	err = store.MarkResolved(context.Background(), "r-1")
	if !apperrors.IsKind(err, apperrors.KindPersistenceFailure) {
		t.Errorf("MarkResolved() error = %v, want persistence failure", err)
	}
}

func TestEventStore_MalformedTimestampRow(t *testing.T) {
	db := testDB(t)
	store := NewEventStore(db, "sqlite")
	ctx := context.Background()

	if err := store.Store(ctx, []*drift.Event{testEvent("bad-ts", time.Now().UTC())}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `UPDATE drift_events SET timestamp = 'not-a-timestamp' WHERE id = 'bad-ts'`); err != nil {
		t.Fatal(err)
	}

	_, err := store.List(ctx, drift.Filter{})
	if !apperrors.IsKind(err, apperrors.KindPersistenceFailure) {
		t.Errorf("List() over corrupt timestamp error = %v, want persistence failure", err)
	}
}

func TestEventStore_Prune(t *testing.T) {
	store := NewEventStore(testDB(t), "sqlite")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	events := []*drift.Event{
		testEvent("old-1", now.AddDate(0, 0, -120)),
		testEvent("old-2", now.AddDate(0, 0, -91)),
		testEvent("fresh", now.AddDate(0, 0, -30)),
	}
	if err := store.Store(ctx, events); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Prune(ctx, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() removed %d rows, want 2", removed)
	}

	got, err := store.List(ctx, drift.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "fresh" {
		t.Errorf("Prune() left %v", got)
	}
}

func TestEventStore_EmptyBatchIsNoOp(t *testing.T) {
	store := NewEventStore(testDB(t), "sqlite")
	if err := store.Store(context.Background(), nil); err != nil {
		t.Errorf("Store(nil) error = %v", err)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		in     string
		want   string
	}{
		{"sqlite", "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"postgres", "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"postgres", "INSERT INTO t VALUES (?, ?, ?)", "INSERT INTO t VALUES ($1, $2, $3)"},
	}

	for _, tt := range tests {
		if got := rebind(tt.driver, tt.in); got != tt.want {
			t.Errorf("rebind(%s, %q) = %q, want %q", tt.driver, tt.in, got, tt.want)
		}
	}
}
