package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/pratik-mahalle/driftwatch/internal/detector"
	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	apperrors "github.com/pratik-mahalle/driftwatch/internal/pkg/errors"
)

// MockEventStore is an in-memory implementation of drift.EventStore.
type MockEventStore struct {
	Events        map[string]*drift.Event
	StoreError    error
	QueryError    error
	ResolveError  error
	PruneError    error
	StoreCalls    int
	StoredBatches [][]*drift.Event
}

func NewMockEventStore() *MockEventStore {
	return &MockEventStore{
		Events: make(map[string]*drift.Event),
	}
}

func (m *MockEventStore) Store(ctx context.Context, events []*drift.Event) error {
	m.StoreCalls++
	if m.StoreError != nil {
		return m.StoreError
	}
	m.StoredBatches = append(m.StoredBatches, events)
	for _, ev := range events {
		copied := *ev
		m.Events[ev.ID] = &copied
	}
	return nil
}

func (m *MockEventStore) QuerySince(ctx context.Context, since time.Time) ([]*drift.Event, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	var out []*drift.Event
	for _, ev := range m.Events {
		if !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MockEventStore) List(ctx context.Context, filter drift.Filter) ([]*drift.Event, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	var out []*drift.Event
	for _, ev := range m.Events {
		if filter.DriftType != "" && ev.DriftType != filter.DriftType {
			continue
		}
		if filter.Severity != "" && ev.Severity != filter.Severity {
			continue
		}
		if filter.ResourceType != "" && ev.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceName != "" && ev.ResourceName != filter.ResourceName {
			continue
		}
		if filter.Unresolved && ev.Resolved {
			continue
		}
		out = append(out, ev)
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MockEventStore) MarkResolved(ctx context.Context, id string) error {
	if m.ResolveError != nil {
		return m.ResolveError
	}
	ev, ok := m.Events[id]
	if !ok {
		return apperrors.NotFound("drift event not found: " + id)
	}
	now := time.Now().UTC()
	ev.Resolved = true
	ev.ResolvedAt = &now
	return nil
}

func (m *MockEventStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	if m.PruneError != nil {
		return 0, m.PruneError
	}
	var removed int64
	for id, ev := range m.Events {
		if ev.Timestamp.Before(olderThan) {
			delete(m.Events, id)
			removed++
		}
	}
	return removed, nil
}

func sortNewestFirst(events []*drift.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].ID < events[j].ID
	})
}

// MockSnapshotStore is an in-memory implementation of drift.SnapshotStore.
type MockSnapshotStore struct {
	Snapshots []*drift.Snapshot
	SaveError error
	GetError  error
}

func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{}
}

func (m *MockSnapshotStore) SaveSnapshot(ctx context.Context, snap *drift.Snapshot) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	copied := *snap
	m.Snapshots = append(m.Snapshots, &copied)
	return nil
}

func (m *MockSnapshotStore) LatestSnapshot(ctx context.Context) (*drift.Snapshot, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	if len(m.Snapshots) == 0 {
		return nil, apperrors.NotFound("no snapshots recorded")
	}
	return m.Snapshots[len(m.Snapshots)-1], nil
}

func (m *MockSnapshotStore) SnapshotsSince(ctx context.Context, since time.Time) ([]*drift.Snapshot, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	var out []*drift.Snapshot
	for i := len(m.Snapshots) - 1; i >= 0; i-- {
		if !m.Snapshots[i].Timestamp.Before(since) {
			out = append(out, m.Snapshots[i])
		}
	}
	return out, nil
}

// MockInventory is a canned implementation of detector.Inventory.
type MockInventory struct {
	ResourceList  []detector.Resource
	Baseline      map[string]float64
	ResourceError error
	BaselineError error
}

func (m *MockInventory) Resources(ctx context.Context, projectID string) ([]detector.Resource, error) {
	if m.ResourceError != nil {
		return nil, m.ResourceError
	}
	return m.ResourceList, nil
}

func (m *MockInventory) CostBaseline(ctx context.Context, projectID string) (map[string]float64, error) {
	if m.BaselineError != nil {
		return nil, m.BaselineError
	}
	return m.Baseline, nil
}

// MockPlanRunner is a canned implementation of detector.PlanRunner.
type MockPlanRunner struct {
	Result *detector.PlanResult
	Err    error
	Calls  int
}

func (m *MockPlanRunner) Plan(ctx context.Context, dir string) (*detector.PlanResult, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// MockWebhookSender records webhook payloads.
type MockWebhookSender struct {
	Payloads [][]byte
	URLs     []string
	Err      error
}

func (m *MockWebhookSender) Send(ctx context.Context, url string, payload []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.URLs = append(m.URLs, url)
	m.Payloads = append(m.Payloads, payload)
	return nil
}

// MockEmailSender records outgoing email digests.
type MockEmailSender struct {
	Recipients [][]string
	Subjects   []string
	Messages   []string
	Err        error
}

func (m *MockEmailSender) Send(ctx context.Context, recipients []string, subject, message string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Recipients = append(m.Recipients, recipients)
	m.Subjects = append(m.Subjects, subject)
	m.Messages = append(m.Messages, message)
	return nil
}

// StubDetector returns canned results for manager tests.
type StubDetector struct {
	DetectorName string
	Results      []drift.DetectorResult
	Err          error
	Calls        int
	PanicOnCall  bool
}

func (d *StubDetector) Name() string {
	return d.DetectorName
}

func (d *StubDetector) Detect(ctx context.Context) ([]drift.DetectorResult, error) {
	d.Calls++
	if d.PanicOnCall {
		panic("detector panic: " + d.DetectorName)
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Results, nil
}

// StubSnapshotter returns a canned snapshot.
type StubSnapshotter struct {
	Snap *drift.Snapshot
	Err  error
}

func (s *StubSnapshotter) Snapshot(ctx context.Context) (*drift.Snapshot, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Snap, nil
}

// MockDispatcher records dispatched event batches.
type MockDispatcher struct {
	Batches [][]*drift.Event
	Err     error
}

func (m *MockDispatcher) Dispatch(ctx context.Context, events []*drift.Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.Batches = append(m.Batches, events)
	return nil
}
