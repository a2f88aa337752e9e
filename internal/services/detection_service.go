package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/driftwatch/internal/detector"
	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	apperrors "github.com/pratik-mahalle/driftwatch/internal/pkg/errors"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/metrics"
)

// RunState is the manager's position in the detection pipeline.
type RunState string

const (
	StateIdle        RunState = "idle"
	StateDetecting   RunState = "detecting"
	StateClassifying RunState = "classifying"
	StatePersisting  RunState = "persisting"
	StateAlerting    RunState = "alerting"
)

// ErrRunInProgress is returned when Run is called while another run is in
// flight. Runs are never queued.
var ErrRunInProgress = apperrors.Conflict("drift detection run already in progress")

// Detector produces raw change observations for one state source.
type Detector interface {
	Name() string
	Detect(ctx context.Context) ([]drift.DetectorResult, error)
}

// Dispatcher forwards high-severity events to notification channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []*drift.Event) error
}

// Snapshotter produces a point-in-time infrastructure fingerprint.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*drift.Snapshot, error)
}

// DetectionManager orchestrates the registered detectors, classifies and
// persists their findings, and triggers alerting for high-severity
// events. At most one run is in flight at a time.
type DetectionManager struct {
	detectors   []Detector
	store       drift.EventStore
	snapshots   drift.SnapshotStore
	snapshotter Snapshotter
	dispatcher  Dispatcher
	logger      *logger.Logger

	mu    sync.Mutex
	state RunState
}

// NewDetectionManager creates a detection manager. snapshots and
// snapshotter may be nil to disable per-run snapshots; dispatcher may be
// nil to disable alerting.
func NewDetectionManager(
	detectors []Detector,
	store drift.EventStore,
	snapshots drift.SnapshotStore,
	snapshotter Snapshotter,
	dispatcher Dispatcher,
	log *logger.Logger,
) *DetectionManager {
	return &DetectionManager{
		detectors:   detectors,
		store:       store,
		snapshots:   snapshots,
		snapshotter: snapshotter,
		dispatcher:  dispatcher,
		logger:      log,
		state:       StateIdle,
	}
}

// State returns the manager's current pipeline state.
func (m *DetectionManager) State() RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *DetectionManager) setState(s RunState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// sourcedResult pairs a raw detector result with its detector's name for
// logging and metrics.
type sourcedResult struct {
	detector string
	result   drift.DetectorResult
}

// Run executes one full detection pass and returns every drift event it
// produced. A persistence failure is returned as an error, but the
// computed events are still returned so the caller can act on them.
func (m *DetectionManager) Run(ctx context.Context) ([]*drift.Event, error) {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return nil, ErrRunInProgress
	}
	m.state = StateDetecting
	m.mu.Unlock()
	defer m.setState(StateIdle)

	started := time.Now()
	defer func() { metrics.RecordRunDuration(time.Since(started)) }()

	runID := uuid.NewString()
	log := m.logger.WithFields(map[string]interface{}{"run_id": runID})
	log.Info("Starting drift detection run")

	results := m.detect(ctx, log)

	m.setState(StateClassifying)
	events := m.classify(results, started)

	m.setState(StatePersisting)
	storeErr := m.persist(ctx, log, events)

	m.setState(StateAlerting)
	m.alert(ctx, log, events)

	log.WithFields(map[string]interface{}{
		"events": len(events),
	}).Info("Drift detection run completed")

	return events, storeErr
}

// detect invokes every registered detector concurrently and joins their
// results. A detector failure or panic is logged and contributes zero
// events; it never aborts the run.
func (m *DetectionManager) detect(ctx context.Context, log *logger.Logger) []sourcedResult {
	type output struct {
		name    string
		results []drift.DetectorResult
		err     error
	}

	outputs := make(chan output, len(m.detectors))
	var wg sync.WaitGroup
	for _, det := range m.detectors {
		wg.Add(1)
		go func(det Detector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outputs <- output{name: det.Name(), err: fmt.Errorf("detector panic: %v", r)}
				}
			}()
			results, err := det.Detect(ctx)
			outputs <- output{name: det.Name(), results: results, err: err}
		}(det)
	}
	wg.Wait()
	close(outputs)

	var results []sourcedResult
	for out := range outputs {
		if out.err != nil {
			metrics.RecordDetectorFailure(out.name)
			log.WithFields(map[string]interface{}{
				"detector": out.name,
			}).ErrorWithErr(apperrors.DetectorFailure("detector run failed", out.err), "Detector failed, contributing no events")
			continue
		}
		for _, r := range out.results {
			results = append(results, sourcedResult{detector: out.name, result: r})
		}
	}
	return results
}

// classify turns raw detector results into drift events. Results whose
// action set is exactly no-op or read carry no drift and are discarded.
func (m *DetectionManager) classify(results []sourcedResult, detectedAt time.Time) []*drift.Event {
	var events []*drift.Event
	for _, sr := range results {
		r := sr.result
		if r.IsNoOp() {
			continue
		}

		driftType := r.DriftType
		if driftType == "" {
			driftType = detector.ClassifyType(r.Actions, r.Before, r.After)
		}
		severity := r.Severity
		if severity == "" {
			severity = detector.ClassifySeverity(r.ResourceType, r.Actions)
		}

		event := &drift.Event{
			ID:            drift.EventID(r.ResourceType, r.ResourceName, driftType, detectedAt),
			Timestamp:     detectedAt,
			DriftType:     driftType,
			Severity:      severity,
			ResourceType:  r.ResourceType,
			ResourceName:  r.ResourceName,
			ExpectedValue: r.Expected,
			ActualValue:   r.Actual,
			Diff:          r.Diff,
			SourceModule:  r.SourceModule,
		}
		if event.ExpectedValue == "" && r.Before != nil {
			event.ExpectedValue = encodeState(r.Before)
		}
		if event.ActualValue == "" && r.After != nil {
			event.ActualValue = encodeState(r.After)
		}
		if event.Diff == "" {
			if r.Before != nil || r.After != nil {
				event.Diff = detector.Diff(r.Before, r.After)
			} else {
				event.Diff = r.Issue
			}
		}

		metrics.RecordDriftEvent(severity, sr.detector)
		events = append(events, event)
	}
	return events
}

// persist writes the run's events in one batch and appends the
// infrastructure snapshot when snapshotting is configured. A persistence
// failure is surfaced to the caller but never discards computed events.
func (m *DetectionManager) persist(ctx context.Context, log *logger.Logger, events []*drift.Event) error {
	var storeErr error
	if err := m.store.Store(ctx, events); err != nil {
		storeErr = err
		log.ErrorWithErr(err, "Failed to store drift events")
	}

	if m.snapshotter != nil && m.snapshots != nil {
		snap, err := m.snapshotter.Snapshot(ctx)
		if err != nil {
			log.ErrorWithErr(err, "Failed to build infrastructure snapshot")
		} else if err := m.snapshots.SaveSnapshot(ctx, snap); err != nil {
			log.ErrorWithErr(err, "Failed to save infrastructure snapshot")
		}
	}

	return storeErr
}

// alert forwards high and critical events to the dispatcher. Delivery
// failures are logged, never propagated.
func (m *DetectionManager) alert(ctx context.Context, log *logger.Logger, events []*drift.Event) {
	if m.dispatcher == nil {
		return
	}

	var high []*drift.Event
	for _, e := range events {
		if drift.SeverityLevel(e.Severity) >= drift.SeverityLevel(drift.SeverityHigh) {
			high = append(high, e)
		}
	}
	if len(high) == 0 {
		return
	}

	if err := m.dispatcher.Dispatch(ctx, high); err != nil {
		log.WithFields(map[string]interface{}{
			"events": len(high),
		}).ErrorWithErr(err, "Failed to dispatch drift alerts")
	}
}

func encodeState(state map[string]interface{}) string {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Sprintf("%v", state)
	}
	return string(b)
}
