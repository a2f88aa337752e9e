package services

import (
	"context"
	"time"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	"github.com/pratik-mahalle/driftwatch/internal/iac/terraform"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
)

// InfraSnapshotter fingerprints the declared infrastructure state for
// longitudinal tracking: the terraform directory supplies the state hash
// and resource listing, the configuration detector's baseline supplies
// the configuration hash.
type InfraSnapshotter struct {
	terraformDir string
	configHash   func() string
	logger       *logger.Logger
}

// NewInfraSnapshotter creates a snapshotter. terraformDir may be empty
// when the plan detector is disabled; configHash may be nil when the
// configuration detector is disabled.
func NewInfraSnapshotter(terraformDir string, configHash func() string, log *logger.Logger) *InfraSnapshotter {
	return &InfraSnapshotter{
		terraformDir: terraformDir,
		configHash:   configHash,
		logger:       log,
	}
}

// Snapshot builds a point-in-time fingerprint of the infrastructure.
func (s *InfraSnapshotter) Snapshot(_ context.Context) (*drift.Snapshot, error) {
	snap := &drift.Snapshot{
		Timestamp: time.Now(),
		Resources: map[string]string{},
	}

	if s.terraformDir != "" {
		state, err := terraform.ScanDir(s.terraformDir)
		if err != nil {
			return nil, err
		}
		for _, parseErr := range state.Errors {
			s.logger.ErrorWithErr(parseErr, "Skipping unparseable terraform file in snapshot")
		}
		snap.StateHash = state.StateHash
		snap.ResourceCount = state.ResourceCount
		snap.Resources = state.Resources
	}

	if s.configHash != nil {
		snap.ConfigurationHash = s.configHash()
	}

	return snap, nil
}
