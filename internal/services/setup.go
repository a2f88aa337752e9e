package services

import (
	"context"

	"github.com/pratik-mahalle/driftwatch/internal/config"
	"github.com/pratik-mahalle/driftwatch/internal/detector"
	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
)

// Options carries the external collaborators a deployment plugs into the
// engine. Zero values select the built-in defaults.
type Options struct {
	// PlanRunner overrides the terraform binary invocation.
	PlanRunner detector.PlanRunner
	// Inventory supplies live cloud resources. Without one the resource
	// detector reports nothing.
	Inventory detector.Inventory
	// Webhook overrides the HTTP webhook sender.
	Webhook WebhookSender
	// Email overrides the email collaborator.
	Email EmailSender
}

// BuildManager assembles the detection manager from configuration:
// registers each enabled detector, creates the configuration baseline,
// and wires snapshotting and alerting. A detector whose construction
// fails is logged and skipped; it does not prevent the others from
// registering.
func BuildManager(
	cfg *config.Config,
	store drift.EventStore,
	snapshots drift.SnapshotStore,
	log *logger.Logger,
	opts Options,
) *DetectionManager {
	var detectors []Detector

	if cfg.Terraform.Enabled {
		planDet, err := detector.NewPlanDetector(cfg.Terraform.Directory, cfg.Terraform.PlanTimeout(), opts.PlanRunner, log)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"directory": cfg.Terraform.Directory,
			}).ErrorWithErr(err, "Terraform detector not registered")
		} else {
			detectors = append(detectors, planDet)
		}
	}

	if cfg.CloudResources.Enabled {
		inventory := opts.Inventory
		if inventory == nil {
			log.Warn("Resource detector enabled without an inventory collaborator; it will report nothing")
			inventory = emptyInventory{}
		}
		detectors = append(detectors, detector.NewResourceDetector(
			cfg.CloudResources.ProjectID,
			cfg.CloudResources.RequiredTags,
			cfg.CloudResources.CostIncreasePct,
			inventory,
			log,
		))
	}

	var configDet *detector.ConfigDetector
	if cfg.Configuration.Enabled {
		configDet = detector.NewConfigDetector(cfg.Configuration.Paths, log)
		configDet.CreateBaseline()
		detectors = append(detectors, configDet)
	}

	var snapshotter Snapshotter
	if cfg.Snapshots.Enabled {
		terraformDir := ""
		if cfg.Terraform.Enabled {
			terraformDir = cfg.Terraform.Directory
		}
		var configHash func() string
		if configDet != nil {
			configHash = configDet.BaselineHash
		}
		snapshotter = NewInfraSnapshotter(terraformDir, configHash, log)
	}

	var dispatcher Dispatcher
	if cfg.Alerting.Enabled {
		webhook := opts.Webhook
		if webhook == nil {
			webhook = NewHTTPWebhookSender()
		}
		email := opts.Email
		if email == nil {
			email = NewLogEmailSender(log)
		}
		dispatcher = NewAlertDispatcher(cfg.Alerting, webhook, email, log)
	}

	return NewDetectionManager(detectors, store, snapshots, snapshotter, dispatcher, log)
}

// emptyInventory stands in when no inventory collaborator is configured.
type emptyInventory struct{}

func (emptyInventory) Resources(context.Context, string) ([]detector.Resource, error) {
	return nil, nil
}

func (emptyInventory) CostBaseline(context.Context, string) (map[string]float64, error) {
	return nil, nil
}
