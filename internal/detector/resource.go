package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
)

// Resource is one live cloud resource as reported by the inventory
// collaborator.
type Resource struct {
	Type          string
	Name          string
	Tags          map[string]string
	EstimatedCost float64
}

// Inventory supplies the live resource listing and trailing cost baseline
// for a project. Implementations live outside the engine.
type Inventory interface {
	Resources(ctx context.Context, projectID string) ([]Resource, error)
	CostBaseline(ctx context.Context, projectID string) (map[string]float64, error)
}

// DefaultRequiredTags is the tag set every resource must carry unless the
// detector is configured otherwise.
var DefaultRequiredTags = []string{"environment", "owner", "managed_by"}

// costCriticalIncreasePct is the cost increase beyond which an anomaly is
// high severity rather than medium.
const costCriticalIncreasePct = 50.0

// ResourceDetector compares live resource tag and cost summaries against
// the tagging policy and the trailing cost baseline.
type ResourceDetector struct {
	projectID       string
	requiredTags    []string
	costIncreasePct float64
	inventory       Inventory
	logger          *logger.Logger
}

// NewResourceDetector creates a resource detector. costIncreasePct is the
// allowed cost growth over the trailing baseline before a cost drift is
// raised.
func NewResourceDetector(projectID string, requiredTags []string, costIncreasePct float64, inv Inventory, log *logger.Logger) *ResourceDetector {
	if len(requiredTags) == 0 {
		requiredTags = DefaultRequiredTags
	}
	if costIncreasePct <= 0 {
		costIncreasePct = 10.0
	}
	return &ResourceDetector{
		projectID:       projectID,
		requiredTags:    requiredTags,
		costIncreasePct: costIncreasePct,
		inventory:       inv,
		logger:          log,
	}
}

// Name identifies the detector in logs and metrics.
func (d *ResourceDetector) Name() string { return "cloud_resources" }

// Detect satisfies the manager's detector contract.
func (d *ResourceDetector) Detect(ctx context.Context) ([]drift.DetectorResult, error) {
	return d.Run(ctx), nil
}

// Run checks the inventory against the tag and cost policies. An
// inventory failure is logged and yields an empty result, never a crash.
func (d *ResourceDetector) Run(ctx context.Context) []drift.DetectorResult {
	resources, err := d.inventory.Resources(ctx, d.projectID)
	if err != nil {
		d.logger.WithFields(map[string]interface{}{
			"project_id": d.projectID,
		}).ErrorWithErr(err, "Failed to list cloud resources")
		return nil
	}

	var results []drift.DetectorResult
	results = append(results, d.checkTags(resources)...)
	results = append(results, d.checkCosts(ctx, resources)...)
	return results
}

// checkTags flags resources missing any of the required tags.
func (d *ResourceDetector) checkTags(resources []Resource) []drift.DetectorResult {
	var results []drift.DetectorResult
	for _, res := range resources {
		var missing []string
		for _, tag := range d.requiredTags {
			if _, ok := res.Tags[tag]; !ok {
				missing = append(missing, tag)
			}
		}
		if len(missing) == 0 {
			continue
		}
		sort.Strings(missing)
		results = append(results, drift.DetectorResult{
			ResourceType: res.Type,
			ResourceName: res.Name,
			DriftType:    drift.TypeConfiguration,
			Severity:     drift.SeverityMedium,
			Issue:        "Missing required tags",
			Expected:     "Required tags present: " + strings.Join(d.requiredTags, ", "),
			Actual:       "Missing tags: " + strings.Join(missing, ", "),
		})
	}
	return results
}

// checkCosts flags resources whose estimated cost grew beyond the allowed
// percentage over their trailing baseline.
func (d *ResourceDetector) checkCosts(ctx context.Context, resources []Resource) []drift.DetectorResult {
	baselines, err := d.inventory.CostBaseline(ctx, d.projectID)
	if err != nil {
		d.logger.WithFields(map[string]interface{}{
			"project_id": d.projectID,
		}).ErrorWithErr(err, "Failed to fetch cost baseline")
		return nil
	}

	var results []drift.DetectorResult
	for _, res := range resources {
		baseline, ok := baselines[res.Name]
		if !ok || baseline <= 0 {
			continue
		}
		increase := (res.EstimatedCost - baseline) / baseline * 100
		if increase <= d.costIncreasePct {
			continue
		}

		severity := drift.SeverityMedium
		if increase > costCriticalIncreasePct {
			severity = drift.SeverityHigh
		}
		results = append(results, drift.DetectorResult{
			ResourceType: res.Type,
			ResourceName: res.Name,
			DriftType:    drift.TypeCost,
			Severity:     severity,
			Issue:        fmt.Sprintf("Cost increase of %.1f%%", increase),
			Expected:     fmt.Sprintf("$%.2f", baseline),
			Actual:       fmt.Sprintf("$%.2f", res.EstimatedCost),
		})
	}
	return results
}
