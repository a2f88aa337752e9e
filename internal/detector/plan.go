package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	apperrors "github.com/pratik-mahalle/driftwatch/internal/pkg/errors"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
)

const (
	// DefaultPlanTimeout bounds a single plan invocation.
	DefaultPlanTimeout = 300 * time.Second

	// MinPlanTimeout is the lowest timeout a caller may configure.
	MinPlanTimeout = 60 * time.Second
)

// PlanResult is the outcome of one plan tool invocation.
type PlanResult struct {
	HasChanges bool
	// Document holds the JSON plan document when HasChanges is true.
	Document []byte
}

// PlanRunner invokes an external plan tool in a directory and reports
// whether reconciling changes exist.
type PlanRunner interface {
	Plan(ctx context.Context, dir string) (*PlanResult, error)
}

// planDocument mirrors the resource_changes section of a plan JSON
// document. Payloads are parsed into these structs at the detector
// boundary so the rest of the engine never handles untyped maps.
type planDocument struct {
	ResourceChanges []resourceChange `json:"resource_changes"`
}

type resourceChange struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	ModuleAddress string `json:"module_address"`
	Change        struct {
		Actions []string               `json:"actions"`
		Before  map[string]interface{} `json:"before"`
		After   map[string]interface{} `json:"after"`
	} `json:"change"`
}

// PlanDetector detects drift by running an infrastructure plan inside the
// target IaC directory and parsing the resulting change set.
type PlanDetector struct {
	dir     string
	timeout time.Duration
	runner  PlanRunner
	logger  *logger.Logger
}

// NewPlanDetector creates a plan detector for the given IaC directory.
// A missing directory is a hard construction failure; runtime plan
// failures are isolated to the detector and downgraded to logs.
func NewPlanDetector(dir string, timeout time.Duration, runner PlanRunner, log *logger.Logger) (*PlanDetector, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, apperrors.InvalidConfig(fmt.Sprintf("terraform directory does not exist: %s", dir))
	}

	if timeout == 0 {
		timeout = DefaultPlanTimeout
	}
	if timeout < MinPlanTimeout {
		timeout = MinPlanTimeout
	}
	if runner == nil {
		runner = &TerraformRunner{}
	}

	return &PlanDetector{
		dir:     dir,
		timeout: timeout,
		runner:  runner,
		logger:  log,
	}, nil
}

// Name identifies the detector in logs and metrics.
func (d *PlanDetector) Name() string { return "terraform" }

// Detect satisfies the manager's detector contract.
func (d *PlanDetector) Detect(ctx context.Context) ([]drift.DetectorResult, error) {
	_, results := d.Run(ctx)
	return results, nil
}

// Run invokes the plan tool and parses its change set. Tool failures,
// timeouts and malformed output are logged and reported as no drift; the
// error never escapes to sibling detectors.
func (d *PlanDetector) Run(ctx context.Context) (bool, []drift.DetectorResult) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	plan, err := d.runner.Plan(ctx, d.dir)
	if err != nil {
		d.logger.WithFields(map[string]interface{}{
			"directory": d.dir,
		}).ErrorWithErr(err, "Terraform plan failed")
		return false, nil
	}

	if !plan.HasChanges {
		return false, nil
	}

	var doc planDocument
	if err := json.Unmarshal(plan.Document, &doc); err != nil {
		d.logger.ErrorWithErr(err, "Failed to parse terraform plan JSON")
		return false, nil
	}

	var results []drift.DetectorResult
	for _, change := range doc.ResourceChanges {
		result := drift.DetectorResult{
			ResourceType: change.Type,
			ResourceName: change.Name,
			Actions:      normalizeActions(change.Change.Actions),
			Before:       change.Change.Before,
			After:        change.Change.After,
			SourceModule: change.ModuleAddress,
		}
		if result.IsNoOp() {
			continue
		}
		if result.ResourceType == "" {
			result.ResourceType = "unknown"
		}
		if result.ResourceName == "" {
			result.ResourceName = "unknown"
		}
		results = append(results, result)
	}

	return true, results
}

// normalizeActions maps terraform's "delete" to the engine's destroy
// vocabulary; other actions pass through unchanged.
func normalizeActions(actions []string) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		if a == "delete" {
			a = drift.ActionDestroy
		}
		out[i] = a
	}
	return out
}

// TerraformRunner runs the terraform binary. Plan and show are separate
// invocations because the machine-readable plan document only exists once
// the plan file has been written.
type TerraformRunner struct {
	// Binary overrides the terraform executable path.
	Binary string
}

const planFileName = "tfplan.out"

// Plan runs terraform plan with a detailed exit code and, when changes
// exist, renders the plan file as JSON. The context bound terminates the
// child process on expiry.
func (r *TerraformRunner) Plan(ctx context.Context, dir string) (*PlanResult, error) {
	binary := r.Binary
	if binary == "" {
		binary = "terraform"
	}

	planFile := filepath.Join(dir, planFileName)
	defer os.Remove(planFile)

	plan := exec.CommandContext(ctx, binary, "plan", "-detailed-exitcode", "-input=false", "-no-color", "-out="+planFileName)
	plan.Dir = dir
	output, err := plan.CombinedOutput()

	// Exit code 0 means no changes, 2 means changes exist.
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 2 {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("terraform plan timed out: %w", ctx.Err())
			}
			return nil, fmt.Errorf("terraform plan failed: %w: %s", err, string(output))
		}
	} else {
		return &PlanResult{HasChanges: false}, nil
	}

	show := exec.CommandContext(ctx, binary, "show", "-json", planFileName)
	show.Dir = dir
	doc, err := show.Output()
	if err != nil {
		return nil, fmt.Errorf("terraform show failed: %w", err)
	}

	return &PlanResult{HasChanges: true, Document: doc}, nil
}
