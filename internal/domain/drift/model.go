package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Drift types
const (
	TypeConfiguration = "configuration"
	TypeResourceCount = "resource_count"
	TypeResourceState = "resource_state"
	TypeSecurity      = "security"
	TypeCost          = "cost"
	TypePermissions   = "permissions"
)

// Severity levels, ordered low to high
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SeverityLevel converts a severity string to its numeric rank.
// Unknown severities rank below info.
func SeverityLevel(severity string) int {
	switch severity {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s string) bool {
	return SeverityLevel(s) >= 0
}

// Plan actions
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDestroy = "destroy"
	ActionNoOp    = "no-op"
	ActionRead    = "read"
)

// Event is a single observed divergence between declared and actual state.
// Immutable once written, except Resolved/ResolvedAt which an operator
// workflow may update through the store.
type Event struct {
	ID               string     `json:"id"`
	Timestamp        time.Time  `json:"timestamp"`
	DriftType        string     `json:"drift_type"`
	Severity         string     `json:"severity"`
	ResourceType     string     `json:"resource_type"`
	ResourceName     string     `json:"resource_name"`
	ExpectedValue    string     `json:"expected_value"`
	ActualValue      string     `json:"actual_value"`
	Diff             string     `json:"diff,omitempty"`
	SourceModule     string     `json:"source_module,omitempty"`
	RemediationHint  string     `json:"remediation_hint,omitempty"`
	AutoFixAvailable bool       `json:"auto_fix_available"`
	Resolved         bool       `json:"resolved"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

// EventID derives the stable identifier for a drift event. The drift type
// participates in the hash so two distinct drift causes observed for the same
// resource on the same day keep distinct ids, while re-detecting the same
// condition within a day stays idempotent.
func EventID(resourceType, resourceName, driftType string, detectedAt time.Time) string {
	content := fmt.Sprintf("%s|%s|%s|%s", resourceType, resourceName, driftType, detectedAt.UTC().Format("20060102"))
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// Snapshot is a point-in-time fingerprint of the whole infrastructure,
// used for longitudinal cost and size tracking. Append-only.
type Snapshot struct {
	Timestamp         time.Time         `json:"timestamp"`
	StateHash         string            `json:"state_hash"`
	ResourceCount     int               `json:"resource_count"`
	Resources         map[string]string `json:"resources"`
	ConfigurationHash string            `json:"configuration_hash"`
	CostEstimate      *float64          `json:"cost_estimate,omitempty"`
}

// DetectorResult is a detector's raw change observation before
// classification. It is transient and never persisted.
type DetectorResult struct {
	ResourceType string
	ResourceName string
	Actions      []string
	Before       map[string]interface{}
	After        map[string]interface{}

	// Detectors that classify at the source (resource and configuration
	// checks) pre-assign these; the plan detector leaves them empty and
	// lets the classifier decide.
	DriftType string
	Severity  string
	Expected  string
	Actual    string
	Issue     string
	Diff      string

	SourceModule string
}

// IsNoOp reports whether the action set is exactly {no-op} or {read},
// meaning the result carries no drift and must be discarded.
func (r DetectorResult) IsNoOp() bool {
	if len(r.Actions) != 1 {
		return false
	}
	return r.Actions[0] == ActionNoOp || r.Actions[0] == ActionRead
}

// HasAction reports whether the action set contains the given action.
func (r DetectorResult) HasAction(action string) bool {
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Filter contains event filtering options for store queries.
type Filter struct {
	ResourceType string
	ResourceName string
	DriftType    string
	Severity     string
	Unresolved   bool
}
