package detector

import (
	"encoding/json"
	"strings"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
)

// CriticalResources are resource types whose changes always escalate
// severity: firewall rules, IAM bindings and managed database instances.
var CriticalResources = map[string]bool{
	"google_compute_firewall":      true,
	"google_project_iam_binding":   true,
	"google_sql_database_instance": true,
}

// securityFields are field-name fragments that mark an update as
// security-relevant when they appear in either side of the change.
var securityFields = []string{
	"security_group",
	"iam_policy",
	"firewall",
	"acl",
}

// severityRule is one row of the severity decision table.
type severityRule struct {
	criticalOnly bool   // rule applies only to critical resource types
	action       string // required action
	severity     string
}

// severityTable is evaluated in order; the first matching row wins and a
// missing match falls through to low. Kept as data so the table is
// independently testable.
var severityTable = []severityRule{
	{criticalOnly: true, action: drift.ActionDestroy, severity: drift.SeverityCritical},
	{criticalOnly: true, action: drift.ActionCreate, severity: drift.SeverityHigh},
	{criticalOnly: true, action: drift.ActionUpdate, severity: drift.SeverityHigh},
	{criticalOnly: false, action: drift.ActionDestroy, severity: drift.SeverityHigh},
	{criticalOnly: false, action: drift.ActionCreate, severity: drift.SeverityMedium},
	{criticalOnly: false, action: drift.ActionUpdate, severity: drift.SeverityMedium},
}

// ClassifyType maps a change's action set and before/after state to a
// drift type.
func ClassifyType(actions []string, before, after map[string]interface{}) string {
	if containsAction(actions, drift.ActionCreate) || containsAction(actions, drift.ActionDestroy) {
		return drift.TypeResourceCount
	}
	if containsAction(actions, drift.ActionUpdate) {
		if touchesSecurityField(before) || touchesSecurityField(after) {
			return drift.TypeSecurity
		}
		return drift.TypeConfiguration
	}
	return drift.TypeResourceState
}

// ClassifySeverity maps a resource type and action set to a severity by
// walking the decision table.
func ClassifySeverity(resourceType string, actions []string) string {
	critical := CriticalResources[resourceType]
	for _, rule := range severityTable {
		if rule.criticalOnly && !critical {
			continue
		}
		if containsAction(actions, rule.action) {
			return rule.severity
		}
	}
	return drift.SeverityLow
}

func containsAction(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

func touchesSecurityField(state map[string]interface{}) bool {
	if len(state) == 0 {
		return false
	}
	serialized, err := json.Marshal(state)
	if err != nil {
		return false
	}
	s := string(serialized)
	for _, field := range securityFields {
		if strings.Contains(s, field) {
			return true
		}
	}
	return false
}
