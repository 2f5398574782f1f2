// Package recordingrules provisions the default Azure Monitor managed
// Prometheus recording-rule groups for an AKS cluster.
//
// Templates are read from the workspace's alertRuleRecommendations API,
// filtered down to well-formed Prometheus rule-group templates, assigned to
// named roles, and written back as Microsoft.AlertsManagement/prometheusRuleGroups
// resources with a bounded, immediate retry.
package recordingrules

import "context"

// API versions used against the management plane.
const (
	AlertsAPIVersion = "2023-01-01-preview"
	RulesAPIVersion  = "2023-03-01"
)

const (
	// RuleGroupType is the ARM resource type of a Prometheus rule group.
	RuleGroupType = "Microsoft.AlertsManagement/prometheusRuleGroups"

	// DefaultInterval is the evaluation interval of every default rule group.
	DefaultInterval = "PT1M"

	// MaxAttempts bounds the PUT attempts for a single rule group.
	MaxAttempts = 3

	userAgentPrefix = "azuremonitormetrics"
)

// ManagementClient is the subset of the ARM client the provisioner needs.
// *arm.Client satisfies it.
type ManagementClient interface {
	Get(ctx context.Context, path, apiVersion, userAgent string) ([]byte, error)
	Put(ctx context.Context, path, apiVersion, userAgent string, body any) error
}

// Recorder observes a provisioning run. The collector package implements it;
// a nil Recorder on the Provisioner disables observation.
type Recorder interface {
	ObserveTemplates(accepted, rejected int)
	ObserveAttempt(group string, err error)
	ObserveGroup(group string, enabled bool, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTemplates(int, int) {}
func (nopRecorder) ObserveAttempt(string, error) {}
func (nopRecorder) ObserveGroup(string, bool, error) {}
