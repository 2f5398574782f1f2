package recordingrules

import "fmt"

// RuleGroup is a planned Microsoft.AlertsManagement/prometheusRuleGroups resource.
type RuleGroup struct {
	Role        Role
	ID          string
	Name        string
	Location    string
	WorkspaceID string
	ClusterName string
	Enabled     bool
	Interval    string
	Rules       []Rule
}

// RuleGroupResource is the JSON body of a rule group PUT.
type RuleGroupResource struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Type       string              `json:"type"`
	Location   string              `json:"location"`
	Properties RuleGroupProperties `json:"properties"`
}

// RuleGroupProperties is the properties block of a RuleGroupResource.
type RuleGroupProperties struct {
	Scopes      []string `json:"scopes"`
	Enabled     bool     `json:"enabled"`
	ClusterName string   `json:"clusterName"`
	Interval    string   `json:"interval"`
	Rules       []Rule   `json:"rules"`
}

// Resource returns the request body for the group.
func (g RuleGroup) Resource() RuleGroupResource {
	rules := g.Rules
	if rules == nil {
		rules = []Rule{}
	}

	return RuleGroupResource{
		ID:       g.ID,
		Name:     g.Name,
		Type:     RuleGroupType,
		Location: g.Location,
		Properties: RuleGroupProperties{
			Scopes:      []string{g.WorkspaceID},
			Enabled:     g.Enabled,
			ClusterName: g.ClusterName,
			Interval:    g.Interval,
			Rules:       rules,
		},
	}
}

// BuildRuleGroups turns role assignments into rule groups for the cluster
// described by params. Non-Windows roles are always enabled; Windows roles
// follow the enable_windows_recording_rules parameter.
func BuildRuleGroups(params Params, assignments []Assignment, nameFunc NameFunc) ([]RuleGroup, error) {
	if nameFunc == nil {
		nameFunc = DefaultRuleGroupName
	}

	windows := WindowsRulesEnabled(params.Raw)
	groups := make([]RuleGroup, 0, len(assignments))

	for _, a := range assignments {
		rules, err := a.Template.FirstResourceRules()
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", a.Role, err)
		}

		name := nameFunc(a.Template.Name, params.ClusterName)
		enabled := true

		if a.Role.Windows() {
			enabled = windows
		}

		groups = append(groups, RuleGroup{
			Role:        a.Role,
			ID:          RuleGroupResourceID(params.ClusterSubscription, params.ClusterResourceGroup, name),
			Name:        name,
			Location:    params.Region,
			WorkspaceID: params.WorkspaceResourceID,
			ClusterName: params.ClusterName,
			Enabled:     enabled,
			Interval:    DefaultInterval,
			Rules:       rules,
		})
	}

	return groups, nil
}
