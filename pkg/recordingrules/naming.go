package recordingrules

import "fmt"

// MaxRuleGroupNameLength is the longest rule group name ARM accepts.
const MaxRuleGroupNameLength = 260

// NameFunc derives a rule group name from a template name and cluster name.
type NameFunc func(templateName, clusterName string) string

// DefaultRuleGroupName joins template and cluster names and truncates the
// result to MaxRuleGroupNameLength.
func DefaultRuleGroupName(templateName, clusterName string) string {
	return TruncateRuleGroupName(templateName + "-" + clusterName)
}

// TruncateRuleGroupName keeps at most MaxRuleGroupNameLength characters.
func TruncateRuleGroupName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxRuleGroupNameLength {
		return name
	}

	return string(runes[:MaxRuleGroupNameLength])
}

// RuleGroupResourceID returns the ARM resource id of a rule group.
func RuleGroupResourceID(subscription, resourceGroup, name string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s",
		subscription, resourceGroup, RuleGroupType, name)
}

// recommendationsPath returns the alertRuleRecommendations path of a workspace.
func recommendationsPath(workspaceID string) string {
	return workspaceID + "/providers/microsoft.alertsManagement/alertRuleRecommendations"
}
