package recordingrules

import (
	"fmt"
	"strings"
)

// Rejection records why a recommendations entry was not accepted.
type Rejection struct {
	Index  int
	Name   string
	Reason string
}

func (r Rejection) String() string {
	name := r.Name
	if name == "" {
		name = "<unnamed>"
	}

	return fmt.Sprintf("template[%d] %s: %s", r.Index, name, r.Reason)
}

// FilterTemplates keeps the entries that are Prometheus rule-group templates
// whose rule-group resources contain only well-formed recording rules.
// Accepted templates keep their original order.
func FilterTemplates(entries []any) ([]Template, []Rejection) {
	var (
		accepted []Template
		rejected []Rejection
	)

	for i, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			rejected = append(rejected, Rejection{Index: i, Reason: fmt.Sprintf("entry is %T, not an object", e)})
			continue
		}

		if reason := checkTemplate(entry); reason != "" {
			rejected = append(rejected, Rejection{Index: i, Name: stringField(entry, "name"), Reason: reason})
			continue
		}

		accepted = append(accepted, decodeTemplate(entry))
	}

	return accepted, rejected
}

// checkTemplate returns an empty string when the entry is acceptable, and the
// reason it is not otherwise.
func checkTemplate(entry map[string]any) string {
	props := objectField(entry, "properties")

	ruleType := stringField(props, "alertRuleType")
	if !strings.EqualFold(ruleType, RuleGroupType) {
		return fmt.Sprintf("alertRuleType %q is not %s", ruleType, RuleGroupType)
	}

	resources, ok := rulesArmResources(entry)
	if !ok {
		return "rulesArmTemplate.resources is not an array"
	}

	for i, r := range resources {
		res, ok := r.(map[string]any)
		if !ok {
			return fmt.Sprintf("resource[%d] is not an object", i)
		}

		if !strings.EqualFold(stringField(res, "type"), RuleGroupType) {
			continue
		}

		rawRules, present := objectField(res, "properties")["rules"]
		if !present || rawRules == nil {
			continue
		}

		rules, ok := rawRules.([]any)
		if !ok {
			return fmt.Sprintf("resource[%d].properties.rules is not an array", i)
		}

		for j, rule := range rules {
			if reason := checkRule(rule); reason != "" {
				return fmt.Sprintf("resource[%d] rule[%d]: %s", i, j, reason)
			}
		}
	}

	return ""
}

func checkRule(rule any) string {
	obj, ok := rule.(map[string]any)
	if !ok {
		return "not an object"
	}

	if stringField(obj, "record") == "" {
		return "missing record"
	}

	if stringField(obj, "expression") == "" {
		return "missing expression"
	}

	return ""
}
