package rules

import "fmt"

// AlertRules generates alert rules for provisioning runs.
func AlertRules(cfg AlertConfig) RuleFile {
	rules := []Rule{
		// Run outcome.
		{
			Alert:  "AksRulesProvisioningFailed",
			Expr:   "aks_rules_up == 0",
			For:    "0m",
			Labels: map[string]string{"severity": "critical"},
			Annotations: map[string]string{
				"summary":     "Recording rule provisioning failed for cluster {{ $labels.cluster }}",
				"description": "The last provisioning run did not write every rule group. Check the provisioner logs.",
			},
		},
		{
			Alert:  "AksRulesRuleGroupFailed",
			Expr:   "aks_rules_rule_group_provisioned == 0",
			For:    "0m",
			Labels: map[string]string{"severity": "critical"},
			Annotations: map[string]string{
				"summary": "Rule group {{ $labels.rule_group }} was not written for cluster {{ $labels.cluster }}",
			},
		},
		{
			Alert:  "AksRulesRuleGroupRetried",
			Expr:   `aks_rules_rule_group_attempts_total{result="failure"} > 0`,
			For:    "0m",
			Labels: map[string]string{"severity": "info"},
			Annotations: map[string]string{
				"summary": "Rule group {{ $labels.rule_group }} needed {{ $value }} failed attempt(s)",
			},
		},
		// Templates.
		{
			Alert:  "AksRulesTemplatesRejected",
			Expr:   `aks_rules_templates{state="rejected"} > 0`,
			For:    "0m",
			Labels: map[string]string{"severity": "warning"},
			Annotations: map[string]string{
				"summary":     "{{ $value }} recording rule template(s) rejected for cluster {{ $labels.cluster }}",
				"description": "The recommendations API returned templates without the expected shape. They were skipped.",
			},
		},
		{
			Alert:  "AksRulesTooFewTemplates",
			Expr:   fmt.Sprintf(`aks_rules_templates{state="accepted"} < %d`, cfg.RequiredTemplates),
			For:    "0m",
			Labels: map[string]string{"severity": "critical"},
			Annotations: map[string]string{
				"summary": fmt.Sprintf("Only {{ $value }} compliant templates for cluster {{ $labels.cluster }}, need %d", cfg.RequiredTemplates),
			},
		},
		// Staleness.
		{
			Alert:  "AksRulesProvisionerStale",
			Expr:   fmt.Sprintf("time() - aks_rules_last_run_timestamp_seconds > %d", cfg.StaleAfterSeconds),
			For:    "15m",
			Labels: map[string]string{"severity": "warning"},
			Annotations: map[string]string{
				"summary": fmt.Sprintf("No provisioning run for cluster {{ $labels.cluster }} in %s", cfg.StaleAfter),
			},
		},
	}

	return RuleFile{
		Groups: []RuleGroup{
			{
				Name:  "aks_rules_provisioner",
				Rules: rules,
			},
		},
	}
}

// AlertPrometheusRule wraps the alert rules in a PrometheusRule custom
// resource for the Prometheus Operator.
func AlertPrometheusRule(namespace string, cfg AlertConfig) PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name:      "aks-rules-provisioner",
			Namespace: namespace,
			Labels:    map[string]string{"app.kubernetes.io/name": "aks-rules-provisioner"},
		},
		Spec: PrometheusRuleSpec{Groups: AlertRules(cfg).Groups},
	}
}
