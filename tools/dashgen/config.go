package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/common/model"
)

// Config defines what the dashboard generator produces.
type Config struct {
	// OutputDir is the directory to write dashboard JSON files.
	OutputDir string

	// RulesDir is the directory to write alert rules YAML files.
	RulesDir string

	// RuleNamespace is the Kubernetes namespace of the PrometheusRule resource.
	// Empty skips the PrometheusRule output.
	RuleNamespace string

	// StaleAfter is how long without a finished run before alerting.
	StaleAfter string

	// RequiredTemplates is the number of compliant templates a run needs.
	RequiredTemplates int
}

// DefaultConfig generates the dashboard and alert rules for a provisioner
// that runs at least daily.
var DefaultConfig = Config{
	OutputDir:         "contrib/grafana",
	RulesDir:          "contrib/prometheus",
	RuleNamespace:     "monitoring",
	StaleAfter:        "2d",
	RequiredTemplates: 4,
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}

	if c.RulesDir == "" {
		errs = append(errs, errors.New("rules_dir is required"))
	}

	if d, err := model.ParseDuration(c.StaleAfter); err != nil {
		errs = append(errs, fmt.Errorf("stale_after: %w", err))
	} else if time.Duration(d) < time.Hour {
		errs = append(errs, fmt.Errorf("stale_after %q: must be at least 1h", c.StaleAfter))
	}

	if c.RequiredTemplates <= 0 {
		errs = append(errs, fmt.Errorf("required_templates %d: must be positive", c.RequiredTemplates))
	}

	return errors.Join(errs...)
}

// staleAfterSeconds returns StaleAfter in whole seconds. Call after Validate.
func (c *Config) staleAfterSeconds() int {
	d, _ := model.ParseDuration(c.StaleAfter)
	return int(time.Duration(d) / time.Second)
}
