package recordingrules

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// RuleFile is the top-level Prometheus rules file structure.
type RuleFile struct {
	Groups []FileGroup `yaml:"groups"`
}

// FileGroup is a named set of recording rules in a rules file.
type FileGroup struct {
	Name     string            `yaml:"name"`
	Interval string            `yaml:"interval,omitempty"`
	Labels   map[string]string `yaml:"labels,omitempty"`
	Rules    []FileRule        `yaml:"rules"`
}

// FileRule is a single recording rule in a rules file.
type FileRule struct {
	Record string            `yaml:"record"`
	Expr   string            `yaml:"expr"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// BuildRuleFile converts planned rule groups into a Prometheus rules file.
// Disabled groups are kept; their state is recorded in the group labels.
func BuildRuleFile(groups []RuleGroup) RuleFile {
	file := RuleFile{Groups: make([]FileGroup, 0, len(groups))}

	for _, g := range groups {
		fg := FileGroup{
			Name:     g.Name,
			Interval: promInterval(g.Interval),
			Labels: map[string]string{
				"cluster": g.ClusterName,
				"role":    g.Role.String(),
				"enabled": fmt.Sprintf("%t", g.Enabled),
			},
			Rules: make([]FileRule, 0, len(g.Rules)),
		}

		for _, r := range g.Rules {
			fg.Rules = append(fg.Rules, FileRule{
				Record: r.Record,
				Expr:   r.Expression,
				Labels: r.Labels(),
			})
		}

		file.Groups = append(file.Groups, fg)
	}

	return file
}

// WriteRuleFile writes a rules file as YAML.
func WriteRuleFile(path string, file RuleFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshaling rule file: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// promInterval converts an ISO 8601 interval such as PT1M into the Prometheus
// duration form (1m). Unrecognised values are returned unchanged.
func promInterval(iso string) string {
	rest, ok := strings.CutPrefix(strings.ToUpper(iso), "PT")
	if !ok || rest == "" {
		return iso
	}

	d, err := time.ParseDuration(strings.ToLower(rest))
	if err != nil {
		return iso
	}

	return model.Duration(d).String()
}
