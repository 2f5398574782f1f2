// dashgen generates the Grafana dashboard JSON and Prometheus alert rules YAML
// for the provisioner's run metrics using the Grafana Foundation SDK. Run with
// go run . from this directory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/aks_rules_provisioner/tools/dashgen/dashboards"
	"github.com/donaldgifford/aks_rules_provisioner/tools/dashgen/rules"
	"github.com/donaldgifford/aks_rules_provisioner/tools/dashgen/validate"
)

const dashboardFile = "aks-rules-provisioning.json"

func main() {
	validateOnly := flag.Bool("validate", false, "validate the dashboard and rules without writing files")
	flag.Parse()

	cfg := DefaultConfig

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation failed:\n%v", err)
	}

	builder, err := dashboards.BuildProvisioning()
	if err != nil {
		log.Fatalf("building %s: %v", dashboardFile, err)
	}

	dash, err := builder.Build()
	if err != nil {
		log.Fatalf("finalizing %s: %v", dashboardFile, err)
	}

	alerts := rules.AlertRules(alertConfig(cfg))

	hasErrors := report(dashboardFile, validate.Dashboard(dash))
	hasErrors = report("alerts.yml", validate.Rules("alerts.yml", alerts)) || hasErrors

	if !*validateOnly {
		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			log.Fatalf("marshaling %s: %v", dashboardFile, err)
		}

		// Append trailing newline for POSIX compliance.
		writeFile(cfg.OutputDir, dashboardFile, append(data, '\n'))

		generateRules(cfg, alerts)
	}

	if hasErrors {
		os.Exit(1)
	}
}

// report prints a validation result and returns true if it has errors.
func report(name string, r validate.Result) bool {
	if output := validate.FormatResult(name, r); output != "" {
		fmt.Print(output)
	}

	return !r.Ok()
}

func alertConfig(cfg Config) rules.AlertConfig {
	return rules.AlertConfig{
		StaleAfter:        cfg.StaleAfter,
		StaleAfterSeconds: cfg.staleAfterSeconds(),
		RequiredTemplates: cfg.RequiredTemplates,
	}
}

func generateRules(cfg Config, alerts rules.RuleFile) {
	writeYAML(cfg.RulesDir, "alerts.yml", alerts)

	if cfg.RuleNamespace != "" {
		writeYAML(cfg.RulesDir, "prometheusrule.yml", rules.AlertPrometheusRule(cfg.RuleNamespace, alertConfig(cfg)))
	}
}

func writeYAML(dir, filename string, v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		log.Fatalf("marshaling %s: %v", filename, err)
	}

	writeFile(dir, filename, data)
}

func writeFile(dir, filename string, data []byte) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("creating %s: %v", dir, err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("writing %s: %v", path, err)
	}

	fmt.Printf("wrote %s\n", path)
}
