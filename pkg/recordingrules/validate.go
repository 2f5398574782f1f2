package recordingrules

import (
	"fmt"
	"regexp"

	promparser "github.com/prometheus/prometheus/promql/parser"
)

// recordNameRe is the Prometheus metric name pattern; recording rule names
// may contain colons.
var recordNameRe = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// ValidationResult holds the outcome of validating templates.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// Ok returns true if the validation found no errors.
func (r *ValidationResult) Ok() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateTemplates parses every rule expression as PromQL and checks record
// names. Duplicate record names inside one resource are warnings.
func ValidateTemplates(templates []Template) ValidationResult {
	var r ValidationResult

	for _, t := range templates {
		for i, res := range t.Resources {
			checkRules(&r, fmt.Sprintf("%s > resource[%d]", t.Name, i), res.Rules)
		}
	}

	return r
}

func checkRules(r *ValidationResult, scope string, rules []Rule) {
	seen := make(map[string]bool, len(rules))

	for _, rule := range rules {
		if !recordNameRe.MatchString(rule.Record) {
			r.errorf("%s: invalid record name %q", scope, rule.Record)
		}

		if _, err := promparser.ParseExpr(rule.Expression); err != nil {
			r.errorf("%s > %s: invalid PromQL: %s", scope, rule.Record, err)
		}

		if seen[rule.Record] {
			r.warnf("%s: duplicate record %q", scope, rule.Record)
		}

		seen[rule.Record] = true
	}
}
