package recordingrules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/donaldgifford/aks_rules_provisioner/pkg/arm"
)

type discardWriter struct{}

func (*discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&discardWriter{}, nil))
}

const testWorkspaceID = "/subscriptions/sub/resourceGroups/monitor-rg/providers/microsoft.monitor/accounts/amw"

func testParams(raw map[string]any) Params {
	return Params{
		ClusterSubscription:  "sub",
		ClusterResourceGroup: "rg",
		ClusterName:          "mycluster",
		WorkspaceResourceID:  testWorkspaceID,
		Region:               "eastus",
		Raw:                  raw,
	}
}

// ruleGroupTemplate builds a recommendations entry with one rule-group
// resource holding one rule per record name.
func ruleGroupTemplate(name string, records ...string) map[string]any {
	rules := make([]any, 0, len(records))
	for _, r := range records {
		rules = append(rules, map[string]any{
			"record":     r,
			"expression": fmt.Sprintf("sum(rate(%s_source[5m]))", strings.ReplaceAll(r, ":", "_")),
			"labels":     map[string]any{"workload_type": "job"},
			"enabled":    true,
		})
	}

	return map[string]any{
		"id":   "/providers/microsoft.alertsManagement/alertRuleRecommendations/" + name,
		"name": name,
		"properties": map[string]any{
			"alertRuleType": "Microsoft.AlertsManagement/prometheusRuleGroups",
			"rulesArmTemplate": map[string]any{
				"resources": []any{
					map[string]any{
						"type": "Microsoft.AlertsManagement/prometheusRuleGroups",
						"properties": map[string]any{
							"rules": rules,
						},
					},
				},
			},
		},
	}
}

func recommendationsBody(t *testing.T, entries ...any) []byte {
	t.Helper()

	data, err := json.Marshal(map[string]any{"value": entries})
	if err != nil {
		t.Fatalf("marshaling fixture: %v", err)
	}

	return data
}

func fourTemplatesBody(t *testing.T) []byte {
	t.Helper()

	return recommendationsBody(t,
		ruleGroupTemplate("T0", "node:cpu:rate5m"),
		ruleGroupTemplate("T1", "cluster:memory:sum"),
		ruleGroupTemplate("T2", "node:windows_cpu:rate5m"),
		ruleGroupTemplate("T3", "cluster:windows_memory:sum"),
	)
}

type putCall struct {
	path       string
	apiVersion string
	userAgent  string
	body       RuleGroupResource
}

// fakeClient serves a fixed GET body and scripted PUT results keyed by the
// rule group name (the last path segment).
type fakeClient struct {
	getBody []byte
	getErr  error
	putErrs map[string][]error

	gets []string
	puts []putCall
}

func (f *fakeClient) Get(_ context.Context, path, apiVersion, _ string) ([]byte, error) {
	f.gets = append(f.gets, path+"?api-version="+apiVersion)
	return f.getBody, f.getErr
}

func (f *fakeClient) Put(_ context.Context, path, apiVersion, userAgent string, body any) error {
	rg, ok := body.(RuleGroupResource)
	if !ok {
		return fmt.Errorf("unexpected body type %T", body)
	}

	f.puts = append(f.puts, putCall{path: path, apiVersion: apiVersion, userAgent: userAgent, body: rg})

	name := path[strings.LastIndex(path, "/")+1:]

	errs := f.putErrs[name]
	if len(errs) == 0 {
		return nil
	}

	err := errs[0]
	f.putErrs[name] = errs[1:]

	return err
}

func (f *fakeClient) putNames() []string {
	names := make([]string, len(f.puts))
	for i, p := range f.puts {
		names[i] = p.body.Name
	}

	return names
}

// mgmtErr returns an error the provisioner treats as retryable.
func mgmtErr(msg string) error {
	return fmt.Errorf("%w: %s", arm.ErrTransport, msg)
}

var errNotRetryable = errors.New("request could not be built")

// countingRecorder tallies Recorder calls.
type countingRecorder struct {
	accepted, rejected int
	attempts           map[string]int
	failures           map[string]int
	groups             map[string]error
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		attempts: map[string]int{},
		failures: map[string]int{},
		groups:   map[string]error{},
	}
}

func (c *countingRecorder) ObserveTemplates(accepted, rejected int) {
	c.accepted, c.rejected = accepted, rejected
}

func (c *countingRecorder) ObserveAttempt(group string, err error) {
	c.attempts[group]++
	if err != nil {
		c.failures[group]++
	}
}

func (c *countingRecorder) ObserveGroup(group string, _ bool, err error) {
	c.groups[group] = err
}
