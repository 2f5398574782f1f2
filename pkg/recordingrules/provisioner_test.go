package recordingrules

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestProvisioner(client ManagementClient, opts Options) *Provisioner {
	return NewProvisioner(client, testLogger(), opts)
}

func TestCreateRules_ProvisionsFourGroupsInOrder(t *testing.T) {
	client := &fakeClient{getBody: fourTemplatesBody(t)}

	if err := newTestProvisioner(client, Options{}).CreateRules(context.Background(), testParams(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantNames := []string{"T0-mycluster", "T1-mycluster", "T2-mycluster", "T3-mycluster"}
	if diff := cmp.Diff(wantNames, client.putNames()); diff != "" {
		t.Fatalf("PUT order mismatch (-want +got):\n%s", diff)
	}

	wantEnabled := []bool{true, true, false, false}
	for i, p := range client.puts {
		if p.body.Properties.Enabled != wantEnabled[i] {
			t.Errorf("%s enabled = %t, want %t", p.body.Name, p.body.Properties.Enabled, wantEnabled[i])
		}

		if p.apiVersion != RulesAPIVersion {
			t.Errorf("%s api version = %q", p.body.Name, p.apiVersion)
		}

		if want := "azuremonitormetrics.put_rules." + p.body.Name; p.userAgent != want {
			t.Errorf("user agent = %q, want %q", p.userAgent, want)
		}

		if want := RuleGroupResourceID("sub", "rg", p.body.Name); p.path != want || p.body.ID != want {
			t.Errorf("path = %q, id = %q, want %q", p.path, p.body.ID, want)
		}

		props := p.body.Properties
		if props.ClusterName != "mycluster" || props.Interval != "PT1M" || p.body.Location != "eastus" {
			t.Errorf("%s properties = %+v", p.body.Name, props)
		}

		if diff := cmp.Diff([]string{testWorkspaceID}, props.Scopes); diff != "" {
			t.Errorf("scopes mismatch (-want +got):\n%s", diff)
		}
	}

	if got := client.puts[0].body.Properties.Rules[0].Record; got != "node:cpu:rate5m" {
		t.Errorf("first group rule = %q", got)
	}

	wantGet := testWorkspaceID + "/providers/microsoft.alertsManagement/alertRuleRecommendations?api-version=2023-01-01-preview"
	if diff := cmp.Diff([]string{wantGet}, client.gets); diff != "" {
		t.Errorf("GET mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateRules_WindowsEnabled(t *testing.T) {
	client := &fakeClient{getBody: fourTemplatesBody(t)}
	params := testParams(map[string]any{EnableWindowsRecordingRules: true})

	if err := newTestProvisioner(client, Options{}).CreateRules(context.Background(), params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range client.puts {
		if !p.body.Properties.Enabled {
			t.Errorf("%s should be enabled", p.body.Name)
		}
	}
}

func TestCreateRules_SkipsRejectedTemplates(t *testing.T) {
	client := &fakeClient{getBody: recommendationsBody(t,
		ruleGroupTemplate("T0", "a:a"),
		withRules(ruleGroupTemplate("broken"), []any{map[string]any{"record": "x:y"}}),
		ruleGroupTemplate("T1", "b:b"),
		ruleGroupTemplate("T2", "c:c"),
		ruleGroupTemplate("T3", "d:d"),
	)}
	rec := newCountingRecorder()

	if err := newTestProvisioner(client, Options{Recorder: rec}).CreateRules(context.Background(), testParams(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantNames := []string{"T0-mycluster", "T1-mycluster", "T2-mycluster", "T3-mycluster"}
	if diff := cmp.Diff(wantNames, client.putNames()); diff != "" {
		t.Errorf("PUT names mismatch (-want +got):\n%s", diff)
	}

	if rec.accepted != 4 || rec.rejected != 1 {
		t.Errorf("recorder templates = %d accepted, %d rejected", rec.accepted, rec.rejected)
	}
}

func TestCreateRules_InsufficientTemplates(t *testing.T) {
	client := &fakeClient{getBody: recommendationsBody(t,
		ruleGroupTemplate("T0", "a:a"),
		ruleGroupTemplate("T1", "b:b"),
		ruleGroupTemplate("T2", "c:c"),
	)}

	err := newTestProvisioner(client, Options{}).CreateRules(context.Background(), testParams(nil))
	if !errors.Is(err, ErrInsufficientTemplates) {
		t.Fatalf("expected ErrInsufficientTemplates, got %v", err)
	}

	if !strings.Contains(err.Error(), "found 3 compliant templates, need 4") {
		t.Errorf("error %q should report the counts", err)
	}

	if len(client.puts) != 0 {
		t.Errorf("expected no PUTs, got %v", client.putNames())
	}
}

func TestCreateRules_EmptyRecommendations(t *testing.T) {
	client := &fakeClient{getBody: []byte(`{"value": []}`)}

	err := newTestProvisioner(client, Options{}).CreateRules(context.Background(), testParams(nil))
	if !errors.Is(err, ErrInsufficientTemplates) {
		t.Fatalf("expected ErrInsufficientTemplates, got %v", err)
	}
}

func TestCreateRules_FetchErrorNotRetried(t *testing.T) {
	client := &fakeClient{getErr: mgmtErr("connection reset")}

	err := newTestProvisioner(client, Options{}).CreateRules(context.Background(), testParams(nil))
	if err == nil || !strings.Contains(err.Error(), "fetching recording rule templates") {
		t.Fatalf("expected fetch error, got %v", err)
	}

	if len(client.gets) != 1 {
		t.Errorf("expected 1 GET, got %d", len(client.gets))
	}

	if len(client.puts) != 0 {
		t.Errorf("expected no PUTs, got %d", len(client.puts))
	}
}

func TestCreateRules_MalformedResponse(t *testing.T) {
	client := &fakeClient{getBody: []byte("not json")}

	err := newTestProvisioner(client, Options{}).CreateRules(context.Background(), testParams(nil))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestCreateRules_MissingParameter(t *testing.T) {
	client := &fakeClient{getBody: fourTemplatesBody(t)}
	params := testParams(nil)
	params.WorkspaceResourceID = ""

	err := newTestProvisioner(client, Options{}).CreateRules(context.Background(), params)
	if !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}

	if len(client.gets) != 0 {
		t.Errorf("expected no GET, got %v", client.gets)
	}
}

func TestPut_RetriesUntilSuccess(t *testing.T) {
	client := &fakeClient{
		getBody: fourTemplatesBody(t),
		putErrs: map[string][]error{"T1-mycluster": {mgmtErr("throttled")}},
	}
	rec := newCountingRecorder()

	if err := newTestProvisioner(client, Options{Recorder: rec}).CreateRules(context.Background(), testParams(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"T0-mycluster", "T1-mycluster", "T1-mycluster", "T2-mycluster", "T3-mycluster"}
	if diff := cmp.Diff(want, client.putNames()); diff != "" {
		t.Errorf("PUT sequence mismatch (-want +got):\n%s", diff)
	}

	if rec.attempts["T1-mycluster"] != 2 || rec.failures["T1-mycluster"] != 1 {
		t.Errorf("T1 attempts = %d, failures = %d", rec.attempts["T1-mycluster"], rec.failures["T1-mycluster"])
	}

	if rec.groups["T1-mycluster"] != nil {
		t.Errorf("T1 group error = %v", rec.groups["T1-mycluster"])
	}
}

func TestPut_StopsAfterMaxAttempts(t *testing.T) {
	first, second, last := mgmtErr("first"), mgmtErr("second"), mgmtErr("last")
	client := &fakeClient{
		getBody: fourTemplatesBody(t),
		putErrs: map[string][]error{"T1-mycluster": {first, second, last}},
	}
	rec := newCountingRecorder()

	err := newTestProvisioner(client, Options{Recorder: rec}).CreateRules(context.Background(), testParams(nil))
	if err == nil {
		t.Fatal("expected error")
	}

	if !errors.Is(err, last) {
		t.Errorf("expected the last attempt's error, got %v", err)
	}

	if errors.Is(err, first) {
		t.Errorf("error should not carry the first attempt's error: %v", err)
	}

	if !strings.Contains(err.Error(), "role kubernetes-recording") || !strings.Contains(err.Error(), "after 3 attempt(s)") {
		t.Errorf("error %q should name the role and attempt count", err)
	}

	// T2 and T3 are never attempted.
	want := []string{"T0-mycluster", "T1-mycluster", "T1-mycluster", "T1-mycluster"}
	if diff := cmp.Diff(want, client.putNames()); diff != "" {
		t.Errorf("PUT sequence mismatch (-want +got):\n%s", diff)
	}

	if !errors.Is(rec.groups["T1-mycluster"], last) {
		t.Errorf("recorded group error = %v", rec.groups["T1-mycluster"])
	}
}

func TestPut_NonManagementErrorNotRetried(t *testing.T) {
	client := &fakeClient{
		getBody: fourTemplatesBody(t),
		putErrs: map[string][]error{"T0-mycluster": {errNotRetryable, errNotRetryable}},
	}

	err := newTestProvisioner(client, Options{}).CreateRules(context.Background(), testParams(nil))
	if !errors.Is(err, errNotRetryable) {
		t.Fatalf("expected errNotRetryable, got %v", err)
	}

	if !strings.Contains(err.Error(), "after 1 attempt(s)") {
		t.Errorf("error %q should report a single attempt", err)
	}

	if len(client.puts) != 1 {
		t.Errorf("expected 1 PUT, got %v", client.putNames())
	}
}

func TestPut_CanceledContext(t *testing.T) {
	client := &fakeClient{
		putErrs: map[string][]error{"g": {mgmtErr("a"), mgmtErr("b"), mgmtErr("c")}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := RuleGroup{Role: RoleNode, ID: RuleGroupResourceID("sub", "rg", "g"), Name: "g"}

	if err := newTestProvisioner(client, Options{}).Put(ctx, g); err == nil {
		t.Fatal("expected error on canceled context")
	}

	if len(client.puts) > 1 {
		t.Errorf("expected at most 1 PUT on a canceled context, got %d", len(client.puts))
	}
}

func TestPlan_StrictRejectsMalformedTemplates(t *testing.T) {
	client := &fakeClient{getBody: recommendationsBody(t,
		ruleGroupTemplate("T0", "a:a"),
		ruleGroupTemplate("T1", "b:b"),
		withRules(ruleGroupTemplate("broken"), []any{"oops"}),
		ruleGroupTemplate("T2", "c:c"),
		ruleGroupTemplate("T3", "d:d"),
	)}

	plan, err := newTestProvisioner(client, Options{Strict: true}).Plan(context.Background(), testParams(nil))
	if !errors.Is(err, ErrRejectedTemplates) {
		t.Fatalf("expected ErrRejectedTemplates, got %v", err)
	}

	if len(plan.Rejected) != 1 || plan.Rejected[0].Name != "broken" {
		t.Errorf("rejected = %v", plan.Rejected)
	}

	if len(plan.Groups) != 0 {
		t.Errorf("strict plan should not resolve groups, got %d", len(plan.Groups))
	}
}

func TestPlan_ValidateExpressions(t *testing.T) {
	badBody := recommendationsBody(t,
		ruleGroupTemplate("T0", "a:a"),
		withRules(ruleGroupTemplate("T1"), []any{map[string]any{"record": "b:b", "expression": "sum(rate(x[5m]"}}),
		ruleGroupTemplate("T2", "c:c"),
		ruleGroupTemplate("T3", "d:d"),
	)

	t.Run("lenient keeps going", func(t *testing.T) {
		client := &fakeClient{getBody: badBody}

		plan, err := newTestProvisioner(client, Options{ValidateExpressions: true}).Plan(context.Background(), testParams(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(plan.Validation.Errors) != 1 || !strings.Contains(plan.Validation.Errors[0], "T1") {
			t.Errorf("validation errors = %v", plan.Validation.Errors)
		}

		if len(plan.Groups) != 4 {
			t.Errorf("expected 4 groups, got %d", len(plan.Groups))
		}
	})

	t.Run("strict fails", func(t *testing.T) {
		client := &fakeClient{getBody: badBody}

		_, err := newTestProvisioner(client, Options{ValidateExpressions: true, Strict: true}).Plan(context.Background(), testParams(nil))
		if !errors.Is(err, ErrInvalidExpressions) {
			t.Fatalf("expected ErrInvalidExpressions, got %v", err)
		}
	})

	t.Run("off by default", func(t *testing.T) {
		client := &fakeClient{getBody: badBody}

		plan, err := newTestProvisioner(client, Options{Strict: true}).Plan(context.Background(), testParams(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(plan.Validation.Errors) != 0 {
			t.Errorf("validation should not run, got %v", plan.Validation.Errors)
		}
	})
}

func TestPlan_DoesNotWrite(t *testing.T) {
	client := &fakeClient{getBody: fourTemplatesBody(t)}

	plan, err := newTestProvisioner(client, Options{}).Plan(context.Background(), testParams(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Groups) != 4 {
		t.Errorf("expected 4 groups, got %d", len(plan.Groups))
	}

	if len(client.puts) != 0 {
		t.Errorf("Plan should not PUT, got %v", client.putNames())
	}
}

func TestCreateRules_LongNamesTruncated(t *testing.T) {
	long := strings.Repeat("x", 300)
	client := &fakeClient{getBody: recommendationsBody(t,
		ruleGroupTemplate(long, "a:a"),
		ruleGroupTemplate("T1", "b:b"),
		ruleGroupTemplate("T2", "c:c"),
		ruleGroupTemplate("T3", "d:d"),
	)}

	if err := newTestProvisioner(client, Options{}).CreateRules(context.Background(), testParams(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(client.puts[0].body.Name); got != MaxRuleGroupNameLength {
		t.Errorf("name length = %d, want %d", got, MaxRuleGroupNameLength)
	}
}
