package collector

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/donaldgifford/aks_rules_provisioner/pkg/recordingrules"
)

var _ recordingrules.Recorder = (*Collector)(nil)

type discardWriter struct{}

func (*discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&discardWriter{}, nil))
}

// fakeClock returns start on the first call and start+step on every later call.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	calls := 0

	return func() time.Time {
		calls++
		if calls == 1 {
			return start
		}

		return start.Add(step)
	}
}

func newTestCollector() *Collector {
	return newCollector(testLogger(), fakeClock(time.Unix(1700000000, 0), 1500*time.Millisecond))
}

func TestCollector_HappyPath(t *testing.T) {
	coll := newTestCollector()

	coll.ObserveTemplates(4, 1)

	for _, g := range []string{"T0-c", "T1-c", "T2-c", "T3-c"} {
		coll.ObserveAttempt(g, nil)
		coll.ObserveGroup(g, !strings.HasPrefix(g, "T2") && !strings.HasPrefix(g, "T3"), nil)
	}

	coll.Finish(nil)

	upExpected := `
		# HELP aks_rules_up Whether the last provisioning run succeeded.
		# TYPE aks_rules_up gauge
		aks_rules_up 1
	`

	if err := testutil.CollectAndCompare(coll, strings.NewReader(upExpected), "aks_rules_up"); err != nil {
		t.Errorf("up metric mismatch: %v", err)
	}

	durationExpected := `
		# HELP aks_rules_run_duration_seconds Time taken by the provisioning run.
		# TYPE aks_rules_run_duration_seconds gauge
		aks_rules_run_duration_seconds 1.5
		# HELP aks_rules_last_run_timestamp_seconds Unix time the provisioning run finished.
		# TYPE aks_rules_last_run_timestamp_seconds gauge
		aks_rules_last_run_timestamp_seconds 1.7000000015e+09
	`

	if err := testutil.CollectAndCompare(coll, strings.NewReader(durationExpected),
		"aks_rules_run_duration_seconds", "aks_rules_last_run_timestamp_seconds"); err != nil {
		t.Errorf("run timing mismatch: %v", err)
	}

	templatesExpected := `
		# HELP aks_rules_templates Recording rule templates returned by the recommendations API, by filter outcome.
		# TYPE aks_rules_templates gauge
		aks_rules_templates{state="accepted"} 4
		aks_rules_templates{state="rejected"} 1
	`

	if err := testutil.CollectAndCompare(coll, strings.NewReader(templatesExpected), "aks_rules_templates"); err != nil {
		t.Errorf("templates mismatch: %v", err)
	}

	enabledExpected := `
		# HELP aks_rules_rule_group_enabled 1 if the rule group was provisioned enabled, 0 otherwise.
		# TYPE aks_rules_rule_group_enabled gauge
		aks_rules_rule_group_enabled{rule_group="T0-c"} 1
		aks_rules_rule_group_enabled{rule_group="T1-c"} 1
		aks_rules_rule_group_enabled{rule_group="T2-c"} 0
		aks_rules_rule_group_enabled{rule_group="T3-c"} 0
	`

	if err := testutil.CollectAndCompare(coll, strings.NewReader(enabledExpected), "aks_rules_rule_group_enabled"); err != nil {
		t.Errorf("enabled mismatch: %v", err)
	}

	if count := testutil.CollectAndCount(coll, "aks_rules_rule_group_provisioned"); count != 4 {
		t.Errorf("expected 4 provisioned metrics, got %d", count)
	}
}

func TestCollector_RetriedGroup(t *testing.T) {
	coll := newTestCollector()
	errThrottled := errors.New("throttled")

	coll.ObserveTemplates(4, 0)
	coll.ObserveAttempt("T0-c", errThrottled)
	coll.ObserveAttempt("T0-c", nil)
	coll.ObserveGroup("T0-c", true, nil)

	coll.ObserveAttempt("T1-c", errThrottled)
	coll.ObserveAttempt("T1-c", errThrottled)
	coll.ObserveAttempt("T1-c", errThrottled)
	coll.ObserveGroup("T1-c", true, errThrottled)

	coll.Finish(errThrottled)

	expected := `
		# HELP aks_rules_rule_group_attempts_total PUT attempts per rule group, by result.
		# TYPE aks_rules_rule_group_attempts_total counter
		aks_rules_rule_group_attempts_total{result="failure",rule_group="T0-c"} 1
		aks_rules_rule_group_attempts_total{result="success",rule_group="T0-c"} 1
		aks_rules_rule_group_attempts_total{result="failure",rule_group="T1-c"} 3
		aks_rules_rule_group_attempts_total{result="success",rule_group="T1-c"} 0
		# HELP aks_rules_rule_group_provisioned 1 if the rule group was written, 0 if it failed.
		# TYPE aks_rules_rule_group_provisioned gauge
		aks_rules_rule_group_provisioned{rule_group="T0-c"} 1
		aks_rules_rule_group_provisioned{rule_group="T1-c"} 0
		# HELP aks_rules_up Whether the last provisioning run succeeded.
		# TYPE aks_rules_up gauge
		aks_rules_up 0
	`

	if err := testutil.CollectAndCompare(coll, strings.NewReader(expected),
		"aks_rules_rule_group_attempts_total", "aks_rules_rule_group_provisioned", "aks_rules_up"); err != nil {
		t.Errorf("retry metrics mismatch: %v", err)
	}

	// A failed group is never reported as enabled.
	enabledExpected := `
		# HELP aks_rules_rule_group_enabled 1 if the rule group was provisioned enabled, 0 otherwise.
		# TYPE aks_rules_rule_group_enabled gauge
		aks_rules_rule_group_enabled{rule_group="T0-c"} 1
		aks_rules_rule_group_enabled{rule_group="T1-c"} 0
	`

	if err := testutil.CollectAndCompare(coll, strings.NewReader(enabledExpected), "aks_rules_rule_group_enabled"); err != nil {
		t.Errorf("enabled mismatch: %v", err)
	}
}

func TestCollector_BeforeFinish(t *testing.T) {
	coll := newTestCollector()

	if count := testutil.CollectAndCount(coll, "aks_rules_up"); count != 0 {
		t.Errorf("expected no up metric before Finish, got %d", count)
	}

	if count := testutil.CollectAndCount(coll, "aks_rules_templates"); count != 2 {
		t.Errorf("expected 2 template metrics, got %d", count)
	}

	coll.ObserveAttempt("T0-c", errors.New("boom"))

	// In-flight groups report attempts but no outcome.
	if count := testutil.CollectAndCount(coll, "aks_rules_rule_group_provisioned"); count != 0 {
		t.Errorf("expected no provisioned metric for an unfinished group, got %d", count)
	}

	if count := testutil.CollectAndCount(coll, "aks_rules_rule_group_attempts_total"); count != 2 {
		t.Errorf("expected 2 attempt series, got %d", count)
	}
}

func TestCollector_Register(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	coll := newTestCollector()

	if err := reg.Register(coll); err != nil {
		t.Fatalf("register: %v", err)
	}

	coll.ObserveTemplates(4, 0)
	coll.ObserveAttempt("T0-c", nil)
	coll.ObserveGroup("T0-c", true, nil)
	coll.Finish(nil)

	if _, err := reg.Gather(); err != nil {
		t.Errorf("gather: %v", err)
	}
}

func TestCollector_DescriptorCount(t *testing.T) {
	coll := newTestCollector()

	// 7 descriptors total: 3 meta + 1 templates + 3 rule group
	descCount := 0
	ch := make(chan *prometheus.Desc, 20)
	coll.Describe(ch)
	close(ch)

	for range ch {
		descCount++
	}

	const expectedDescs = 7
	if descCount != expectedDescs {
		t.Errorf("expected %d descriptors, got %d", expectedDescs, descCount)
	}
}
