// Package collector implements the Prometheus collector for provisioning run metrics.
package collector

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aks_rules"

// attemptResults enumerates the result label values of rule group attempts.
var attemptResults = []string{"success", "failure"}

// groupState is what the collector knows about one rule group.
type groupState struct {
	name      string
	attempts  map[string]int
	enabled   bool
	finished  bool
	succeeded bool
}

// Collector records a single provisioning run and exposes it as metrics.
// It implements recordingrules.Recorder.
type Collector struct {
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	started   time.Time
	duration  time.Duration
	done      bool
	runErr    error
	accepted  int
	rejected  int
	groups    []*groupState
	groupByID map[string]*groupState

	// Meta
	up          *prometheus.Desc
	runDuration *prometheus.Desc
	lastRun     *prometheus.Desc

	// Templates
	templates *prometheus.Desc

	// Rule groups
	groupAttempts    *prometheus.Desc
	groupProvisioned *prometheus.Desc
	groupEnabled     *prometheus.Desc
}

// NewCollector creates a new Collector. The run clock starts immediately.
func NewCollector(logger *slog.Logger) *Collector {
	return newCollector(logger, time.Now)
}

func newCollector(logger *slog.Logger, now func() time.Time) *Collector {
	c := &Collector{
		logger:    logger,
		now:       now,
		started:   now(),
		groupByID: make(map[string]*groupState),
	}
	c.initDescriptors()

	return c
}

func (c *Collector) initDescriptors() {
	groupLabels := []string{"rule_group"}

	// Meta.
	c.up = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "up"), "Whether the last provisioning run succeeded.", nil, nil)
	c.runDuration = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "run_duration_seconds"),
		"Time taken by the provisioning run.",
		nil,
		nil,
	)
	c.lastRun = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "last_run_timestamp_seconds"),
		"Unix time the provisioning run finished.",
		nil,
		nil,
	)

	// Templates.
	c.templates = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "templates"),
		"Recording rule templates returned by the recommendations API, by filter outcome.",
		[]string{"state"},
		nil,
	)

	// Rule groups.
	c.groupAttempts = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "rule_group", "attempts_total"),
		"PUT attempts per rule group, by result.",
		[]string{"rule_group", "result"},
		nil,
	)
	c.groupProvisioned = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "rule_group", "provisioned"),
		"1 if the rule group was written, 0 if it failed.",
		groupLabels,
		nil,
	)
	c.groupEnabled = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "rule_group", "enabled"),
		"1 if the rule group was provisioned enabled, 0 otherwise.",
		groupLabels,
		nil,
	)
}

// ObserveTemplates records how many templates were accepted and rejected.
func (c *Collector) ObserveTemplates(accepted, rejected int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accepted, c.rejected = accepted, rejected
}

// ObserveAttempt records one PUT attempt for a rule group.
func (c *Collector) ObserveAttempt(group string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := "success"
	if err != nil {
		result = "failure"
	}

	c.group(group).attempts[result]++
}

// ObserveGroup records the final outcome of a rule group.
func (c *Collector) ObserveGroup(group string, enabled bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.group(group)
	g.finished = true
	g.enabled = enabled
	g.succeeded = err == nil
}

// Finish stops the run clock and records the run result.
func (c *Collector) Finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.duration = c.now().Sub(c.started)
	c.done = true
	c.runErr = err

	if err != nil {
		c.logger.Debug("Provisioning run recorded as failed", "err", err)
	}
}

// group returns the state of name, creating it in first-seen order.
// Callers hold c.mu.
func (c *Collector) group(name string) *groupState {
	g, ok := c.groupByID[name]
	if !ok {
		g = &groupState{name: name, attempts: make(map[string]int, len(attemptResults))}
		c.groupByID[name] = g
		c.groups = append(c.groups, g)
	}

	return g
}

// Describe sends all metric descriptors.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.runDuration
	ch <- c.lastRun
	ch <- c.templates
	ch <- c.groupAttempts
	ch <- c.groupProvisioned
	ch <- c.groupEnabled
}

// Collect emits the metrics recorded so far. Run metrics are only emitted
// once Finish has been called.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		up := 1.0
		if c.runErr != nil {
			up = 0
		}

		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up)
		ch <- prometheus.MustNewConstMetric(c.runDuration, prometheus.GaugeValue, c.duration.Seconds())

		end := c.started.Add(c.duration)
		ch <- prometheus.MustNewConstMetric(c.lastRun, prometheus.GaugeValue,
			float64(end.Unix())+float64(end.Nanosecond())/float64(time.Second))
	}

	ch <- prometheus.MustNewConstMetric(c.templates, prometheus.GaugeValue, float64(c.accepted), "accepted")
	ch <- prometheus.MustNewConstMetric(c.templates, prometheus.GaugeValue, float64(c.rejected), "rejected")

	for _, g := range c.groups {
		for _, result := range attemptResults {
			ch <- prometheus.MustNewConstMetric(c.groupAttempts, prometheus.CounterValue, float64(g.attempts[result]), g.name, result)
		}

		if !g.finished {
			continue
		}

		provisioned := 0.0
		if g.succeeded {
			provisioned = 1.0
		}

		enabled := 0.0
		if g.enabled && g.succeeded {
			enabled = 1.0
		}

		ch <- prometheus.MustNewConstMetric(c.groupProvisioned, prometheus.GaugeValue, provisioned, g.name)
		ch <- prometheus.MustNewConstMetric(c.groupEnabled, prometheus.GaugeValue, enabled, g.name)
	}
}
