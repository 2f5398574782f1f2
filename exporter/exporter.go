// Package exporter publishes provisioning run metrics.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// ErrNoJob is returned when pushing without a job name.
var ErrNoJob = errors.New("pushgateway job name is required")

// Target says where run metrics go. Empty fields are skipped.
type Target struct {
	// Textfile is a node_exporter textfile collector path.
	Textfile string

	// PushgatewayURL is the base URL of a Pushgateway.
	PushgatewayURL string

	// Job is the Pushgateway job name.
	Job string

	// Grouping adds grouping labels to the pushed metrics.
	Grouping map[string]string
}

// Export writes the metrics gathered from g to every configured target. It
// attempts all targets and joins their errors.
func Export(ctx context.Context, g prometheus.Gatherer, t Target, logger *slog.Logger) error {
	var errs []error

	if t.Textfile != "" {
		if err := WriteTextfile(t.Textfile, g); err != nil {
			errs = append(errs, err)
		} else {
			logger.Debug("Wrote run metrics", "path", t.Textfile)
		}
	}

	if t.PushgatewayURL != "" {
		if err := Push(ctx, t.PushgatewayURL, t.Job, t.Grouping, g); err != nil {
			errs = append(errs, err)
		} else {
			logger.Debug("Pushed run metrics", "url", t.PushgatewayURL, "job", t.Job)
		}
	}

	return errors.Join(errs...)
}

// WriteTextfile atomically writes the metrics gathered from g in the text
// exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}

	return nil
}

// Push replaces the metrics of job on the Pushgateway at url with the metrics
// gathered from g.
func Push(ctx context.Context, url, job string, grouping map[string]string, g prometheus.Gatherer) error {
	if job == "" {
		return ErrNoJob
	}

	p := push.New(url, job).Gatherer(g)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}

	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}

	return nil
}
