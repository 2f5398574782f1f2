// Package main is the entry point for the aks_rules_provisioner binary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/aks_rules_provisioner/collector"
	"github.com/donaldgifford/aks_rules_provisioner/config"
	"github.com/donaldgifford/aks_rules_provisioner/exporter"
	"github.com/donaldgifford/aks_rules_provisioner/pkg/arm"
	"github.com/donaldgifford/aks_rules_provisioner/pkg/recordingrules"
)

// Version information set by ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const exportTimeout = 10 * time.Second

func main() {
	app := kingpin.New("aks_rules_provisioner", "Provision the default Prometheus recording rule groups for an AKS cluster.")
	app.Version(fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate))
	app.HelpFlag.Short('h')

	cfg := config.NewConfig(app)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg.ApplyEnvironment()

	logger := setupLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting aks_rules_provisioner",
		"version", Version,
		"cluster", cfg.ClusterName,
		"workspace", cfg.WorkspaceID,
		"region", cfg.Region,
		"cloud", cfg.Cloud,
		"dry_run", cfg.DryRun,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, endpoint, err := arm.NewPipeline(cfg.ARMOptions())
	if err != nil {
		logger.Error("Failed to create management client", "err", err)
		os.Exit(1)
	}

	client := arm.NewClient(pipeline, endpoint, logger)

	if err := run(ctx, cfg, client, logger); err != nil {
		logger.Error("Provisioning failed", "err", err)
		stop()
		os.Exit(1)
	}

	logger.Info("Provisioning finished")
}

// run plans and applies the rule groups, then exports the run metrics. The
// provisioning error takes precedence over an export error.
func run(ctx context.Context, cfg *config.Config, client recordingrules.ManagementClient, logger *slog.Logger) error {
	coll := collector.NewCollector(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(coll)

	err := provision(ctx, cfg, client, coll, logger)
	coll.Finish(err)

	exportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
	defer cancel()

	exportErr := exporter.Export(exportCtx, reg, exporter.Target{
		Textfile:       cfg.MetricsTextfile,
		PushgatewayURL: cfg.PushgatewayURL,
		Job:            cfg.MetricsJob,
		Grouping:       map[string]string{"cluster": cfg.ClusterName},
	}, logger)
	if exportErr != nil {
		logger.Error("Failed to export run metrics", "err", exportErr)
	}

	if err != nil {
		return err
	}

	return exportErr
}

func provision(
	ctx context.Context,
	cfg *config.Config,
	client recordingrules.ManagementClient,
	recorder recordingrules.Recorder,
	logger *slog.Logger,
) error {
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	prov := recordingrules.NewProvisioner(client, logger, recordingrules.Options{
		Recorder:            recorder,
		ValidateExpressions: cfg.ValidateExpressions,
		Strict:              cfg.Strict,
	})

	plan, err := prov.Plan(ctx, params)
	if err != nil {
		return err
	}

	for _, g := range plan.Groups {
		logger.Info("Planned rule group",
			"rule_group", g.Name,
			"role", g.Role.String(),
			"enabled", g.Enabled,
			"rules", len(g.Rules),
		)
		logger.Debug("Planned rule group records", "rule_group", g.Name, "records", recordingrules.RecordNames(g.Rules))
	}

	if cfg.DumpFile != "" {
		if err := recordingrules.WriteRuleFile(cfg.DumpFile, recordingrules.BuildRuleFile(plan.Groups)); err != nil {
			return err
		}

		logger.Info("Wrote rule file", "path", cfg.DumpFile)
	}

	if cfg.DryRun {
		logger.Info("Dry run, not writing rule groups", "groups", len(plan.Groups))
		return nil
	}

	return prov.Apply(ctx, plan.Groups)
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level

	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
