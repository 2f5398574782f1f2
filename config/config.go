// Package config handles CLI flags, environment variable overrides, and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/aks_rules_provisioner/pkg/arm"
	"github.com/donaldgifford/aks_rules_provisioner/pkg/recordingrules"
)

const envPrefix = "AKS_RULES_"

// Config holds all provisioner configuration.
type Config struct {
	LogLevel string

	// Cluster and workspace.
	ClusterSubscription  string
	ClusterResourceGroup string
	ClusterName          string
	WorkspaceID          string
	Region               string

	// Rules.
	EnableWindows       bool
	enableWindowsSet    bool
	ParametersFile      string
	Strict              bool
	ValidateExpressions bool
	DumpFile            string
	DryRun              bool

	// Azure.
	Cloud          string
	ARMEndpoint    string
	RequestTimeout time.Duration
	TenantID       string
	ClientID       string
	ClientSecret   string

	// Metrics.
	MetricsTextfile string
	PushgatewayURL  string
	MetricsJob      string
}

// NewConfig registers flags on the given kingpin application and returns a Config.
func NewConfig(app *kingpin.Application) *Config {
	cfg := &Config{}

	app.Flag("cluster.subscription", "Subscription id of the AKS cluster.").
		StringVar(&cfg.ClusterSubscription)
	app.Flag("cluster.resource-group", "Resource group of the AKS cluster.").
		StringVar(&cfg.ClusterResourceGroup)
	app.Flag("cluster.name", "Name of the AKS cluster.").
		StringVar(&cfg.ClusterName)
	app.Flag("workspace.id", "Resource id of the Azure Monitor workspace.").
		StringVar(&cfg.WorkspaceID)
	app.Flag("workspace.region", "Region the rule groups are created in.").
		StringVar(&cfg.Region)

	app.Flag("rules.enable-windows", "Enable the Windows recording rule groups.").
		IsSetByUser(&cfg.enableWindowsSet).BoolVar(&cfg.EnableWindows)
	app.Flag("parameters.file", "YAML or JSON file of raw provisioning parameters.").
		StringVar(&cfg.ParametersFile)
	app.Flag("rules.strict", "Fail on malformed templates and invalid expressions instead of warning.").
		BoolVar(&cfg.Strict)
	app.Flag("rules.validate-expressions", "Parse every rule expression as PromQL before provisioning.").
		BoolVar(&cfg.ValidateExpressions)
	app.Flag("rules.dump-file", "Write the planned rule groups as a Prometheus rules file.").
		StringVar(&cfg.DumpFile)
	app.Flag("dry-run", "Fetch and plan rule groups without writing them.").
		BoolVar(&cfg.DryRun)

	app.Flag("azure.cloud", "Azure cloud name.").
		Default(arm.CloudPublic).EnumVar(&cfg.Cloud, arm.CloudPublic, arm.CloudChina, arm.CloudGovernment)
	app.Flag("arm.endpoint", "Override the Azure Resource Manager endpoint.").
		StringVar(&cfg.ARMEndpoint)
	app.Flag("arm.request-timeout", "Timeout of a single management request.").
		Default("60s").DurationVar(&cfg.RequestTimeout)
	app.Flag("azure.tenant-id", "Tenant id of the service principal.").
		StringVar(&cfg.TenantID)
	app.Flag("azure.client-id", "Client id of the service principal. The secret is read from AZURE_CLIENT_SECRET.").
		StringVar(&cfg.ClientID)

	app.Flag("metrics.textfile", "Write run metrics to this node_exporter textfile.").
		StringVar(&cfg.MetricsTextfile)
	app.Flag("metrics.pushgateway-url", "Push run metrics to this Pushgateway.").
		StringVar(&cfg.PushgatewayURL)
	app.Flag("metrics.job", "Pushgateway job name.").
		Default("aks_rules_provisioner").StringVar(&cfg.MetricsJob)

	app.Flag("log.level", "Log level.").
		Default("info").EnumVar(&cfg.LogLevel, "debug", "info", "warn", "error")

	return cfg
}

// ApplyEnvironment applies environment variable overrides.
func (c *Config) ApplyEnvironment() {
	for name, dst := range map[string]*string{
		"CLUSTER_SUBSCRIPTION":    &c.ClusterSubscription,
		"CLUSTER_RESOURCE_GROUP":  &c.ClusterResourceGroup,
		"CLUSTER_NAME":            &c.ClusterName,
		"WORKSPACE_ID":            &c.WorkspaceID,
		"WORKSPACE_REGION":        &c.Region,
		"PARAMETERS_FILE":         &c.ParametersFile,
		"DUMP_FILE":               &c.DumpFile,
		"AZURE_CLOUD":             &c.Cloud,
		"ARM_ENDPOINT":            &c.ARMEndpoint,
		"AZURE_TENANT_ID":         &c.TenantID,
		"AZURE_CLIENT_ID":         &c.ClientID,
		"METRICS_TEXTFILE":        &c.MetricsTextfile,
		"METRICS_PUSHGATEWAY_URL": &c.PushgatewayURL,
		"METRICS_JOB":             &c.MetricsJob,
		"LOG_LEVEL":               &c.LogLevel,
	} {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}

	for name, dst := range map[string]*bool{
		"STRICT":               &c.Strict,
		"VALIDATE_EXPRESSIONS": &c.ValidateExpressions,
		"DRY_RUN":              &c.DryRun,
	} {
		if b, ok := envBool(envPrefix + name); ok {
			*dst = b
		}
	}

	if b, ok := envBool(envPrefix + "ENABLE_WINDOWS"); ok {
		c.EnableWindows = b
		c.enableWindowsSet = true
	}

	if v := os.Getenv(envPrefix + "ARM_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}

	if v := os.Getenv("AZURE_CLIENT_SECRET"); v != "" {
		c.ClientSecret = v
	}
}

// Validate checks that the cluster is identified and the remaining settings
// are usable.
func (c *Config) Validate() error {
	var missing []string

	for _, f := range []struct {
		flag  string
		value string
	}{
		{"--cluster.subscription", c.ClusterSubscription},
		{"--cluster.resource-group", c.ClusterResourceGroup},
		{"--cluster.name", c.ClusterName},
		{"--workspace.id", c.WorkspaceID},
		{"--workspace.region", c.Region},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.flag)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFlag, strings.Join(missing, ", "))
	}

	if _, err := arm.CloudConfiguration(c.Cloud, c.ARMEndpoint); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCloud, err)
	}

	if c.ARMEndpoint != "" {
		if u, err := url.Parse(c.ARMEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s", ErrInvalidEndpoint, c.ARMEndpoint)
		}
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.RequestTimeout)
	}

	if c.PushgatewayURL != "" && c.MetricsJob == "" {
		return ErrMissingJob
	}

	return nil
}

// Params builds the provisioning parameters. The parameters file, when set,
// supplies the raw bag; --rules.enable-windows wins over it when given.
func (c *Config) Params() (recordingrules.Params, error) {
	raw := map[string]any{}

	if c.ParametersFile != "" {
		loaded, err := loadParameters(c.ParametersFile)
		if err != nil {
			return recordingrules.Params{}, err
		}

		raw = loaded
	}

	if c.enableWindowsSet {
		raw[recordingrules.EnableWindowsRecordingRules] = c.EnableWindows
	}

	return recordingrules.Params{
		ClusterSubscription:  c.ClusterSubscription,
		ClusterResourceGroup: c.ClusterResourceGroup,
		ClusterName:          c.ClusterName,
		WorkspaceResourceID:  c.WorkspaceID,
		Region:               c.Region,
		Raw:                  raw,
	}, nil
}

// ARMOptions returns the management pipeline options.
func (c *Config) ARMOptions() arm.Options {
	return arm.Options{
		Cloud:        c.Cloud,
		Endpoint:     c.ARMEndpoint,
		TenantID:     c.TenantID,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TryTimeout:   c.RequestTimeout,
	}
}

func loadParameters(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParametersFile, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParametersFile, path, err)
	}

	return raw, nil
}

func envBool(name string) (value, ok bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}

	return b, true
}
