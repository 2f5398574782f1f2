package arm

import (
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	azarm "github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const (
	moduleName    = "aks_rules_provisioner"
	moduleVersion = "v0.1.0"
	applicationID = "aks-rules-provisioner"
)

// Cloud names accepted by Options.Cloud.
const (
	CloudPublic     = "AzureCloud"
	CloudChina      = "AzureChinaCloud"
	CloudGovernment = "AzureUSGovernment"
)

// Options configures the production pipeline.
type Options struct {
	// Cloud is one of CloudPublic, CloudChina, or CloudGovernment.
	Cloud string

	// Endpoint overrides the cloud's resource manager endpoint when set.
	Endpoint string

	// TenantID, ClientID and ClientSecret select a service principal. When
	// any of them is empty the default credential chain is used instead.
	TenantID     string
	ClientID     string
	ClientSecret string

	// TryTimeout bounds each HTTP request. Zero disables the bound.
	TryTimeout time.Duration
}

// CloudConfiguration resolves a cloud name and optional endpoint override.
func CloudConfiguration(name, endpoint string) (cloud.Configuration, error) {
	var base cloud.Configuration

	switch strings.ToLower(name) {
	case "", strings.ToLower(CloudPublic):
		base = cloud.AzurePublic
	case strings.ToLower(CloudChina):
		base = cloud.AzureChina
	case strings.ToLower(CloudGovernment):
		base = cloud.AzureGovernment
	default:
		return cloud.Configuration{}, fmt.Errorf("%w: %q", ErrUnknownCloud, name)
	}

	cfg := cloud.Configuration{
		ActiveDirectoryAuthorityHost: base.ActiveDirectoryAuthorityHost,
		Services:                     make(map[cloud.ServiceName]cloud.ServiceConfiguration, len(base.Services)),
	}

	for k, v := range base.Services {
		cfg.Services[k] = v
	}

	if endpoint != "" {
		svc := cfg.Services[cloud.ResourceManager]
		svc.Endpoint = endpoint

		if svc.Audience == "" {
			svc.Audience = endpoint
		}

		cfg.Services[cloud.ResourceManager] = svc
	}

	return cfg, nil
}

// NewPipeline builds an authenticated ARM pipeline and returns it with the
// resolved resource manager endpoint. The SDK's own retry policy is disabled;
// callers decide how often a request is attempted.
func NewPipeline(opts Options) (runtime.Pipeline, string, error) {
	cloudCfg, err := CloudConfiguration(opts.Cloud, opts.Endpoint)
	if err != nil {
		return runtime.Pipeline{}, "", err
	}

	clientOpts := policy.ClientOptions{
		Cloud: cloudCfg,
		Retry: policy.RetryOptions{
			MaxRetries: -1,
			TryTimeout: opts.TryTimeout,
		},
		Telemetry: policy.TelemetryOptions{
			ApplicationID: applicationID,
		},
	}

	cred, err := newCredential(opts, clientOpts)
	if err != nil {
		return runtime.Pipeline{}, "", fmt.Errorf("%w: %w", ErrCredential, err)
	}

	client, err := azarm.NewClient(moduleName, moduleVersion, cred, &azarm.ClientOptions{
		ClientOptions:         clientOpts,
		DisableRPRegistration: true,
	})
	if err != nil {
		return runtime.Pipeline{}, "", fmt.Errorf("creating arm client: %w", err)
	}

	return client.Pipeline(), client.Endpoint(), nil
}

func newCredential(opts Options, clientOpts policy.ClientOptions) (azcore.TokenCredential, error) {
	if opts.TenantID != "" && opts.ClientID != "" && opts.ClientSecret != "" {
		return azidentity.NewClientSecretCredential(opts.TenantID, opts.ClientID, opts.ClientSecret,
			&azidentity.ClientSecretCredentialOptions{ClientOptions: clientOpts})
	}

	return azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: clientOpts,
		TenantID:      opts.TenantID,
	})
}
