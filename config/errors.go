package config

import "errors"

// Sentinel errors for configuration validation.
var (
	ErrMissingFlag     = errors.New("required flag not set")
	ErrInvalidCloud    = errors.New("invalid azure cloud")
	ErrInvalidEndpoint = errors.New("invalid arm endpoint")
	ErrInvalidTimeout  = errors.New("request timeout must be positive")
	ErrMissingJob      = errors.New("metrics job is required with a pushgateway url")
	ErrParametersFile  = errors.New("reading parameters file")
)
