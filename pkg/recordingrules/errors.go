package recordingrules

import "errors"

// Sentinel errors for template handling and provisioning.
var (
	ErrMalformedResponse        = errors.New("malformed recommendations response")
	ErrInsufficientTemplates    = errors.New("insufficient recording rule templates")
	ErrTemplateWithoutResources = errors.New("template has no rule resources")
	ErrRejectedTemplates        = errors.New("recommendations contained rejected templates")
	ErrInvalidExpressions       = errors.New("templates contain invalid rules")
	ErrMissingParameter         = errors.New("missing required parameter")
)
