package arm

import (
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// Sentinel errors for ARM requests.
var (
	ErrTransport      = errors.New("arm transport failure")
	ErrInvalidRequest = errors.New("invalid arm request")
	ErrUnknownCloud   = errors.New("unknown azure cloud")
	ErrCredential     = errors.New("azure credential unavailable")
)

// IsManagementError reports whether err came back from the management plane,
// either as a transport failure or as a non-success HTTP status. These are the
// failures worth retrying; a request that could not be built is not.
func IsManagementError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransport) {
		return true
	}

	var respErr *azcore.ResponseError

	return errors.As(err, &respErr)
}

// StatusCode returns the HTTP status carried by err, or 0 if there is none.
func StatusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}

	return 0
}
