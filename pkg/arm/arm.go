// Package arm issues authenticated requests against Azure Resource Manager.
// Authentication, telemetry, and transport are handled by the azcore pipeline
// handed to NewClient; this package only builds URLs and checks responses.
package arm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

// successCodes are the statuses ARM uses for a completed or accepted request.
var successCodes = []int{http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent}

// Client sends GET and PUT requests to a resource manager endpoint.
type Client struct {
	pipeline runtime.Pipeline
	endpoint string
	logger   *slog.Logger
}

// NewClient creates a Client for the given pipeline and endpoint
// (e.g. "https://management.azure.com/").
func NewClient(pipeline runtime.Pipeline, endpoint string, logger *slog.Logger) *Client {
	return &Client{
		pipeline: pipeline,
		endpoint: strings.TrimRight(endpoint, "/"),
		logger:   logger,
	}
}

// Endpoint returns the resource manager base URL without a trailing slash.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// URL joins the endpoint, a resource path, and the api-version query.
func (c *Client) URL(path, apiVersion string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.endpoint + path + "?api-version=" + url.QueryEscape(apiVersion)
}

// Get fetches a resource path and returns the response body.
func (c *Client) Get(ctx context.Context, path, apiVersion, userAgent string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, apiVersion, userAgent)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	body, err := runtime.Payload(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: reading GET %s: %w", ErrTransport, path, err)
	}

	return body, nil
}

// Put marshals body as JSON and sends it to a resource path.
func (c *Client) Put(ctx context.Context, path, apiVersion, userAgent string, body any) error {
	req, err := c.newRequest(ctx, http.MethodPut, path, apiVersion, userAgent)
	if err != nil {
		return err
	}

	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return fmt.Errorf("%w: encoding PUT %s: %w", ErrInvalidRequest, path, err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}

	runtime.Drain(resp)

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path, apiVersion, userAgent string) (*policy.Request, error) {
	target := c.URL(path, apiVersion)

	req, err := runtime.NewRequest(ctx, method, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrInvalidRequest, method, target, err)
	}

	if userAgent != "" {
		req.Raw().Header.Set("User-Agent", userAgent)
	}

	req.Raw().Header.Set("Accept", "application/json")

	return req, nil
}

func (c *Client) do(req *policy.Request) (*http.Response, error) {
	raw := req.Raw()
	c.logger.Debug("Sending ARM request", "method", raw.Method, "path", raw.URL.Path)

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, raw.Method, raw.URL.Path, err)
	}

	if !runtime.HasStatusCode(resp, successCodes...) {
		c.logger.Debug("ARM request failed", "method", raw.Method, "path", raw.URL.Path, "status", resp.StatusCode)
		return nil, runtime.NewResponseError(resp)
	}

	c.logger.Debug("ARM request succeeded", "method", raw.Method, "path", raw.URL.Path, "status", resp.StatusCode)

	return resp, nil
}
