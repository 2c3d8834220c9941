// Package datafactory is a client for the Azure Data Factory control plane
// (the Microsoft.DataFactory resource provider on management.azure.com).
// It covers the factory, linked service, dataset, pipeline and pipeline run
// resources this repo provisions and deploys.
package datafactory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/jpillora/backoff"
	"github.com/samsarahq/go/oops"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the public-cloud Azure Resource Manager endpoint.
	DefaultEndpoint = "https://management.azure.com"

	// apiVersion is sent on every request; 2018-06-01 is the GA surface for
	// all Data Factory resources used here.
	apiVersion = "2018-06-01"
)

type Client struct {
	httpClient http.Client
	endpoint   url.URL

	// resourcePath is the ARM resource ID of the factory, used as the URL
	// prefix for every request.
	resourcePath string

	tokens      *managementTokenSource
	rateLimiter *rate.Limiter
}

type API interface {
	DatasetsAPI
	FactoriesAPI
	LinkedServicesAPI
	PipelineRunsAPI
	PipelinesAPI
	ResourceID() string
}

type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTPStatusError(%d %s): %s", e.StatusCode, e.Status, e.Body)
}

// APIError is the decoded ARM error envelope ({"error": {"code", "message"}}).
// StatusCode is carried from the HTTP response because ARM error codes vary
// per resource provider while the status is uniform.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("APIError(%s): %s", e.Code, e.Message)
}

type apiErrorEnvelope struct {
	Err *APIError `json:"error"`
}

// IsNotFound reports whether err is a 404 from the control plane. Existence
// checks throughout the provisioner rely on it.
func IsNotFound(err error) bool {
	switch cause := oops.Cause(err).(type) {
	case *HTTPStatusError:
		return cause.StatusCode == http.StatusNotFound
	case *APIError:
		return cause.StatusCode == http.StatusNotFound
	default:
		return false
	}
}

func New(subscriptionID, resourceGroup, factoryName string, credential azcore.TokenCredential) (*Client, error) {
	return NewWithEndpoint(DefaultEndpoint, subscriptionID, resourceGroup, factoryName, credential)
}

// NewWithEndpoint is New with a non-default resource manager endpoint
// (sovereign clouds, test servers).
func NewWithEndpoint(endpoint, subscriptionID, resourceGroup, factoryName string, credential azcore.TokenCredential) (*Client, error) {
	if endpoint == "" {
		return nil, oops.Errorf("management endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, oops.Wrapf(err, "url parse: %s", endpoint)
	}
	if subscriptionID == "" || resourceGroup == "" || factoryName == "" {
		return nil, oops.Errorf("subscription ID, resource group and factory name must all be set")
	}
	if credential == nil {
		return nil, oops.Errorf("credential must be set")
	}

	// ARM throttles management requests per principal. Stay well under the
	// default budgets so a large deploy never trips the service limiter.
	rateLimiter := rate.NewLimiter(5, 1)

	scope := strings.TrimSuffix(u.String(), "/") + "/.default"

	return &Client{
		endpoint: *u,
		resourcePath: fmt.Sprintf(
			"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.DataFactory/factories/%s",
			subscriptionID, resourceGroup, factoryName),
		tokens:      newManagementTokenSource(credential, scope, 5*time.Minute),
		rateLimiter: rateLimiter,
	}, nil
}

// ResourceID returns the ARM resource ID of the factory this client targets.
func (c *Client) ResourceID() string {
	return c.resourcePath
}

func (c *Client) url(endpoint string) string {
	u := c.endpoint
	u.Path = path.Join(u.Path, c.resourcePath, endpoint)
	q := u.Query()
	q.Set("api-version", apiVersion)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload interface{}, resp interface{}) error {
	return c.doURL(ctx, method, c.url(endpoint), payload, resp)
}

// doURL is do for a fully-built URL; nextLink pagination URLs arrive here
// with api-version already present.
func (c *Client) doURL(ctx context.Context, method, fullURL string, payload interface{}, resp interface{}) error {
	const maxRetries = 10
	backoff := backoff.Backoff{
		Min:    2 * time.Second,
		Max:    15 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	for attempt := 0; ; attempt++ {
		err := c.doWithoutRetry(ctx, method, fullURL, payload, resp)
		if err == nil {
			return nil
		}

		if attempt >= maxRetries {
			return oops.Wrapf(err, "gave up after %d tries", maxRetries)
		}

		inner := oops.Cause(err)
		retryable := false

		// Transient connection resets surface as "unexpected EOF" when the
		// service drops a kept-alive connection mid-response.
		if strings.Contains(inner.Error(), "unexpected EOF") {
			retryable = true
		} else if httpErr, ok := inner.(*HTTPStatusError); ok && retryableStatus(httpErr.StatusCode) {
			retryable = true
		} else if apiErr, ok := inner.(*APIError); ok && retryableStatus(apiErr.StatusCode) {
			retryable = true
		}

		if !retryable {
			return oops.Wrapf(err, "not retryable")
		}

		select {
		case <-time.After(backoff.Duration()):
		case <-ctx.Done():
			return oops.Wrapf(err, "canceled after %d tries", attempt+1)
		}
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) doWithoutRetry(ctx context.Context, method, fullURL string, payload interface{}, resp interface{}) error {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return oops.Errorf("bad method: %s", method)
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return oops.Wrapf(err, "json marshal")
		}
	}

	var bodyReader io.Reader
	if len(body) != 0 {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return oops.Wrapf(err, "url: %s", fullURL)
	}

	token, err := c.tokens.token(ctx)
	if err != nil {
		return oops.Wrapf(err, "failed to get token for url: %s", fullURL)
	}
	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	if bodyReader != nil {
		httpReq.Header.Add("Content-Type", "application/json")
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return oops.Wrapf(err, "url: %s", fullURL)
	}
	defer httpResp.Body.Close()

	body, err = io.ReadAll(httpResp.Body)
	if err != nil {
		return oops.Wrapf(err, "")
	}

	switch httpResp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
	default:
		var envelope apiErrorEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Err == nil || envelope.Err.Code == "" {
			err := &HTTPStatusError{
				Status:     httpResp.Status,
				StatusCode: httpResp.StatusCode,
				Body:       string(body),
			}

			if httpResp.StatusCode == http.StatusUnauthorized && token == "" {
				return oops.Wrapf(err, "token not set")
			}
			return oops.Wrapf(err, "url: %s", fullURL)
		}
		envelope.Err.StatusCode = httpResp.StatusCode
		return envelope.Err
	}

	if len(body) == 0 || resp == nil {
		return nil
	}

	if err := json.Unmarshal(body, resp); err != nil {
		return oops.Wrapf(err, "parse body from url %s: %s", fullURL, string(body))
	}
	return nil
}

var _ API = &Client{}
