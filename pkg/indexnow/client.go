package indexnow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"indexnow-go/pkg/logger"
	"indexnow-go/pkg/utils"
)

// Client submits URL batches to an IndexNow endpoint
type Client struct {
	endpoint string
	timeout  time.Duration
	client   *fasthttp.Client
	log      *logger.SecurityLogger
}

// NewClient creates a submission client. An empty endpoint selects DefaultEndpoint.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	parsed, err := url.Parse(config.Endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return nil, utils.NewConfigError("invalid IndexNow endpoint %q", config.Endpoint)
	}

	return &Client{
		endpoint: config.Endpoint,
		timeout:  config.Timeout,
		client: &fasthttp.Client{
			Name:                "indexnow-go",
			MaxIdleConnDuration: time.Second,
		},
		log: logger.NewSecurityLogger(logger.GetLogger().WithField("component", "indexnow_client")),
	}, nil
}

// SubmitURLs validates the request and issues exactly one POST. Configuration
// and validation problems are returned as errors before any network I/O;
// timeouts, transport failures and non-success statuses are reported in the
// returned result with a nil error.
func SubmitURLs(ctx context.Context, req SubmissionRequest) (SubmissionResult, error) {
	client, err := NewClient(Config{})
	if err != nil {
		return SubmissionResult{}, err
	}
	return client.SubmitURLs(ctx, req)
}

// SubmitURLs is the package-level SubmitURLs bound to this client's endpoint
func (c *Client) SubmitURLs(ctx context.Context, req SubmissionRequest) (SubmissionResult, error) {
	if err := validateRequest(req); err != nil {
		return SubmissionResult{}, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	body, err := json.Marshal(payload{
		Host:        req.Host,
		Key:         req.Key,
		KeyLocation: req.KeyLocation,
		URLList:     req.URLList,
	})
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("failed to marshal submission: %w", err)
	}

	c.log.SafeDebug("Submitting URL batch", map[string]interface{}{
		"host":         req.Host,
		"key":          req.Key,
		"key_location": req.KeyLocation,
		"url_count":    len(req.URLList),
	})

	start := time.Now()
	deadline := start.Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	status, respBody, err := c.post(ctx, body, deadline)
	finished := time.Now()

	result := SubmissionResult{
		StatusCode:   status,
		URLCount:     len(req.URLList),
		DurationMs:   finished.Sub(start).Milliseconds(),
		Timestamp:    formatTimestamp(finished),
		DeploymentID: req.DeploymentID,
	}

	switch {
	case err != nil && isTimeout(err):
		result.StatusCode = 0
		result.Error = fmt.Sprintf("Request timeout (%dms)", max(deadline.Sub(start).Round(time.Millisecond), 0).Milliseconds())
	case err != nil:
		result.StatusCode = 0
		result.Error = "Network error: " + err.Error()
	case isSuccessStatus(status):
		result.Success = true
	default:
		result.Error = describeStatus(status, respBody)
	}
	result.Error = utils.RedactAPIKey(result.Error)

	fields := map[string]interface{}{
		"status_code": result.StatusCode,
		"url_count":   result.URLCount,
		"duration_ms": result.DurationMs,
	}
	if result.Success {
		c.log.SafeInfo("IndexNow submission accepted", fields)
	} else {
		fields["error"] = result.Error
		c.log.SafeWarn("IndexNow submission failed", fields)
	}

	return result, nil
}

// post sends one request on a fresh connection and returns status and a copy of the body
func (c *Client) post(ctx context.Context, body []byte, deadline time.Time) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json; charset=utf-8")
	req.SetConnectionClose()
	req.SetBody(body)

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, err
	}

	return resp.StatusCode(), append([]byte(nil), resp.Body()...), nil
}

func validateRequest(req SubmissionRequest) error {
	if strings.TrimSpace(req.Host) == "" {
		return utils.NewConfigError("host is required")
	}
	if req.Key == "" {
		return utils.NewConfigError("key is required")
	}
	if !utils.ValidateAPIKey(req.Key) {
		return utils.NewValidationError("key must be 8-128 hexadecimal characters")
	}
	if strings.TrimSpace(req.KeyLocation) == "" {
		return utils.NewConfigError("keyLocation is required")
	}
	if req.URLList == nil {
		return utils.NewValidationError("urlList must be an array")
	}
	return nil
}

func isTimeout(err error) bool {
	return errors.Is(err, fasthttp.ErrTimeout) ||
		errors.Is(err, fasthttp.ErrDialTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
