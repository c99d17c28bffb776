package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igreposter/pkg/apierr"
	"igreposter/pkg/logger"
	"igreposter/pkg/ratelimit"
	"igreposter/pkg/retry"
)

// Client issues requests to the RapidAPI scraper backends. It carries the
// API key header pair, paces calls through a token bucket, and retries
// retryable failures with exponential backoff.
type Client struct {
	httpClient *http.Client
	apiKey     string
	maxRetries int
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// ClientOptions configures a scraper client.
type ClientOptions struct {
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
}

// NewClient creates a scraper backend client.
func NewClient(opts ClientOptions, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		apiKey:     opts.APIKey,
		maxRetries: opts.MaxRetries,
		limiter:    ratelimit.NewTokenBucket(rpm, time.Minute),
		logger:     log,
	}
}

// GetJSON performs a GET against one backend endpoint and decodes the
// response body into a dynamic map. The dynamic shape never leaves the
// adapter layer.
func (c *Client) GetJSON(ctx context.Context, host, path string, query url.Values) (map[string]any, error) {
	endpoint := fmt.Sprintf("https://%s%s", host, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return c.doJSON(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, host)
}

// PostFormJSON performs a form-encoded POST against one backend endpoint
// and decodes the response body into a dynamic map.
func (c *Client) PostFormJSON(ctx context.Context, host, path string, form url.Values) (map[string]any, error) {
	endpoint := fmt.Sprintf("https://%s%s", host, path)
	body := form.Encode()

	return c.doJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, host)
}

func (c *Client) doJSON(ctx context.Context, newReq func() (*http.Request, error), host string) (map[string]any, error) {
	op := func() (map[string]any, error) {
		req, err := newReq()
		if err != nil {
			return nil, &apierr.Error{
				Type:    apierr.ErrorTypeUnknown,
				Message: fmt.Sprintf("failed to create request: %v", err),
			}
		}
		return c.execute(req, host)
	}

	cfg := &retry.Config{
		MaxAttempts: c.maxRetries + 1,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger,
	}

	return retry.DoWithResult(op, cfg)
}

func (c *Client) execute(req *http.Request, host string) (map[string]any, error) {
	// A depleted bucket surfaces as a rate-limit error; the retry layer
	// backs off and tries again within the same attempt budget.
	if !c.limiter.Allow() {
		return nil, &apierr.Error{
			Type:    apierr.ErrorTypeRateLimit,
			Message: "outbound request budget exhausted",
			Code:    http.StatusTooManyRequests,
		}
	}

	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", host)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.WarnWithFields("scraper request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &apierr.Error{
			Type:    apierr.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("scraper request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apierr.Error{
			Type:    apierr.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse scraper response", map[string]interface{}{
			"url":          req.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, &apierr.Error{
			Type:    apierr.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return raw, nil
}

func checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &apierr.Error{
			Type:    apierr.ErrorTypeAuth,
			Message: "backend rejected credentials",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &apierr.Error{
			Type:    apierr.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &apierr.Error{
			Type:    apierr.ErrorTypeRateLimit,
			Message: "backend rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return &apierr.Error{
			Type:    apierr.ErrorTypeServerError,
			Message: "backend server error",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 400:
		return &apierr.Error{
			Type:    apierr.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	default:
		return nil
	}
}

// withTransport swaps the underlying round tripper. Tests use it to point
// every adapter host at a local httptest instance.
func (c *Client) withTransport(rt http.RoundTripper) {
	c.httpClient.Transport = rt
}
