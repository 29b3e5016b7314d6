package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/booking-widget/pkg/logging"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultAPIKeyHeader = "X-API-Key"
	maxErrorBody        = 300
)

// APIError is returned when the provider answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scheduling API returned %d: %s", e.StatusCode, e.Body)
}

// Client wraps the provider's REST endpoints.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	orgID        string
	apiKey       string
	apiKeyHeader string
	timeout      time.Duration
	logger       *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every provider call. The provider itself never times
// out a hung request, so this is always set. A client passed through
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAPIKeyHeader overrides the header that carries the API key. All three
// endpoints use the same header.
func WithAPIKeyHeader(name string) Option {
	return func(c *Client) {
		if strings.TrimSpace(name) != "" {
			c.apiKeyHeader = strings.TrimSpace(name)
		}
	}
}

// NewClient constructs a provider client for one organization.
func NewClient(baseURL, organizationID, apiKey string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient:   &http.Client{},
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		orgID:        organizationID,
		apiKey:       apiKey,
		apiKeyHeader: defaultAPIKeyHeader,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.httpClient
	switch {
	case c.timeout > 0:
		hc.Timeout = c.timeout
	case hc.Timeout == 0:
		hc.Timeout = defaultTimeout
	}
	c.httpClient = &hc
	return c
}

// OrganizationID returns the company id bookings are created under.
func (c *Client) OrganizationID() string {
	return c.orgID
}

// GetTimes queries free slots for a service between from and to.
func (c *Client) GetTimes(ctx context.Context, serviceID string, from, to time.Time) (*TimesResponse, error) {
	path := fmt.Sprintf("/api/v1/companies/%s/services/%s/times", url.PathEscape(c.orgID), url.PathEscape(serviceID))
	body := TimesRequest{
		From:  from.Format(time.RFC3339),
		To:    to.Format(time.RFC3339),
		Spots: 1,
	}

	var resp TimesResponse
	raw, err := c.post(ctx, path, body)
	if err != nil {
		return nil, fmt.Errorf("get times: %w", err)
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("get times: decode response: %w", err)
	}
	if resp.Times == nil {
		return nil, fmt.Errorf("get times: response has no times object")
	}
	return &resp, nil
}

// CreateClientBooking posts to the primary booking endpoint and returns the
// raw success body.
func (c *Client) CreateClientBooking(ctx context.Context, req ClientBookingRequest) ([]byte, error) {
	raw, err := c.post(ctx, "/api/v1/client/bookings", req)
	if err != nil {
		return nil, fmt.Errorf("create client booking: %w", err)
	}
	return raw, nil
}

// CreateMerchantBooking posts to the fallback booking endpoint and returns the
// raw success body.
func (c *Client) CreateMerchantBooking(ctx context.Context, req MerchantBookingRequest) ([]byte, error) {
	path := fmt.Sprintf("/api/v1/companies/%s/bookings", url.PathEscape(c.orgID))
	raw, err := c.post(ctx, path, req)
	if err != nil {
		return nil, fmt.Errorf("create merchant booking: %w", err)
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("scheduling API call",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		c.logger.Warn("scheduling API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Body: msg}
	}
	return respBody, nil
}
