package clouddns

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/paging"
)

const (
	// DefaultAPIEndpoint is the Cloud DNS v1.0 base URL, without the account.
	DefaultAPIEndpoint = "https://dns.api.rackspacecloud.com/v1.0"

	DefaultTimeout = 30 * time.Second
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clouddns: unexpected status code %d", e.StatusCode)
	}
	return fmt.Sprintf("clouddns: %s (status: %d)", e.Message, e.StatusCode)
}

// Unwrap maps 404 onto paging.ErrNotFound. Every other status, including
// other 4xx, stays a plain error.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return paging.ErrNotFound
	}
	return nil
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

func nextLink(links []link) paging.Cursor {
	for _, l := range links {
		if l.Rel == "next" && l.Href != "" {
			return paging.Cursor(l.Href)
		}
	}
	return paging.NoCursor
}

type domain struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type domainsResponse struct {
	Domains []domain `json:"domains"`
	Links   []link   `json:"links"`
}

type record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Data     string `json:"data"`
	TTL      *int   `json:"ttl,omitempty"`
	Priority *int   `json:"priority,omitempty"`
}

type recordsResponse struct {
	Records []record `json:"records"`
	Links   []link   `json:"links"`
}

type errorResponse struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

// authHeaders are set on each request. They come from the credential gate
// when a listing starts.
type authHeaders map[string]string

// httpClient talks to one Cloud DNS account.
type httpClient struct {
	apiEndpoint string
	httpClient  *http.Client
	logger      *zap.Logger
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *httpClient) {
		hc.httpClient = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(hc *httpClient) {
		if logger != nil {
			hc.logger = logger
		}
	}
}

// WithAPIEndpoint sets the base URL, including the account path.
func WithAPIEndpoint(endpoint string) ClientOption {
	return func(hc *httpClient) {
		if endpoint != "" {
			hc.apiEndpoint = strings.TrimSuffix(endpoint, "/")
		}
	}
}

func newHTTPClient(opts ...ClientOption) *httpClient {
	hc := &httpClient{
		apiEndpoint: DefaultAPIEndpoint,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

// get fetches target, which is either a path below the endpoint or an
// absolute URL taken from a next link, and decodes the JSON body into out.
func (hc *httpClient) get(ctx context.Context, target string, headers authHeaders, out any) error {
	reqURL := target
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		reqURL = hc.apiEndpoint + target
	}
	hc.logger.Debug("making API request", zap.String("url", reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil {
			apiErr.Message = errResp.Message
			if apiErr.Message == "" {
				apiErr.Message = errResp.Details
			}
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}
