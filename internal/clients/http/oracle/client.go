package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const similarityPath = "/v1/similarity"

// SimilarityRequest is the body posted to the oracle.
type SimilarityRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

// SimilarityResponse is the oracle's answer.
type SimilarityResponse struct {
	Similarity *float64 `json:"similarity"`
}

// ErrorBody is returned by the oracle on 4xx/5xx.
type ErrorBody struct {
	Message string `json:"message"`
}

// Client calls a semantic-similarity service over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient instantiates the oracle client. A nil httpClient gets an
// otelhttp-instrumented transport and a 5s timeout.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("oracle base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid oracle base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Similarity asks the oracle how alike two descriptions are.
func (c *Client) Similarity(ctx context.Context, a, b string) (float64, error) {
	if c == nil || c.httpClient == nil {
		return 0, errors.New("oracle client not configured")
	}
	body, err := json.Marshal(SimilarityRequest{A: a, B: b})
	if err != nil {
		return 0, fmt.Errorf("encode oracle request: %w", err)
	}
	endpoint := c.baseURL.JoinPath(similarityPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call oracle API: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read oracle response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var out SimilarityResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return 0, fmt.Errorf("decode oracle response: %w", err)
		}
		if out.Similarity == nil {
			return 0, errors.New("oracle response missing similarity")
		}
		return *out.Similarity, nil
	case resp.StatusCode >= http.StatusBadRequest:
		return 0, fmt.Errorf("oracle API error: %s", errorMessage(raw, resp.Status))
	default:
		return 0, fmt.Errorf("oracle API unexpected status: %s", resp.Status)
	}
}

func errorMessage(raw []byte, fallback string) string {
	var body ErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return fallback
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		return msg
	}
	return fallback
}
