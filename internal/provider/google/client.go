// Package google implements SPEC_FULL.md §4.3's "Google Gemini" Stream
// Adapter: a provider.Provider backed by the generateContent /
// streamGenerateContent REST API. The chunk-processing logic is a direct
// port of _examples/original_source/src/providers/google/{streaming.c,
// streaming_helpers.c}; the HTTP client shape (base-URL trimming, SSE line
// framing) is grounded on the teacher's
// internal/llm/openai/{client.go,stream.go}. The API key is sent as the
// "key" query parameter, not as a bearer header.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError represents a non-2xx HTTP response from the Gemini API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google api error: status %d: %s", e.StatusCode, e.Body)
}

// Category maps the HTTP status to the canonical error category, per
// SPEC_FULL.md §4.3's "HTTP-status mapping".
func (e *APIError) Category() string {
	switch e.StatusCode {
	case 400:
		return "invalid_arg"
	case 401, 403:
		return "auth"
	case 404:
		return "not_found"
	case 429:
		return "rate_limit"
	case 500, 502, 503:
		return "server"
	case 504:
		return "timeout"
	default:
		return "unknown"
	}
}

// Client talks to the Gemini generateContent/streamGenerateContent API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a client against the given base URL (e.g.
// "https://generativelanguage.googleapis.com").
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) generateURL(model string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
}

func (c *Client) streamURL(model string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, model, c.apiKey)
}

// doJSON issues a POST request with a JSON body and returns the raw response
// body, surfacing non-2xx responses as an *APIError.
func (c *Client) doJSON(ctx context.Context, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

// openStream issues a POST request for an SSE stream and returns the
// response body for the caller to line-buffer with readSSEEvent. Unlike
// doJSON, the body is not drained here: the stream adapter consumes it
// incrementally as chunks arrive.
func (c *Client) openStream(ctx context.Context, url string, payload any) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return resp.Body, nil
}
