package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Relay is an upstream response as received: status code plus raw body.
// The body is never decoded here.
type Relay struct {
	StatusCode int
	Body       []byte
}

// Client forwards prebuilt Chat Completions bodies to an OpenAI-compatible API.
// It is stateless across calls and safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. Without WithHTTPClient the outbound call carries
// no client-side timeout; the Lambda deadline bounds it instead.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Forward makes a single POST of body to the chat completions endpoint and
// returns whatever the upstream answered, whatever its status. An error means
// the upstream could not be reached or its body could not be read.
//
// The call is detached from ctx cancellation: a client that hangs up does not
// abort an upstream request already in flight.
func (c *Client) Forward(ctx context.Context, apiKey string, body []byte) (Relay, error) {
	if apiKey == "" {
		return Relay{}, errors.New("openai: api key must not be empty")
	}

	url := chatURL(c.baseURL)
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Relay{}, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return Relay{}, fmt.Errorf("openai: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		return Relay{}, fmt.Errorf("openai: read response body: %w", err)
	}
	return Relay{StatusCode: res.StatusCode, Body: buf}, nil
}
