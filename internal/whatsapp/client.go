// Package whatsapp talks to an Evolution API gateway instance for outbound
// messages and decodes its inbound webhook events.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when the gateway settings are absent.
	ErrNotConfigured = errors.New("whatsapp: gateway not configured")
	// ErrGateway wraps non-2xx responses from the gateway.
	ErrGateway = errors.New("whatsapp: gateway error")
)

// Client is a thin HTTP client for one gateway instance.
type Client struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests, custom
// timeouts).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds a gateway client. Empty settings yield a client whose
// calls fail with ErrNotConfigured, so callers can construct it
// unconditionally.
func NewClient(baseURL, apiKey, instance string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		instance:   instance,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has everything it needs to talk to
// the gateway.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != "" && c.instance != ""
}

// InstanceState is the gateway's view of the WhatsApp session.
type InstanceState struct {
	Instance string `json:"instance"`
	State    string `json:"state"`
}

// Connected reports whether the session can send messages.
func (s InstanceState) Connected() bool { return s.State == "open" }

type connectionStateResponse struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		State        string `json:"state"`
	} `json:"instance"`
}

// InstanceStatus queries the connection state of the configured instance.
func (c *Client) InstanceStatus(ctx context.Context) (InstanceState, error) {
	if !c.Configured() {
		return InstanceState{}, ErrNotConfigured
	}
	var resp connectionStateResponse
	err := c.do(ctx, http.MethodGet, "/instance/connectionState/"+c.instance, nil, &resp)
	if err != nil {
		return InstanceState{}, err
	}
	return InstanceState{Instance: resp.Instance.InstanceName, State: resp.Instance.State}, nil
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendTextResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

// SendText delivers one text message and returns the gateway message id.
func (c *Client) SendText(ctx context.Context, number, text string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	number = NormalizeNumber(number)
	if number == "" || strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty number or text", ErrGateway)
	}
	var resp sendTextResponse
	err := c.do(ctx, http.MethodPost, "/message/sendText/"+c.instance,
		sendTextRequest{Number: number, Text: text}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Key.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned %d: %s", ErrGateway, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// NormalizeNumber strips formatting and prefixes the default country code
// when the number looks local (10 or 11 digits).
func NormalizeNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}
