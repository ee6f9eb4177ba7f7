package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GatewayConfig configures the HTTP SMS gateway client.
type GatewayConfig struct {
	// BaseURL is the provider's send endpoint.
	BaseURL string

	// APIKey authenticates the account with the provider.
	APIKey string

	// Sender is the optional sender id shown on the handset.
	Sender string

	// Timeout bounds one send round trip. Zero means 10s.
	Timeout time.Duration
}

// Gateway delivers messages through a form-POST SMS provider API. The wire
// shape follows the common aggregator convention: apiKey, recipient, text
// and an optional from field, answered with a JSON envelope whose code field
// is zero on success.
type Gateway struct {
	cfg    GatewayConfig
	client *http.Client
}

type gatewayResponse struct {
	Code int `json:"code"`
	Data struct {
		MessageID string `json:"messageId"`
		Status    string `json:"status"`
	} `json:"data"`
}

// NewGateway constructs the gateway client.
func NewGateway(cfg GatewayConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the message to the provider and parses the receipt.
func (g *Gateway) Send(ctx context.Context, msg Message) (Result, error) {
	form := url.Values{
		"apiKey":    {g.cfg.APIKey},
		"recipient": {msg.Destination},
		"text":      {msg.Body},
	}
	if g.cfg.Sender != "" {
		form.Set("from", g.cfg.Sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		// Keep the transport error in the chain so callers can tell a
		// deadline apart from a refused connection.
		return Result{}, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %w", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("%w: parse response: %v", ErrGatewayUnavailable, err)
	}
	if parsed.Code != 0 {
		return Result{}, fmt.Errorf("%w: provider code %d", ErrGatewayUnavailable, parsed.Code)
	}

	return Result{
		MessageID: parsed.Data.MessageID,
		Status:    parsed.Data.Status,
	}, nil
}
