package verifysdk

import (
	"context"
	"net/http"
)

// CreateSession starts a fresh verification session for the token's subject.
func (c *Client) CreateSession(ctx context.Context) (SessionResponse, error) {
	var out SessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/verification", nil, &out, http.StatusCreated)
	return out, err
}

// GetSession returns the current snapshot of a session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (SessionResponse, error) {
	var out SessionResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/verification/"+sessionID, nil, &out, http.StatusOK)
	return out, err
}

// SelectChannel records the channel choice. For the authenticator channel
// the response carries the provisioning payload exactly once.
func (c *Client) SelectChannel(ctx context.Context, sessionID string, req SelectChannelRequest) (SelectChannelResponse, error) {
	var out SelectChannelResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/verification/"+sessionID+"/channel", req, &out, http.StatusOK)
	return out, err
}

// RequestCode dispatches a code over the selected channel. The call returns
// once the outcome is known.
func (c *Client) RequestCode(ctx context.Context, sessionID string) (SessionResponse, error) {
	var out SessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/verification/"+sessionID+"/dispatch", nil, &out, http.StatusOK)
	return out, err
}

// ResendCode requests a fresh code. Subject to the resend cooldown; a
// cooldown_active error carries the remaining wait in RetryAfter.
func (c *Client) ResendCode(ctx context.Context, sessionID string) (SessionResponse, error) {
	var out SessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/verification/"+sessionID+"/resend", nil, &out, http.StatusOK)
	return out, err
}

// SubmitCode submits the candidate code for verification.
func (c *Client) SubmitCode(ctx context.Context, sessionID, code string) (SessionResponse, error) {
	var out SessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/verification/"+sessionID+"/submit",
		SubmitCodeRequest{Code: code}, &out, http.StatusOK)
	return out, err
}

// AbandonSession deletes the session and any issued codes.
func (c *Client) AbandonSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/verification/"+sessionID, nil, nil, http.StatusNoContent)
}

// GetLiveness checks the liveness endpoint. No authentication required.
func (c *Client) GetLiveness(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/livez", nil, &out, http.StatusOK)
	return out, err
}

// GetReadiness checks the readiness endpoint. No authentication required.
func (c *Client) GetReadiness(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/readyz", nil, &out, http.StatusOK)
	return out, err
}
