package verifysdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nzassa/verify/pkg/httpx"
)

// Error codes returned by the verification service.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeInsufficientScope  = "insufficient_scope"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeChannelAlreadySet  = "channel_already_set"
	ErrorCodeNoChannelSelected  = "no_channel_selected"
	ErrorCodeInvalidDestination = "invalid_destination"
	ErrorCodeDispatchInFlight   = "dispatch_in_flight"
	ErrorCodeNothingDispatched  = "nothing_dispatched"
	ErrorCodeIncompleteCode     = "incomplete_code"
	ErrorCodeCodeRejected       = "code_rejected"
	ErrorCodeCooldownActive     = "cooldown_active"
	ErrorCodeTooManyAttempts    = "too_many_attempts"
	ErrorCodeSessionExpired     = "session_expired"
	ErrorCodeSessionConsumed    = "session_consumed"
	ErrorCodeDispatchFailed     = "dispatch_failed"
	ErrorCodeTimeout            = "timeout"
	ErrorCodeServerError        = "server_error"
)

// APIError is the service's error response. It implements the error
// interface and is used both by the server (to write HTTP responses) and by
// the SDK client (to represent errors).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`

	// RetryAfter carries the remaining cooldown in whole seconds when Code
	// is cooldown_active.
	RetryAfter int `json:"retry_after,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", e.RetryAfter))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// Predefined errors for conditions that carry no per-request detail.
var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "verification session not found",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "an internal error occurred",
	}
)

// parseErrorResponse turns a non-2xx response body into a typed *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        ErrorCodeServerError,
			Description: fmt.Sprintf("unexpected response (status %d)", resp.StatusCode),
		}
	}
	apiErr.StatusCode = resp.StatusCode
	return &apiErr
}
