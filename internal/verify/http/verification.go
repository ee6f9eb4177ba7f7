package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/nzassa/verify/internal/verify/domain"
	"github.com/nzassa/verify/internal/verify/service"
	"github.com/nzassa/verify/pkg/httpx"
	"github.com/nzassa/verify/pkg/slogx"
	"github.com/nzassa/verify/pkg/verifysdk"
)

// VerificationHandler handles all verification session endpoints.
type VerificationHandler struct {
	SessionService  *service.SessionService
	DispatchService *service.DispatchService
	VerifyService   *service.VerifyService
}

// HandleCreate handles POST /v1/verification
//
//	@Summary		Start a verification session
//	@Description	Creates a fresh verification session for the authenticated user.
//	@Description	The session starts with no channel selected and expires after its TTL.
//	@Tags			Verification
//	@Security		BearerAuth
//	@Produce		json
//	@Success		201	{object}	verifysdk.SessionResponse	"New session snapshot"
//	@Failure		401	{object}	verifysdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403	{object}	verifysdk.ErrorResponse		"Token lacks the verification scope"
//	@Failure		500	{object}	verifysdk.ErrorResponse		"Internal server error"
//	@Router			/v1/verification [post].
func (h *VerificationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		verifysdk.ErrInvalidToken.WriteError(w)
		return
	}

	session, err := h.SessionService.Start(ctx, userID)
	if err != nil {
		log.Error("failed to create session", "err", err)
		verifysdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

// HandleGet handles GET /v1/verification/{id}
//
//	@Summary		Session snapshot
//	@Description	Returns the current state of the caller's verification session.
//	@Tags			Verification
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string						true	"Session ID"
//	@Success		200	{object}	verifysdk.SessionResponse	"Session snapshot"
//	@Failure		401	{object}	verifysdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403	{object}	verifysdk.ErrorResponse		"Token lacks the verification scope"
//	@Failure		404	{object}	verifysdk.ErrorResponse		"Session not found"
//	@Router			/v1/verification/{id} [get].
func (h *VerificationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		verifysdk.ErrInvalidToken.WriteError(w)
		return
	}

	session, err := h.SessionService.Get(ctx, r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, r, err, session)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleChannel handles POST /v1/verification/{id}/channel
//
//	@Summary		Select the verification channel
//	@Description	Picks the delivery channel for the session. The choice is immutable.
//	@Description	For the authenticator channel the response carries the TOTP provisioning
//	@Description	payload exactly once; for SMS a destination phone number is required.
//	@Tags			Verification
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Session ID"
//	@Param			request	body		verifysdk.SelectChannelRequest	true	"Channel choice"
//	@Success		200		{object}	verifysdk.SelectChannelResponse	"Updated session, plus provisioning for authenticator"
//	@Failure		400		{object}	verifysdk.ErrorResponse			"Malformed request or destination"
//	@Failure		401		{object}	verifysdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		403		{object}	verifysdk.ErrorResponse			"Token lacks the verification scope"
//	@Failure		404		{object}	verifysdk.ErrorResponse			"Session not found"
//	@Failure		409		{object}	verifysdk.ErrorResponse			"Channel already selected"
//	@Failure		410		{object}	verifysdk.ErrorResponse			"Session expired or already verified"
//	@Router			/v1/verification/{id}/channel [post].
func (h *VerificationHandler) HandleChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		verifysdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req verifysdk.SelectChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		verifysdk.ErrInvalidRequest.WriteError(w)
		return
	}

	session, payload, err := h.SessionService.SelectChannel(ctx, r.PathValue("id"), userID, req.Channel, req.Destination)
	if err != nil {
		writeServiceError(w, r, err, session)
		return
	}

	resp := verifysdk.SelectChannelResponse{Session: toSessionResponse(session)}
	if payload != nil {
		resp.Provisioning = &verifysdk.ProvisioningResponse{
			Secret:     payload.Secret,
			OtpauthURL: payload.OtpauthURL,
			Issuer:     payload.Issuer,
			Account:    payload.Account,
		}
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleDispatch handles POST /v1/verification/{id}/dispatch
//
//	@Summary		Dispatch a verification code
//	@Description	Sends a 6-digit code over the selected channel. For SMS the code is
//	@Description	generated server-side and handed to the gateway; for the authenticator
//	@Description	channel nothing is sent and submission simply unlocks. The response
//	@Description	arrives once the outcome is known.
//	@Tags			Verification
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string						true	"Session ID"
//	@Success		200	{object}	verifysdk.SessionResponse	"Code dispatched"
//	@Failure		401	{object}	verifysdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403	{object}	verifysdk.ErrorResponse		"Token lacks the verification scope"
//	@Failure		404	{object}	verifysdk.ErrorResponse		"Session not found"
//	@Failure		409	{object}	verifysdk.ErrorResponse		"No channel selected or dispatch in flight"
//	@Failure		429	{object}	verifysdk.ErrorResponse		"Resend cooldown active"
//	@Failure		502	{object}	verifysdk.ErrorResponse		"Gateway rejected the send"
//	@Failure		504	{object}	verifysdk.ErrorResponse		"Gateway timed out"
//	@Router			/v1/verification/{id}/dispatch [post].
func (h *VerificationHandler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, h.DispatchService.RequestCode)
}

// HandleResend handles POST /v1/verification/{id}/resend
//
//	@Summary		Resend the verification code
//	@Description	Requests a fresh code. Gated by the resend cooldown; a cooldown_active
//	@Description	error reports the remaining wait in retry_after. A successful resend
//	@Description	invalidates the previous code and clears any entered digits.
//	@Tags			Verification
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string						true	"Session ID"
//	@Success		200	{object}	verifysdk.SessionResponse	"Code resent"
//	@Failure		401	{object}	verifysdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403	{object}	verifysdk.ErrorResponse		"Token lacks the verification scope"
//	@Failure		404	{object}	verifysdk.ErrorResponse		"Session not found"
//	@Failure		429	{object}	verifysdk.ErrorResponse		"Resend cooldown active"
//	@Failure		502	{object}	verifysdk.ErrorResponse		"Gateway rejected the send"
//	@Router			/v1/verification/{id}/resend [post].
func (h *VerificationHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, h.DispatchService.ResendCode)
}

func (h *VerificationHandler) dispatch(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, sessionID, userID string) (domain.VerificationSession, error)) {
	ctx := r.Context()

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		verifysdk.ErrInvalidToken.WriteError(w)
		return
	}

	session, err := op(ctx, r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, r, err, session)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleSubmit handles POST /v1/verification/{id}/submit
//
//	@Summary		Submit the verification code
//	@Description	Records the candidate and runs it against the channel's verifier.
//	@Description	Incomplete candidates are rejected without a verifier call; a wrong
//	@Description	code spends one of the session's attempts.
//	@Tags			Verification
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Session ID"
//	@Param			request	body		verifysdk.SubmitCodeRequest	true	"Candidate code"
//	@Success		200		{object}	verifysdk.SessionResponse	"Session verified"
//	@Failure		400		{object}	verifysdk.ErrorResponse		"Malformed candidate"
//	@Failure		401		{object}	verifysdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		404		{object}	verifysdk.ErrorResponse		"Session not found"
//	@Failure		409		{object}	verifysdk.ErrorResponse		"No code dispatched yet"
//	@Failure		410		{object}	verifysdk.ErrorResponse		"Session expired or already verified"
//	@Failure		422		{object}	verifysdk.ErrorResponse		"Incomplete or rejected code"
//	@Failure		429		{object}	verifysdk.ErrorResponse		"Too many failed attempts"
//	@Router			/v1/verification/{id}/submit [post].
func (h *VerificationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		verifysdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req verifysdk.SubmitCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		verifysdk.ErrInvalidRequest.WriteError(w)
		return
	}

	session, err := h.VerifyService.SubmitCode(ctx, r.PathValue("id"), userID, req.Code)
	if err != nil {
		writeServiceError(w, r, err, session)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleAbandon handles DELETE /v1/verification/{id}
//
//	@Summary		Abandon a verification session
//	@Description	Deletes the session and invalidates any issued codes.
//	@Tags			Verification
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	"Session deleted"
//	@Failure		401	{object}	verifysdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	verifysdk.ErrorResponse	"Token lacks the verification scope"
//	@Failure		404	{object}	verifysdk.ErrorResponse	"Session not found"
//	@Router			/v1/verification/{id} [delete].
func (h *VerificationHandler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		verifysdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.SessionService.Abandon(ctx, r.PathValue("id"), userID); err != nil {
		writeServiceError(w, r, err, domain.VerificationSession{})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toSessionResponse(s domain.VerificationSession) verifysdk.SessionResponse {
	resp := verifysdk.SessionResponse{
		ID:                s.ID,
		Channel:           string(s.Channel),
		Destination:       s.Destination,
		DispatchState:     string(s.DispatchState),
		VerifyState:       string(s.VerifyState),
		Verified:          s.Consumed(),
		Attempts:          s.Attempts,
		AttemptsRemaining: max(domain.MaxAttempts-s.Attempts, 0),
		StatusMessage:     s.StatusMessage,
		ExpiresAt:         s.ExpiresAt,
	}
	if !s.ResendCooldownUntil.IsZero() {
		until := s.ResendCooldownUntil
		resp.ResendCooldownUntil = &until
	}
	return resp
}

// writeServiceError maps service and state machine errors onto the API
// error taxonomy. The session snapshot, when available, supplies the
// human-readable description.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, session domain.VerificationSession) {
	log := slogx.FromContext(r.Context())

	var cd *domain.CooldownError
	if errors.As(err, &cd) {
		apiErr := &verifysdk.APIError{
			StatusCode:  http.StatusTooManyRequests,
			Code:        verifysdk.ErrorCodeCooldownActive,
			Description: "a code was sent recently; wait before requesting another",
			RetryAfter:  int(math.Ceil(cd.Remaining.Seconds())),
		}
		apiErr.WriteError(w)
		return
	}

	code, status, desc := classifyError(err)
	if code == "" {
		log.Error("unhandled service error", "err", err)
		verifysdk.ErrServerError.WriteError(w)
		return
	}
	if session.StatusMessage != "" {
		desc = session.StatusMessage
	}

	apiErr := &verifysdk.APIError{StatusCode: status, Code: code, Description: desc}
	apiErr.WriteError(w)
}

func classifyError(err error) (code string, status int, desc string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return verifysdk.ErrorCodeNotFound, http.StatusNotFound, "verification session not found"
	case errors.Is(err, domain.ErrChannelAlreadySet):
		return verifysdk.ErrorCodeChannelAlreadySet, http.StatusConflict, "the channel is already selected for this session"
	case errors.Is(err, domain.ErrNoChannelSelected):
		return verifysdk.ErrorCodeNoChannelSelected, http.StatusConflict, "select a channel before requesting a code"
	case errors.Is(err, domain.ErrInvalidDestination):
		return verifysdk.ErrorCodeInvalidDestination, http.StatusBadRequest, "the phone number is missing or malformed"
	case errors.Is(err, domain.ErrDispatchInFlight):
		return verifysdk.ErrorCodeDispatchInFlight, http.StatusConflict, "a code is already being sent"
	case errors.Is(err, domain.ErrNothingDispatched):
		return verifysdk.ErrorCodeNothingDispatched, http.StatusConflict, "request a code before submitting one"
	case errors.Is(err, domain.ErrIncompleteCode):
		return verifysdk.ErrorCodeIncompleteCode, http.StatusUnprocessableEntity, "enter all 6 digits before submitting"
	case errors.Is(err, domain.ErrMalformedCode):
		return verifysdk.ErrorCodeInvalidRequest, http.StatusBadRequest, "the code may only contain up to 6 digits"
	case errors.Is(err, service.ErrCodeRejected):
		return verifysdk.ErrorCodeCodeRejected, http.StatusUnprocessableEntity, "the code was rejected"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return verifysdk.ErrorCodeTooManyAttempts, http.StatusTooManyRequests, "too many failed attempts; start a new verification"
	case errors.Is(err, domain.ErrSessionExpired):
		return verifysdk.ErrorCodeSessionExpired, http.StatusGone, "the verification session has expired"
	case errors.Is(err, domain.ErrSessionConsumed):
		return verifysdk.ErrorCodeSessionConsumed, http.StatusGone, "the session is already verified"
	case errors.Is(err, service.ErrTimeout):
		return verifysdk.ErrorCodeTimeout, http.StatusGatewayTimeout, "the operation timed out; try again"
	case errors.Is(err, service.ErrDispatchFailed):
		return verifysdk.ErrorCodeDispatchFailed, http.StatusBadGateway, "the code could not be sent; try again"
	default:
		return "", 0, ""
	}
}
