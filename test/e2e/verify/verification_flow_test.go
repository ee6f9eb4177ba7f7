package verify_test

import (
	"context"
	"testing"
	"time"

	"github.com/nzassa/verify/pkg/verifysdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupVerifyContainer(t, nil)
	defer cleanup()

	ctx := context.Background()
	client := newUserClient(t, baseURL, "health-check-user")

	t.Run("liveness", func(t *testing.T) {
		health, err := client.GetLiveness(ctx)
		require.NoError(t, err)
		require.Equal(t, "ok", health.Status)
		require.NotEmpty(t, health.Version)
	})

	t.Run("readiness", func(t *testing.T) {
		health, err := client.GetReadiness(ctx)
		require.NoError(t, err)
		require.Equal(t, "ok", health.Status)
		require.NotNil(t, health.Checks)
		require.Equal(t, "ok", health.Checks.Database)
	})
}

func TestAuthenticatorFlow(t *testing.T) {
	baseURL, cleanup := setupVerifyContainer(t, nil)
	defer cleanup()

	ctx := context.Background()
	client := newUserClient(t, baseURL, "user-authenticator")

	session, err := client.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Empty(t, session.Channel)
	require.Equal(t, "idle", session.DispatchState)
	require.Equal(t, "idle", session.VerifyState)

	selected, err := client.SelectChannel(ctx, session.ID, verifyChannel("authenticator", ""))
	require.NoError(t, err)
	require.Equal(t, "authenticator", selected.Session.Channel)
	require.NotNil(t, selected.Provisioning)
	require.NotEmpty(t, selected.Provisioning.Secret)
	require.Contains(t, selected.Provisioning.OtpauthURL, "otpauth://totp/")
	require.Equal(t, testIssuer, selected.Provisioning.Issuer)

	// Channel choice is final for the session.
	_, err = client.SelectChannel(ctx, session.ID, verifyChannel("sms", "+2250102030405"))
	requireAPIError(t, err, "channel_already_set")

	// The authenticator channel has nothing to send, but dispatch still
	// unlocks code entry.
	dispatched, err := client.RequestCode(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, "sent", dispatched.DispatchState)

	// A wrong code spends an attempt.
	_, err = client.SubmitCode(ctx, session.ID, "000000")
	apiErr := requireAPIError(t, err, "code_rejected")
	require.Equal(t, 422, apiErr.StatusCode)

	snapshot, err := client.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.Attempts)
	require.Equal(t, 4, snapshot.AttemptsRemaining)
	require.Equal(t, "Invalid code. Please try again.", snapshot.StatusMessage)

	code, err := totp.GenerateCode(selected.Provisioning.Secret, time.Now())
	require.NoError(t, err)

	verified, err := client.SubmitCode(ctx, session.ID, code)
	require.NoError(t, err)
	require.True(t, verified.Verified)
	require.Equal(t, "verified", verified.VerifyState)

	// A verified session is consumed.
	_, err = client.SubmitCode(ctx, session.ID, code)
	requireAPIError(t, err, "session_consumed")
}

func TestSMSFlowDemoMode(t *testing.T) {
	baseURL, cleanup := setupVerifyContainer(t, map[string]string{
		"VERIFY_DEMO_MODE": "true",
	})
	defer cleanup()

	ctx := context.Background()
	client := newUserClient(t, baseURL, "user-sms-demo")

	session, err := client.CreateSession(ctx)
	require.NoError(t, err)

	selected, err := client.SelectChannel(ctx, session.ID, verifyChannel("sms", "+225 01 02 03 04 05"))
	require.NoError(t, err)
	require.Equal(t, "sms", selected.Session.Channel)
	require.Equal(t, "+2250102030405", selected.Session.Destination)
	require.Nil(t, selected.Provisioning)

	dispatched, err := client.RequestCode(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, "sent", dispatched.DispatchState)
	require.NotNil(t, dispatched.ResendCooldownUntil)

	// Resend immediately runs into the cooldown.
	_, err = client.ResendCode(ctx, session.ID)
	apiErr := requireAPIError(t, err, "cooldown_active")
	require.Equal(t, 429, apiErr.StatusCode)
	require.GreaterOrEqual(t, apiErr.RetryAfter, 1)

	// A short candidate never reaches the verifier.
	_, err = client.SubmitCode(ctx, session.ID, "123")
	apiErr = requireAPIError(t, err, "incomplete_code")
	require.Equal(t, 422, apiErr.StatusCode)

	snapshot, err := client.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 0, snapshot.Attempts)
	require.Equal(t, "Please enter the 6-digit code.", snapshot.StatusMessage)

	// Demo mode accepts the fixed literal.
	verified, err := client.SubmitCode(ctx, session.ID, "123456")
	require.NoError(t, err)
	require.True(t, verified.Verified)

	// Resend after the cooldown has passed, on a fresh session.
	session2, err := client.CreateSession(ctx)
	require.NoError(t, err)
	_, err = client.SelectChannel(ctx, session2.ID, verifyChannel("sms", "+2250504030201"))
	require.NoError(t, err)
	_, err = client.RequestCode(ctx, session2.ID)
	require.NoError(t, err)

	time.Sleep(2500 * time.Millisecond)
	resent, err := client.ResendCode(ctx, session2.ID)
	require.NoError(t, err)
	require.Equal(t, "sent", resent.DispatchState)
}

func TestAttemptLockout(t *testing.T) {
	baseURL, cleanup := setupVerifyContainer(t, map[string]string{
		"VERIFY_DEMO_MODE": "true",
	})
	defer cleanup()

	ctx := context.Background()
	client := newUserClient(t, baseURL, "user-lockout")

	session, err := client.CreateSession(ctx)
	require.NoError(t, err)
	_, err = client.SelectChannel(ctx, session.ID, verifyChannel("sms", "+2250102030405"))
	require.NoError(t, err)
	_, err = client.RequestCode(ctx, session.ID)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err = client.SubmitCode(ctx, session.ID, "999999")
		requireAPIError(t, err, "code_rejected")

		snapshot, err := client.GetSession(ctx, session.ID)
		require.NoError(t, err)
		require.Equal(t, i, snapshot.Attempts)
	}

	snapshot, err := client.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 0, snapshot.AttemptsRemaining)
	require.Equal(t, "Too many failed attempts. Start a new verification.", snapshot.StatusMessage)

	// Even the correct code no longer helps.
	_, err = client.SubmitCode(ctx, session.ID, "123456")
	apiErr := requireAPIError(t, err, "too_many_attempts")
	require.Equal(t, 429, apiErr.StatusCode)
}

func TestSessionGuards(t *testing.T) {
	baseURL, cleanup := setupVerifyContainer(t, nil)
	defer cleanup()

	ctx := context.Background()
	client := newUserClient(t, baseURL, "user-guards")

	session, err := client.CreateSession(ctx)
	require.NoError(t, err)

	t.Run("requires bearer token", func(t *testing.T) {
		anon := newAnonymousClient(baseURL)
		_, err := anon.CreateSession(ctx)
		apiErr := requireAPIError(t, err, "invalid_token")
		require.Equal(t, 401, apiErr.StatusCode)
	})

	t.Run("requires the verification scope", func(t *testing.T) {
		unscoped := verifysdk.NewClient(baseURL, mintToken(t, "user-guards"))
		_, err := unscoped.CreateSession(ctx)
		apiErr := requireAPIError(t, err, "insufficient_scope")
		require.Equal(t, 403, apiErr.StatusCode)
	})

	t.Run("sessions are owner scoped", func(t *testing.T) {
		other := newUserClient(t, baseURL, "someone-else")
		_, err := other.GetSession(ctx, session.ID)
		requireAPIError(t, err, "not_found")
	})

	t.Run("dispatch needs a channel", func(t *testing.T) {
		_, err := client.RequestCode(ctx, session.ID)
		requireAPIError(t, err, "no_channel_selected")
	})

	t.Run("sms needs a destination", func(t *testing.T) {
		_, err := client.SelectChannel(ctx, session.ID, verifyChannel("sms", ""))
		requireAPIError(t, err, "invalid_destination")
	})

	t.Run("submit needs a dispatched code", func(t *testing.T) {
		_, err := client.SelectChannel(ctx, session.ID, verifyChannel("authenticator", ""))
		require.NoError(t, err)

		_, err = client.SubmitCode(ctx, session.ID, "123456")
		requireAPIError(t, err, "nothing_dispatched")
	})

	t.Run("abandon removes the session", func(t *testing.T) {
		require.NoError(t, client.AbandonSession(ctx, session.ID))

		_, err := client.GetSession(ctx, session.ID)
		requireAPIError(t, err, "not_found")
	})
}
