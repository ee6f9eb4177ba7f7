package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nzassa/verify/internal/verify/dispatch"
	"github.com/nzassa/verify/internal/verify/domain"
	"github.com/nzassa/verify/internal/verify/store"
	"github.com/nzassa/verify/internal/verify/store/drivers/sqlite"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingDispatcher captures outbound messages, optionally failing.
type recordingDispatcher struct {
	messages []dispatch.Message
	fail     error
}

func (d *recordingDispatcher) Send(_ context.Context, msg dispatch.Message) (dispatch.Result, error) {
	if d.fail != nil {
		return dispatch.Result{}, d.fail
	}
	d.messages = append(d.messages, msg)
	return dispatch.Result{MessageID: "msg-1", Status: "queued"}, nil
}

func newServices(t *testing.T, st store.Store, d dispatch.Dispatcher) (*SessionService, *DispatchService, *VerifyService) {
	t.Helper()

	sessions := &SessionService{
		Store:      st,
		Issuer:     "nzassa-auth",
		SessionTTL: 10 * time.Minute,
	}
	dispatcher := &DispatchService{
		Store:           st,
		Dispatcher:      d,
		Logger:          testLogger(),
		Cooldown:        30 * time.Second,
		CodeTTL:         5 * time.Minute,
		MessageTemplate: "Nzassa code: %s",
	}
	verify := &VerifyService{
		Store:  st,
		Logger: testLogger(),
		Verifiers: map[domain.Channel]Verifier{
			domain.ChannelAuthenticator: TOTPVerifier{},
			domain.ChannelSMS:           &StoredCodeVerifier{Store: st},
		},
	}
	return sessions, dispatcher, verify
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions, _, _ := newServices(t, st, &recordingDispatcher{})

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, domain.ChannelNone, created.Channel)

	t.Run("owner can read the snapshot", func(t *testing.T) {
		got, err := sessions.Get(ctx, created.ID, "user-1")
		require.NoError(t, err)
		require.Equal(t, created.ID, got.ID)
	})

	t.Run("other subjects see not found", func(t *testing.T) {
		_, err := sessions.Get(ctx, created.ID, "user-2")
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("abandon deletes the session", func(t *testing.T) {
		other, err := sessions.Start(ctx, "user-1")
		require.NoError(t, err)

		require.NoError(t, sessions.Abandon(ctx, other.ID, "user-1"))
		_, err = sessions.Get(ctx, other.ID, "user-1")
		require.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSelectChannelProvisionsAuthenticator(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions, _, _ := newServices(t, st, &recordingDispatcher{})

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)

	session, payload, err := sessions.SelectChannel(ctx, created.ID, "user-1", "authenticator", "")
	require.NoError(t, err)
	require.Equal(t, domain.ChannelAuthenticator, session.Channel)
	require.NotNil(t, payload)
	require.NotEmpty(t, payload.Secret)
	require.Contains(t, payload.OtpauthURL, "otpauth://totp/")
	require.Equal(t, "nzassa-auth", payload.Issuer)

	// The secret survives persistence for later verification.
	got, err := sessions.Get(ctx, created.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, payload.Secret, got.TOTPSecret)

	t.Run("channel is immutable", func(t *testing.T) {
		_, _, err := sessions.SelectChannel(ctx, created.ID, "user-1", "sms", "+2250102030405")
		require.ErrorIs(t, err, domain.ErrChannelAlreadySet)
	})
}

func TestSelectChannelSMS(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions, _, _ := newServices(t, st, &recordingDispatcher{})

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)

	t.Run("destination is normalized", func(t *testing.T) {
		session, payload, err := sessions.SelectChannel(ctx, created.ID, "user-1", "sms", "+225 01 02 03 04 05")
		require.NoError(t, err)
		require.Nil(t, payload)
		require.Equal(t, "+2250102030405", session.Destination)
	})

	t.Run("malformed destination is rejected", func(t *testing.T) {
		other, err := sessions.Start(ctx, "user-1")
		require.NoError(t, err)

		_, _, err = sessions.SelectChannel(ctx, other.ID, "user-1", "sms", "not-a-number")
		require.ErrorIs(t, err, domain.ErrInvalidDestination)
	})

	t.Run("unknown channel is rejected", func(t *testing.T) {
		other, err := sessions.Start(ctx, "user-1")
		require.NoError(t, err)

		_, _, err = sessions.SelectChannel(ctx, other.ID, "user-1", "email", "")
		require.ErrorIs(t, err, domain.ErrNoChannelSelected)
	})
}

func TestRequestCodeSMS(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	rec := &recordingDispatcher{}
	sessions, dispatcher, _ := newServices(t, st, rec)

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = sessions.SelectChannel(ctx, created.ID, "user-1", "sms", "+2250102030405")
	require.NoError(t, err)

	session, err := dispatcher.RequestCode(ctx, created.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.DispatchSent, session.DispatchState)
	require.False(t, session.ResendCooldownUntil.IsZero())

	require.Len(t, rec.messages, 1)
	require.Equal(t, "+2250102030405", rec.messages[0].Destination)
	require.Regexp(t, `^Nzassa code: \d{6}$`, rec.messages[0].Body)

	// The stored record is a hash, not the code itself.
	codes, err := st.Codes().GetActiveCodesBySession(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	require.Contains(t, codes[0].CodeHash, "$argon2id$")
	require.NotContains(t, rec.messages[0].Body, codes[0].CodeHash)

	t.Run("immediate resend hits the cooldown", func(t *testing.T) {
		_, err := dispatcher.ResendCode(ctx, created.ID, "user-1")
		require.ErrorIs(t, err, domain.ErrCooldownActive)

		var cd *domain.CooldownError
		require.ErrorAs(t, err, &cd)
		require.Greater(t, cd.Remaining, time.Duration(0))
		require.Len(t, rec.messages, 1)
	})
}

func TestRequestCodeDispatchFailure(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	rec := &recordingDispatcher{fail: dispatch.ErrGatewayUnavailable}
	sessions, dispatcher, _ := newServices(t, st, rec)

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = sessions.SelectChannel(ctx, created.ID, "user-1", "sms", "+2250102030405")
	require.NoError(t, err)

	session, err := dispatcher.RequestCode(ctx, created.ID, "user-1")
	require.ErrorIs(t, err, ErrDispatchFailed)
	require.Equal(t, domain.DispatchError, session.DispatchState)
	require.Equal(t, dispatchFailedMessage, session.StatusMessage)

	t.Run("retry succeeds without cooldown", func(t *testing.T) {
		rec.fail = nil
		session, err := dispatcher.RequestCode(ctx, created.ID, "user-1")
		require.NoError(t, err)
		require.Equal(t, domain.DispatchSent, session.DispatchState)
	})
}

func TestRequestCodeGatewayTimeout(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	sessions, dispatcher, _ := newServices(t, st, dispatch.NewGateway(dispatch.GatewayConfig{
		BaseURL: srv.URL,
		APIKey:  "key-1",
	}))
	dispatcher.SendTimeout = 50 * time.Millisecond

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = sessions.SelectChannel(ctx, created.ID, "user-1", "sms", "+2250102030405")
	require.NoError(t, err)

	session, err := dispatcher.RequestCode(ctx, created.ID, "user-1")
	require.ErrorIs(t, err, ErrTimeout)
	require.NotErrorIs(t, err, ErrDispatchFailed)
	require.Equal(t, domain.DispatchError, session.DispatchState)
	require.Equal(t, dispatchFailedMessage, session.StatusMessage)
}

func TestRequestCodeAuthenticator(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	rec := &recordingDispatcher{}
	sessions, dispatcher, _ := newServices(t, st, rec)

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = sessions.SelectChannel(ctx, created.ID, "user-1", "authenticator", "")
	require.NoError(t, err)

	session, err := dispatcher.RequestCode(ctx, created.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.DispatchSent, session.DispatchState)

	// Nothing leaves the service for the authenticator channel.
	require.Empty(t, rec.messages)
}

func TestSubmitCodeTOTP(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions, dispatcher, verify := newServices(t, st, &recordingDispatcher{})

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	_, payload, err := sessions.SelectChannel(ctx, created.ID, "user-1", "authenticator", "")
	require.NoError(t, err)
	_, err = dispatcher.RequestCode(ctx, created.ID, "user-1")
	require.NoError(t, err)

	t.Run("incomplete code is parked without a verifier call", func(t *testing.T) {
		session, err := verify.SubmitCode(ctx, created.ID, "user-1", "123")
		require.ErrorIs(t, err, domain.ErrIncompleteCode)
		require.Equal(t, domain.VerifyError, session.VerifyState)
		require.Equal(t, 0, session.Attempts)
	})

	t.Run("wrong code spends an attempt", func(t *testing.T) {
		session, err := verify.SubmitCode(ctx, created.ID, "user-1", "000000")
		require.ErrorIs(t, err, ErrCodeRejected)
		require.Equal(t, domain.VerifyError, session.VerifyState)
		require.Equal(t, 1, session.Attempts)
		require.Equal(t, rejectedMessage, session.StatusMessage)
	})

	t.Run("current TOTP code verifies", func(t *testing.T) {
		code, err := totp.GenerateCode(payload.Secret, time.Now())
		require.NoError(t, err)

		session, err := verify.SubmitCode(ctx, created.ID, "user-1", code)
		require.NoError(t, err)
		require.Equal(t, domain.VerifyVerified, session.VerifyState)
		require.Equal(t, "Verification successful", session.StatusMessage)
	})

	t.Run("verified session is locked", func(t *testing.T) {
		_, err := verify.SubmitCode(ctx, created.ID, "user-1", "123456")
		require.ErrorIs(t, err, domain.ErrSessionConsumed)
	})
}

func TestSubmitCodeSMS(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	rec := &recordingDispatcher{}
	sessions, dispatcher, verify := newServices(t, st, rec)
	dispatcher.Cooldown = 0 // resends at will

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = sessions.SelectChannel(ctx, created.ID, "user-1", "sms", "+2250102030405")
	require.NoError(t, err)
	_, err = dispatcher.RequestCode(ctx, created.ID, "user-1")
	require.NoError(t, err)

	codeFromBody := func(body string) string {
		return body[len("Nzassa code: "):]
	}

	t.Run("issued code verifies", func(t *testing.T) {
		code := codeFromBody(rec.messages[0].Body)
		session, err := verify.SubmitCode(ctx, created.ID, "user-1", code)
		require.NoError(t, err)
		require.Equal(t, domain.VerifyVerified, session.VerifyState)
	})
}

func TestResendInvalidatesPriorCode(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	rec := &recordingDispatcher{}
	sessions, dispatcher, verify := newServices(t, st, rec)
	dispatcher.Cooldown = 0

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = sessions.SelectChannel(ctx, created.ID, "user-1", "sms", "+2250102030405")
	require.NoError(t, err)

	_, err = dispatcher.RequestCode(ctx, created.ID, "user-1")
	require.NoError(t, err)
	_, err = dispatcher.ResendCode(ctx, created.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, rec.messages, 2)

	first := rec.messages[0].Body[len("Nzassa code: "):]
	second := rec.messages[1].Body[len("Nzassa code: "):]

	if first != second {
		session, err := verify.SubmitCode(ctx, created.ID, "user-1", first)
		require.ErrorIs(t, err, ErrCodeRejected)
		require.Equal(t, 1, session.Attempts)
	}

	session, err := verify.SubmitCode(ctx, created.ID, "user-1", second)
	require.NoError(t, err)
	require.Equal(t, domain.VerifyVerified, session.VerifyState)
}

func TestSubmitBurnsAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions, dispatcher, verify := newServices(t, st, &recordingDispatcher{})

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = sessions.SelectChannel(ctx, created.ID, "user-1", "authenticator", "")
	require.NoError(t, err)
	_, err = dispatcher.RequestCode(ctx, created.ID, "user-1")
	require.NoError(t, err)

	var last domain.VerificationSession
	for range domain.MaxAttempts {
		last, err = verify.SubmitCode(ctx, created.ID, "user-1", "000000")
		require.ErrorIs(t, err, ErrCodeRejected)
	}
	require.Equal(t, domain.MaxAttempts, last.Attempts)
	require.Equal(t, tooManyMessage, last.StatusMessage)

	_, err = verify.SubmitCode(ctx, created.ID, "user-1", "000000")
	require.ErrorIs(t, err, domain.ErrTooManyAttempts)
}

func TestSubmitBeforeDispatch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions, _, verify := newServices(t, st, &recordingDispatcher{})

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)
	_, _, err = sessions.SelectChannel(ctx, created.ID, "user-1", "authenticator", "")
	require.NoError(t, err)

	_, err = verify.SubmitCode(ctx, created.ID, "user-1", "123456")
	require.ErrorIs(t, err, domain.ErrNothingDispatched)
}

func TestDemoVerifier(t *testing.T) {
	t.Parallel()

	v := &DemoVerifier{}
	ok, err := v.Verify(context.Background(), domain.VerificationSession{}, "123456")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = v.Verify(context.Background(), domain.VerificationSession{}, "654321")
	require.NoError(t, err)
	require.False(t, ok)

	t.Run("latency respects cancellation", func(t *testing.T) {
		slow := &DemoVerifier{MinLatency: time.Second, MaxLatency: 2 * time.Second}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := slow.Verify(ctx, domain.VerificationSession{}, "123456")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHousekeepingCleansExpiredRecords(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions, _, _ := newServices(t, st, &recordingDispatcher{})
	sessions.SessionTTL = -time.Minute // already expired at creation

	created, err := sessions.Start(ctx, "user-1")
	require.NoError(t, err)

	hk := NewHousekeepingService(st, testLogger(), time.Hour)
	hk.Start()
	hk.Stop()

	_, err = st.Sessions().GetSession(ctx, created.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
