package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/untoldhq/fintrack/internal/tracker/audit"
	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/metrics"
)

func newLoginService(t *testing.T) (*LoginService, *captureSink) {
	t.Helper()

	s := newTestStore(t)
	sink := &captureSink{}
	rec := newTestRecorder(sink)
	return &LoginService{
		Store:       s,
		Credentials: &CredentialService{Store: s},
		TwoFactor:   &TwoFactorService{Store: s, Issuer: "FinTrack"},
		Audit:       rec,
		Metrics:     metrics.Nop{},
	}, sink
}

func TestLoginSuccessWithoutSecondFactor(t *testing.T) {
	t.Parallel()

	svc, sink := newLoginService(t)
	ctx := context.Background()
	role := seedRole(t, svc.Store, domain.RoleUser)
	seedUser(t, svc.Store, "alice@example.com", "hunter2!", role.ID, domain.StatusActive)

	res, err := svc.Login(ctx, "alice@example.com", "hunter2!")
	require.NoError(t, err)
	require.False(t, res.SecondFactorRequired)
	require.Equal(t, domain.RoleUser, res.Role.Name)
	require.NotNil(t, res.User.LastLoginAt)

	events := sink.byAction(audit.ActionLoginSuccess)
	require.Len(t, events, 1)
	require.Equal(t, res.User.ID, events[0].ResourceID)
	require.Equal(t, "password", events[0].Details["method"])
}

func TestLoginFailuresCollapseToOneError(t *testing.T) {
	t.Parallel()

	svc, sink := newLoginService(t)
	ctx := context.Background()
	role := seedRole(t, svc.Store, domain.RoleUser)
	seedUser(t, svc.Store, "bob@example.com", "correct-horse", role.ID, domain.StatusActive)
	suspended := seedUser(t, svc.Store, "carol@example.com", "pw", role.ID, domain.StatusSuspended)

	// Unknown email, wrong password, and a suspended account all yield the
	// same client-facing error.
	_, err := svc.Login(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "bob@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "carol@example.com", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Email matching is case-sensitive, so a case variant is unknown.
	_, err = svc.Login(ctx, "Bob@example.com", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// The audit trail keeps the distinction the client never sees.
	failures := sink.byAction(audit.ActionLoginFailed)
	require.Len(t, failures, 4)
	require.Equal(t, "unknown_email", failures[0].Details["reason"])
	require.Equal(t, "bad_password", failures[1].Details["reason"])
	require.Equal(t, "account_suspended", failures[2].Details["reason"])
	require.Equal(t, suspended.ID, failures[2].ResourceID)
	require.Equal(t, "unknown_email", failures[3].Details["reason"])
}

func TestLoginWithSecondFactorIsPending(t *testing.T) {
	t.Parallel()

	svc, sink := newLoginService(t)
	ctx := context.Background()
	role := seedRole(t, svc.Store, domain.RoleUser)
	u := seedUser(t, svc.Store, "dana@example.com", "pw123456", role.ID, domain.StatusActive)
	enableTwoFactor(t, svc.Store, u.ID, "JBSWY3DPEHPK3PXP")

	res, err := svc.Login(ctx, "dana@example.com", "pw123456")
	require.NoError(t, err)
	require.True(t, res.SecondFactorRequired)

	// Not authenticated yet: no success event, no last-login stamp.
	require.Empty(t, sink.byAction(audit.ActionLoginSuccess))
	got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.LastLoginAt)
}

func TestCompleteSecondFactor(t *testing.T) {
	t.Parallel()

	svc, sink := newLoginService(t)
	ctx := context.Background()
	role := seedRole(t, svc.Store, domain.RoleAdmin)
	const secret = "JBSWY3DPEHPK3PXP"
	u := seedUser(t, svc.Store, "erin@example.com", "pw123456", role.ID, domain.StatusActive)
	enableTwoFactor(t, svc.Store, u.ID, secret)

	t.Run("rejects a bad code", func(t *testing.T) {
		_, err := svc.CompleteSecondFactor(ctx, u.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
		require.Len(t, sink.byAction(audit.ActionTwoFactorFailed), 1)
	})

	t.Run("rejects a code from outside the skew window", func(t *testing.T) {
		stale, err := totp.GenerateCode(secret, time.Now().Add(-3*time.Minute))
		require.NoError(t, err)
		_, err = svc.CompleteSecondFactor(ctx, u.ID, stale)
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	})

	t.Run("accepts the current code", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		res, err := svc.CompleteSecondFactor(ctx, u.ID, code)
		require.NoError(t, err)
		require.False(t, res.SecondFactorRequired)
		require.Equal(t, domain.RoleAdmin, res.Role.Name)
		require.True(t, res.Role.IsAdmin())
		require.NotNil(t, res.User.LastLoginAt)

		events := sink.byAction(audit.ActionLoginSuccess)
		require.Len(t, events, 1)
		require.Equal(t, "password+totp", events[0].Details["method"])
		require.Len(t, sink.byAction(audit.ActionTwoFactorVerified), 1)
	})

	t.Run("accepts a code one step behind", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now().Add(-30*time.Second))
		require.NoError(t, err)
		_, err = svc.CompleteSecondFactor(ctx, u.ID, code)
		require.NoError(t, err)
	})
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	svc, sink := newLoginService(t)
	ctx := context.Background()
	role := seedRole(t, svc.Store, domain.RoleUser)
	u := seedUser(t, svc.Store, "gwen@example.com", "old-password", role.ID, domain.StatusActive)

	// A wrong current password leaves the hash alone and audits the failure.
	err := svc.ChangePassword(ctx, u.ID, "not-it", "new-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, sink.byAction(audit.ActionPasswordChanged+"_failed"), 1)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "old-password", "new-password"))
	changed := sink.byAction(audit.ActionPasswordChanged)
	require.Len(t, changed, 1)
	require.Equal(t, u.ID, changed[0].ResourceID)

	// Only the new password logs in now.
	_, err = svc.Login(ctx, "gwen@example.com", "old-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	res, err := svc.Login(ctx, "gwen@example.com", "new-password")
	require.NoError(t, err)
	require.False(t, res.SecondFactorRequired)
}

func TestLogoutEmitsAuditEvent(t *testing.T) {
	t.Parallel()

	svc, sink := newLoginService(t)
	svc.Logout(context.Background(), "user-1")

	events := sink.byAction(audit.ActionLogout)
	require.Len(t, events, 1)
	require.Equal(t, "user-1", events[0].ResourceID)
}
