package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
)

func TestBeginEnrollmentGeneratesFreshSecret(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := &TwoFactorService{Store: s, Issuer: "FinTrack"}
	role := seedRole(t, s, domain.RoleUser)
	u := seedUser(t, s, "frank@example.com", "pw123456", role.ID, domain.StatusActive)

	enr, err := svc.BeginEnrollment(context.Background(), u)
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)
	require.True(t, strings.HasPrefix(enr.URL, "otpauth://totp/"))
	require.Contains(t, enr.URL, "FinTrack")
	require.Equal(t, "frank@example.com", enr.Account)

	// Two enrollments never share a secret.
	enr2, err := svc.BeginEnrollment(context.Background(), u)
	require.NoError(t, err)
	require.NotEqual(t, enr.Secret, enr2.Secret)

	// Nothing is persisted until the code is confirmed.
	got, err := s.Users().GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.False(t, got.TwoFactorEnabled)
	require.Nil(t, got.TwoFactorSecret)
}

func TestBeginEnrollmentRejectsEnabledUser(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := &TwoFactorService{Store: s, Issuer: "FinTrack"}
	role := seedRole(t, s, domain.RoleUser)
	u := seedUser(t, s, "gail@example.com", "pw123456", role.ID, domain.StatusActive)
	enableTwoFactor(t, s, u.ID, "JBSWY3DPEHPK3PXP")

	u.TwoFactorEnabled = true
	_, err := svc.BeginEnrollment(context.Background(), u)
	require.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
}

func TestConfirmEnrollment(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := &TwoFactorService{Store: s, Issuer: "FinTrack"}
	role := seedRole(t, s, domain.RoleUser)
	u := seedUser(t, s, "hank@example.com", "pw123456", role.ID, domain.StatusActive)

	enr, err := svc.BeginEnrollment(context.Background(), u)
	require.NoError(t, err)

	t.Run("rejects a wrong code and persists nothing", func(t *testing.T) {
		err := svc.ConfirmEnrollment(context.Background(), u.ID, enr.Secret, "000000")
		require.ErrorIs(t, err, ErrInvalidTOTPCode)

		got, err := s.Users().GetUserByID(context.Background(), u.ID)
		require.NoError(t, err)
		require.False(t, got.TwoFactorEnabled)
	})

	t.Run("enables on a valid code", func(t *testing.T) {
		code, err := totp.GenerateCode(enr.Secret, time.Now())
		require.NoError(t, err)

		require.NoError(t, svc.ConfirmEnrollment(context.Background(), u.ID, enr.Secret, code))

		got, err := s.Users().GetUserByID(context.Background(), u.ID)
		require.NoError(t, err)
		require.True(t, got.TwoFactorEnabled)
		require.NotNil(t, got.TwoFactorSecret)
		require.Equal(t, enr.Secret, *got.TwoFactorSecret)
	})

	t.Run("cannot re-enroll once enabled", func(t *testing.T) {
		err := svc.ConfirmEnrollment(context.Background(), u.ID, enr.Secret, "123456")
		require.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
	})
}

func TestDisableTwoFactor(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	svc := &TwoFactorService{Store: s, Issuer: "FinTrack"}
	role := seedRole(t, s, domain.RoleUser)
	u := seedUser(t, s, "iris@example.com", "pw123456", role.ID, domain.StatusActive)

	require.ErrorIs(t, svc.Disable(context.Background(), u.ID), ErrTwoFactorNotEnabled)

	enableTwoFactor(t, s, u.ID, "JBSWY3DPEHPK3PXP")
	require.NoError(t, svc.Disable(context.Background(), u.ID))

	got, err := s.Users().GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.False(t, got.TwoFactorEnabled)
	require.Nil(t, got.TwoFactorSecret)
}

func TestProvisioningURIMatchesGeneratedKey(t *testing.T) {
	t.Parallel()

	svc := &TwoFactorService{Issuer: "FinTrack"}
	uri := svc.ProvisioningURI("JBSWY3DPEHPK3PXP", "jo@example.com")

	require.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	require.Contains(t, uri, "secret=JBSWY3DPEHPK3PXP")
	require.Contains(t, uri, "issuer=FinTrack")
	require.Contains(t, uri, "digits=6")

	// The rebuilt URI validates codes the same way the enrollment secret does.
	code, err := totp.GenerateCode("JBSWY3DPEHPK3PXP", time.Now())
	require.NoError(t, err)
	require.True(t, totp.Validate(code, "JBSWY3DPEHPK3PXP"))
}
