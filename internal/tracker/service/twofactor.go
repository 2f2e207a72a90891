package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/store"
)

var (
	ErrInvalidTOTPCode         = errors.New("invalid TOTP code")
	ErrTwoFactorNotEnabled     = errors.New("2FA not enabled for this user")
	ErrTwoFactorAlreadyEnabled = errors.New("2FA already enabled for this user")
)

// TwoFactorService handles TOTP enrollment and verification. Pending
// enrollment secrets are NOT persisted here; the caller keeps them in the
// session until ConfirmEnrollment proves the authenticator works.
type TwoFactorService struct {
	Store  store.Store
	Issuer string // Issuer name for TOTP (e.g., "FinTrack")
}

// Enrollment is the provisioning material handed back to the client so it
// can configure an authenticator app.
type Enrollment struct {
	Secret  string
	URL     string // otpauth:// provisioning URI
	Issuer  string
	Account string
}

// BeginEnrollment generates a fresh TOTP secret for the user. Nothing is
// written to the store: the secret only becomes durable once the user
// proves possession via ConfirmEnrollment.
func (s *TwoFactorService) BeginEnrollment(ctx context.Context, user domain.User) (Enrollment, error) {
	if user.TwoFactorEnabled {
		return Enrollment{}, ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return Enrollment{
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: user.Email,
	}, nil
}

// ProvisioningURI rebuilds the otpauth URL for a pending secret, matching
// the parameters used by BeginEnrollment. Used to render the QR image
// without re-generating the secret.
func (s *TwoFactorService) ProvisioningURI(secret, account string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", s.Issuer)
	v.Set("period", "30")
	v.Set("algorithm", "SHA1")
	v.Set("digits", "6")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + s.Issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// ConfirmEnrollment validates the first code against the pending secret and,
// on success, enables 2FA by persisting the secret and the flag together.
func (s *TwoFactorService) ConfirmEnrollment(ctx context.Context, userID, pendingSecret, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.TwoFactorEnabled {
		return ErrTwoFactorAlreadyEnabled
	}

	if !totp.Validate(code, pendingSecret) {
		return ErrInvalidTOTPCode
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().EnableTwoFactor(ctx, userID, pendingSecret)
	})
}

// Challenge verifies a login-time code against the user's enabled secret.
func (s *TwoFactorService) Challenge(ctx context.Context, user domain.User, code string) error {
	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return ErrTwoFactorNotEnabled
	}
	if !totp.Validate(code, *user.TwoFactorSecret) {
		return ErrInvalidTOTPCode
	}
	return nil
}

// Disable turns 2FA off, clearing the flag and the secret together.
func (s *TwoFactorService) Disable(ctx context.Context, userID string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().DisableTwoFactor(ctx, userID)
	})
}
