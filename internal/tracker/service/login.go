package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/untoldhq/fintrack/internal/tracker/audit"
	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/metrics"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/cryptox"
)

// ErrInvalidCredentials is the single error returned to clients for every
// primary-factor failure: unknown email, wrong password, or an account that
// is not active. Collapsing them prevents account enumeration; the audit
// trail keeps the distinction.
var ErrInvalidCredentials = errors.New("invalid credentials")

type LoginService struct {
	Store       store.Store
	Credentials *CredentialService
	TwoFactor   *TwoFactorService
	Audit       *audit.Recorder
	Metrics     metrics.Collector
}

// LoginResult reports the outcome of a successful primary-factor check.
// When SecondFactorRequired is set the login is NOT complete: the caller
// must hold the user in a pending state and call CompleteSecondFactor.
type LoginResult struct {
	User                 domain.User
	Role                 domain.Role
	SecondFactorRequired bool
}

// Login runs the primary factor: email lookup, password check, account
// status gate. Users with 2FA enabled come back pending; everyone else is
// fully authenticated with their last-login stamped.
func (s *LoginService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Credentials.Verify(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			s.recordLoginFailure(ctx, "", email, "unknown_email")
		case errors.Is(err, ErrPasswordRejected):
			s.recordLoginFailure(ctx, "", email, "bad_password")
		default:
			return LoginResult{}, err
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	if !user.Status.CanLogin() {
		s.recordLoginFailure(ctx, user.ID, email, "account_"+user.Status.String())
		return LoginResult{}, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		s.Metrics.RecordLogin("challenge")
		return LoginResult{User: user, SecondFactorRequired: true}, nil
	}

	return s.finalize(ctx, user, "password")
}

// CompleteSecondFactor finishes a pending login by checking the TOTP code.
func (s *LoginService) CompleteSecondFactor(ctx context.Context, userID, code string) (LoginResult, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to look up pending user: %w", err)
	}

	if err := s.TwoFactor.Challenge(ctx, user, code); err != nil {
		s.Metrics.RecordSecondFactor("failed")
		s.Audit.Emit(ctx, audit.Entry{
			Action:       audit.ActionTwoFactorFailed,
			ResourceType: "user",
			ResourceID:   user.ID,
			Description:  "second factor rejected",
		})
		return LoginResult{}, err
	}

	s.Metrics.RecordSecondFactor("success")
	s.Audit.Emit(ctx, audit.Entry{
		Action:       audit.ActionTwoFactorVerified,
		ResourceType: "user",
		ResourceID:   user.ID,
		Description:  "second factor accepted",
	})
	return s.finalize(ctx, user, "password+totp")
}

// Logout records the audit trail for a session teardown. Clearing the
// session itself is the transport layer's job.
func (s *LoginService) Logout(ctx context.Context, userID string) {
	s.Audit.Emit(ctx, audit.Entry{
		Action:       audit.ActionLogout,
		ResourceType: "user",
		ResourceID:   userID,
		Description:  "signed out",
	})
}

// ChangePassword replaces the stored hash after re-verifying the current
// password. Both outcomes are audited; a rejected current password comes
// back as ErrInvalidCredentials.
func (s *LoginService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	op := s.Audit.Wrap(audit.Entry{
		Action:       audit.ActionPasswordChanged,
		ResourceType: "user",
		ResourceID:   user.ID,
		Description:  "password changed",
	}, func(ctx context.Context) error {
		if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
			if errors.Is(err, cryptox.ErrPasswordMismatch) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("failed to verify current password: %w", err)
		}

		hash, err := cryptox.HashPassword(next)
		if err != nil {
			return fmt.Errorf("failed to hash new password: %w", err)
		}
		return s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash)
	})
	return op(ctx)
}

func (s *LoginService) finalize(ctx context.Context, user domain.User, method string) (LoginResult, error) {
	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to load role: %w", err)
	}

	now := time.Now().UTC()
	if err := s.Store.Users().SetLastLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, fmt.Errorf("failed to record last login: %w", err)
	}
	user.LastLoginAt = &now

	s.Metrics.RecordLogin("success")
	s.Audit.Emit(ctx, audit.Entry{
		Action:       audit.ActionLoginSuccess,
		ResourceType: "user",
		ResourceID:   user.ID,
		Description:  "signed in",
		Details:      map[string]any{"method": method, "role": role.Name},
	})

	return LoginResult{User: user, Role: role}, nil
}

func (s *LoginService) recordLoginFailure(ctx context.Context, resourceID, email, reason string) {
	s.Metrics.RecordLogin("failed")
	s.Audit.Emit(ctx, audit.Entry{
		Action:       audit.ActionLoginFailed,
		ResourceType: "user",
		ResourceID:   resourceID,
		Description:  "login attempt rejected",
		Details:      map[string]any{"email": email, "reason": reason},
	})
}
