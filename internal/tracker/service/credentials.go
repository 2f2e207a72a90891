package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/cryptox"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrPasswordRejected = errors.New("password verification failed")
)

// CredentialService checks an email/password pair against the store. It does
// not decide login policy (status checks, second factors); that lives in
// LoginService.
type CredentialService struct {
	Store store.Store
}

// Verify looks up the user by exact email match and checks the password
// against the stored argon2id hash. The two failure modes come back as
// distinct sentinels so LoginService can audit the real reason while
// collapsing both for the client.
func (s *CredentialService) Verify(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, ErrPasswordRejected
		}
		return domain.User{}, fmt.Errorf("failed to verify password: %w", err)
	}

	return user, nil
}
