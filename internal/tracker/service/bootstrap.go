package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/cryptox"
	"github.com/untoldhq/fintrack/pkg/idx"
	"github.com/untoldhq/fintrack/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("system already bootstrapped")

// BootstrapService seeds the role set and the initial admin account on an
// empty database. It runs once at startup; a populated store makes it a
// no-op.
type BootstrapService struct {
	Store store.Store

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// IsBootstrapped reports whether any users exist yet.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Run seeds roles and the admin user in one transaction. Roles are created
// even when no admin credentials are configured, since logins need them.
func (s *BootstrapService) Run(ctx context.Context) error {
	l := slogx.FromContext(ctx)

	if bootstrapped, err := s.IsBootstrapped(ctx); err != nil {
		return err
	} else if bootstrapped {
		return ErrBootstrapAlready
	}

	var passHash string
	if s.AdminEmail != "" {
		var err error
		passHash, err = cryptox.HashPassword(s.AdminPassword)
		if err != nil {
			l.Error("failed to hash admin password", slog.Any("error", err))
			return errors.New("failed to hash admin password")
		}
	}

	adminUserID := idx.New().String()
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		roleIDs := make(map[string]string)
		for _, name := range []string{domain.RoleAdmin, domain.RoleUser} {
			role, err := tx.Roles().GetRoleByName(ctx, name)
			if err == nil {
				roleIDs[name] = role.ID
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			roleID := idx.New().String()
			if err := tx.Roles().CreateRole(ctx, domain.Role{ID: roleID, Name: name}); err != nil {
				l.Error("failed to create role", slog.String("role_name", name), slog.Any("error", err))
				return errors.New("failed to create role")
			}
			roleIDs[name] = roleID
		}

		if s.AdminEmail == "" {
			return nil
		}

		err := tx.Users().CreateUser(ctx, domain.User{
			ID:           adminUserID,
			Username:     s.AdminEmail,
			FullName:     s.AdminName,
			Email:        s.AdminEmail,
			PasswordHash: passHash,
			RoleID:       roleIDs[domain.RoleAdmin],
			Status:       domain.StatusActive,
		})
		if err != nil {
			l.Error("failed to create admin user", slog.String("admin_user_id", adminUserID), slog.Any("error", err))
			return errors.New("failed to create admin user")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.AdminEmail != "" {
		l.Info("seeded initial admin account", slog.String("admin_user_id", adminUserID))
	}
	return nil
}
