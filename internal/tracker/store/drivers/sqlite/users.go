package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, username, full_name, email, password_hash, role_id, status,
	two_factor_enabled, two_factor_secret, last_login_at, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u         domain.User
		status    string
		secret    sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash, &u.RoleID,
		&status, &u.TwoFactorEnabled, &secret, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Status, err = domain.ParseStatus(status)
	if err != nil {
		return domain.User{}, err
	}
	u.TwoFactorSecret = mapNullStringPtr(secret)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	// BINARY collation keeps the lookup case-sensitive on purpose.
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (
			id, username, full_name, email, password_hash, role_id, status,
			two_factor_enabled, two_factor_secret, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.FullName, u.Email, u.PasswordHash, u.RoleID,
		u.Status.String(), u.TwoFactorEnabled, mapOptionalString(u.TwoFactorSecret),
		now, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) EnableTwoFactor(ctx context.Context, userID, secret string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET two_factor_enabled = 1, two_factor_secret = ?, updated_at = ?
		WHERE id = ?`,
		secret, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) DisableTwoFactor(ctx context.Context, userID string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET two_factor_enabled = 0, two_factor_secret = NULL, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

// requireRow maps a zero-row UPDATE/DELETE to ErrNotFound so callers can
// distinguish a missing record from a silent no-op.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
