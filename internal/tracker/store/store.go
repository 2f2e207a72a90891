package store

import (
	"context"
	"errors"
	"time"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement it. Sub-repositories keep concerns tidy and make it obvious when
// a call runs inside a transaction versus on the root handle.
type Store interface {
	Users() Users
	Roles() Roles
	AuditEvents() AuditEvents
	Categories() Categories
	Transactions() Transactions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Prefer this over Tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the login lookup. The match is a case-sensitive
	// exact comparison.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetLastLogin records a successful authentication timestamp.
	// Concurrent logins race last-write-wins here, which is accepted.
	SetLastLogin(ctx context.Context, userID string, at time.Time) error

	// EnableTwoFactor persists the confirmed secret and flips the enabled
	// flag in a single statement so the two fields stay consistent.
	EnableTwoFactor(ctx context.Context, userID, secret string) error

	// DisableTwoFactor clears both the flag and the secret.
	DisableTwoFactor(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Roles interface {
	// GetRoleByID fetches a role by its ID.
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)

	// GetRoleByName fetches a role by its name (for bootstrap and routing).
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// ListRoles returns all roles.
	ListRoles(ctx context.Context) ([]domain.Role, error)

	// CreateRole inserts a new role (id is ULID).
	CreateRole(ctx context.Context, r domain.Role) error

	// IsEmpty returns true if there are no roles.
	IsEmpty(ctx context.Context) (bool, error)
}

// AuditEvents is the durable audit sink. Append-only: there is no update or
// delete, and identical events always produce distinct rows.
type AuditEvents interface {
	// Append inserts one audit event.
	Append(ctx context.Context, e domain.AuditEvent) error

	// List returns events matching the filter, newest first.
	List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, error)
}

type Categories interface {
	CreateCategory(ctx context.Context, c domain.Category) error
	GetCategoryByID(ctx context.Context, id string) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, c domain.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

type Transactions interface {
	CreateTransaction(ctx context.Context, t domain.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (domain.Transaction, error)
	ListTransactions(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t domain.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// DeleteTransactions removes a batch by ID, returning how many rows
	// actually existed.
	DeleteTransactions(ctx context.Context, ids []string) (int64, error)
}
