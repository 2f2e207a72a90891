package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
)

type transactionsRepo struct {
	q querier
}

func (r *transactionsRepo) CreateTransaction(ctx context.Context, t domain.Transaction) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (id, category_id, amount_cents, description, type, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CategoryID, t.AmountCents, t.Description, t.Type.String(), t.CreatedBy, now, now,
	)
	return mapConstraint(err)
}

func (r *transactionsRepo) GetTransactionByID(ctx context.Context, id string) (domain.Transaction, error) {
	var (
		t     domain.Transaction
		tType string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, category_id, amount_cents, description, type, created_by, created_at, updated_at
		FROM transactions WHERE id = ?`, id,
	).Scan(&t.ID, &t.CategoryID, &t.AmountCents, &t.Description, &tType, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Transaction{}, mapNotFound(err)
	}

	t.Type, err = domain.ParseTransactionType(tType)
	if err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

func (r *transactionsRepo) ListTransactions(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	if f.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type.String())
	}
	if !f.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.To.UTC())
	}

	query := `SELECT id, category_id, amount_cents, description, type, created_by, created_at, updated_at
		FROM transactions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var (
			t     domain.Transaction
			tType string
		)
		if err := rows.Scan(&t.ID, &t.CategoryID, &t.AmountCents, &t.Description, &tType, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Type, err = domain.ParseTransactionType(tType)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *transactionsRepo) UpdateTransaction(ctx context.Context, t domain.Transaction) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions SET category_id = ?, amount_cents = ?, description = ?, type = ?, updated_at = ?
		WHERE id = ?`,
		t.CategoryID, t.AmountCents, t.Description, t.Type.String(), time.Now().UTC(), t.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *transactionsRepo) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *transactionsRepo) DeleteTransactions(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := r.q.ExecContext(ctx,
		`DELETE FROM transactions WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
