package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/untoldhq/fintrack/internal/tracker/audit"
	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/idx"
)

var ErrUnknownCategory = errors.New("unknown category")

// TransactionService manages income and expense entries. Mutations use the
// scoped audit block so the event captures the final error state of the
// whole operation, including the category existence check.
type TransactionService struct {
	Store store.Store
	Audit *audit.Recorder
}

func (s *TransactionService) Create(ctx context.Context, t domain.Transaction) (_ domain.Transaction, err error) {
	t.ID = idx.New().String()
	defer s.Audit.Scope(ctx, audit.Entry{
		Action:       "transaction_created",
		ResourceType: "transaction",
		ResourceID:   t.ID,
		Details:      map[string]any{"amount_cents": t.AmountCents, "type": t.Type.String()},
	})(&err)

	if _, err = s.Store.Categories().GetCategoryByID(ctx, t.CategoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrUnknownCategory
		}
		return domain.Transaction{}, err
	}

	if err = s.Store.Transactions().CreateTransaction(ctx, t); err != nil {
		err = fmt.Errorf("failed to create transaction: %w", err)
		return domain.Transaction{}, err
	}
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (domain.Transaction, error) {
	return s.Store.Transactions().GetTransactionByID(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error) {
	return s.Store.Transactions().ListTransactions(ctx, f)
}

func (s *TransactionService) Update(ctx context.Context, t domain.Transaction) (err error) {
	defer s.Audit.Scope(ctx, audit.Entry{
		Action:       "transaction_updated",
		ResourceType: "transaction",
		ResourceID:   t.ID,
	})(&err)

	if _, err = s.Store.Categories().GetCategoryByID(ctx, t.CategoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrUnknownCategory
		}
		return err
	}

	return s.Store.Transactions().UpdateTransaction(ctx, t)
}

func (s *TransactionService) Delete(ctx context.Context, id string) (err error) {
	defer s.Audit.Scope(ctx, audit.Entry{
		Action:       "transaction_deleted",
		ResourceType: "transaction",
		ResourceID:   id,
	})(&err)

	return s.Store.Transactions().DeleteTransaction(ctx, id)
}

// DeleteBatch removes a set of transactions in one transaction and emits a
// single audit event covering the whole batch.
func (s *TransactionService) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	var deleted int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		deleted, err = tx.Transactions().DeleteTransactions(ctx, ids)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}

	s.Audit.EmitBulk(ctx, audit.Entry{
		Action:       "transactions_deleted",
		ResourceType: "transaction",
		Description:  "bulk delete",
		Details:      map[string]any{"deleted": deleted},
	}, ids)

	return deleted, nil
}
