package sqlite

import (
	"context"
	"time"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
)

type categoriesRepo struct {
	q querier
}

func (r *categoriesRepo) CreateCategory(ctx context.Context, c domain.Category) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO categories (id, name, color, icon, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Color, c.Icon, c.CreatedBy, now, now,
	)
	return mapConstraint(err)
}

func (r *categoriesRepo) GetCategoryByID(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, color, icon, created_by, created_at, updated_at
		FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Category{}, mapNotFound(err)
	}
	return c, nil
}

func (r *categoriesRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, color, icon, created_by, created_at, updated_at
		FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *categoriesRepo) UpdateCategory(ctx context.Context, c domain.Category) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE categories SET name = ?, color = ?, icon = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Color, c.Icon, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *categoriesRepo) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
