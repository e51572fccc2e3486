package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

const categoryColumns = `id, name, created_at`

// GetCategories returns all categories ordered by name.
func (s *queries) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to query categories")
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, wrapStorageErr(err, "failed to scan category")
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapStorageErr(err, "error iterating categories")
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns a category by its id.
func (s *queries) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.scanCategory(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
}

// GetCategoryByName returns a category by its name, case-insensitively.
func (s *queries) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.scanCategory(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE name = ? COLLATE NOCASE`,
		strings.TrimSpace(name))
}

func (s *queries) scanCategory(ctx context.Context, query string, arg any) (*model.Category, error) {
	var cat model.Category
	err := s.q.QueryRowContext(ctx, query, arg).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", common.ErrCategoryNotFound, arg)
	}
	if err != nil {
		return nil, wrapStorageErr(err, "failed to query category")
	}
	return &cat, nil
}

// CreateCategory creates a category, or returns the existing one with that name.
func (s *queries) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	existing, err := s.GetCategoryByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrCategoryNotFound) {
		return nil, err
	}

	if _, err := s.q.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name); err != nil {
		return nil, wrapStorageErr(err, "failed to create category")
	}

	category, err := s.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}

	slog.Info("created new category", "name", name, "id", category.ID)
	return category, nil
}
