package storage

import (
	"context"
	"fmt"
	"log/slog"

	"famspese/internal/core"
)

// ListCategories returns active categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, icon, color, monthly_budget, is_active FROM categories
		 WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, icon, color, monthly_budget, is_active FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, mapError(err))
	}
	return c, nil
}

func (r *SQLiteRepository) GetSubcategory(ctx context.Context, id int64) (core.Subcategory, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, category_id, name, is_active FROM subcategories WHERE id = ?`, id)
	s, err := scanSubcategory(row)
	if err != nil {
		return core.Subcategory{}, fmt.Errorf("get subcategory %d: %w", id, mapError(err))
	}
	return s, nil
}

// SubcategoriesByCategory returns the active subcategories of a category
// ordered by name.
func (r *SQLiteRepository) SubcategoriesByCategory(ctx context.Context, categoryID int64) ([]core.Subcategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, name, is_active FROM subcategories
		 WHERE category_id = ? AND is_active = 1 ORDER BY name`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list subcategories of %d: %w", categoryID, err)
	}
	defer rows.Close()

	var out []core.Subcategory
	for rows.Next() {
		s, err := scanSubcategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SeedCategories inserts missing categories and subcategories and returns
// how many rows were added. Existing rows are left untouched.
func (r *SQLiteRepository) SeedCategories(ctx context.Context, seed []CategorySeed) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, c := range seed {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (name, kind, icon, color) VALUES (?, ?, ?, ?)`,
			c.Name, string(c.Kind), c.Icon, c.Color)
		if err != nil {
			return 0, fmt.Errorf("seed category %s: %w", c.Name, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)

		var categoryID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, c.Name).Scan(&categoryID); err != nil {
			return 0, fmt.Errorf("lookup category %s: %w", c.Name, err)
		}

		for _, name := range c.Subcategories {
			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO subcategories (category_id, name) VALUES (?, ?)`, categoryID, name)
			if err != nil {
				return 0, fmt.Errorf("seed subcategory %s/%s: %w", c.Name, name, err)
			}
			n, _ := res.RowsAffected()
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	slog.InfoContext(ctx, "Categories seeded", "rows_added", added)
	return added, nil
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		c      core.Category
		kind   string
		active int
	)
	if err := s.Scan(&c.ID, &c.Name, &kind, &c.Icon, &c.Color, &c.MonthlyBudget, &active); err != nil {
		return core.Category{}, err
	}
	c.Kind = core.CategoryKind(kind)
	c.IsActive = active == 1
	return c, nil
}

func scanSubcategory(s scanner) (core.Subcategory, error) {
	var (
		sc     core.Subcategory
		active int
	)
	if err := s.Scan(&sc.ID, &sc.CategoryID, &sc.Name, &active); err != nil {
		return core.Subcategory{}, err
	}
	sc.IsActive = active == 1
	return sc, nil
}
