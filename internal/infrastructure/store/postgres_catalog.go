package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/restaurant-orders/internal/domain/catalog"
	"github.com/lib/pq"
)

// PostgresCatalog implements catalog.Reader on the meals and ingredients tables
type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) GetMeal(ctx context.Context, id string) (*catalog.Meal, error) {
	var (
		m    catalog.Meal
		name []byte
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, price, category_id, default_ingredient_ids, is_active
		 FROM meals WHERE id = $1`,
		id,
	).Scan(&m.ID, &name, &m.Price, &m.CategoryID, pq.Array(&m.DefaultIngredientIDs), &m.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meal %s: %w", id, err)
	}
	if err := json.Unmarshal(name, &m.Name); err != nil {
		return nil, fmt.Errorf("decode meal name: %w", err)
	}
	return &m, nil
}

func (c *PostgresCatalog) GetIngredient(ctx context.Context, id string) (*catalog.Ingredient, error) {
	var (
		ing  catalog.Ingredient
		name []byte
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, price, is_active FROM ingredients WHERE id = $1`,
		id,
	).Scan(&ing.ID, &name, &ing.Price, &ing.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ingredient %s: %w", id, err)
	}
	if err := json.Unmarshal(name, &ing.Name); err != nil {
		return nil, fmt.Errorf("decode ingredient name: %w", err)
	}
	return &ing, nil
}

func (c *PostgresCatalog) CountActiveMeals(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meals WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count meals: %w", err)
	}
	return n, nil
}
