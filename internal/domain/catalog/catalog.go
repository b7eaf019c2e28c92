package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// DefaultLanguage is the language used for order snapshots.
const DefaultLanguage = "en"

var ErrNotFound = errors.New("catalog entry not found")

// LocalizedName holds a display name per language code ("en", "ar", "he").
type LocalizedName map[string]string

// String returns the English name, or empty when none is set.
func (n LocalizedName) String() string {
	return n[DefaultLanguage]
}

type Meal struct {
	ID                   string          `json:"id"`
	Name                 LocalizedName   `json:"name"`
	Price                decimal.Decimal `json:"price"`
	CategoryID           string          `json:"category_id,omitempty"`
	DefaultIngredientIDs []string        `json:"default_ingredient_ids,omitempty"`
	IsActive             bool            `json:"is_active"`
}

type Ingredient struct {
	ID       string          `json:"id"`
	Name     LocalizedName   `json:"name"`
	Price    decimal.Decimal `json:"price"`
	IsActive bool            `json:"is_active"`
}

// Reader is the read-only view of the menu used during order assembly.
// Both lookups return ErrNotFound when the id does not resolve.
type Reader interface {
	GetMeal(ctx context.Context, id string) (*Meal, error)
	GetIngredient(ctx context.Context, id string) (*Ingredient, error)
}

// MealCounter backs the dashboard's menu size.
type MealCounter interface {
	CountActiveMeals(ctx context.Context) (int, error)
}
