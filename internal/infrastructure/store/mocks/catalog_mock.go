package mocks

import (
	"context"
	"sync"

	"github.com/example/restaurant-orders/internal/domain/catalog"
)

// MockCatalog is an in-memory catalog.Reader for testing
type MockCatalog struct {
	mu          sync.RWMutex
	meals       map[string]*catalog.Meal
	ingredients map[string]*catalog.Ingredient

	// For tracking calls in tests
	GetMealCalls       []string
	GetIngredientCalls []string

	GetMealErr       error
	GetIngredientErr error
	CountMealsErr    error
}

// NewMockCatalog creates a new MockCatalog
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		meals:              make(map[string]*catalog.Meal),
		ingredients:        make(map[string]*catalog.Ingredient),
		GetMealCalls:       make([]string, 0),
		GetIngredientCalls: make([]string, 0),
	}
}

// GetMeal returns a copy of the meal or catalog.ErrNotFound
func (m *MockCatalog) GetMeal(ctx context.Context, id string) (*catalog.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetMealCalls = append(m.GetMealCalls, id)

	if m.GetMealErr != nil {
		return nil, m.GetMealErr
	}
	meal, ok := m.meals[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	c := *meal
	return &c, nil
}

// GetIngredient returns a copy of the ingredient or catalog.ErrNotFound
func (m *MockCatalog) GetIngredient(ctx context.Context, id string) (*catalog.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetIngredientCalls = append(m.GetIngredientCalls, id)

	if m.GetIngredientErr != nil {
		return nil, m.GetIngredientErr
	}
	ing, ok := m.ingredients[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	c := *ing
	return &c, nil
}

// AddMeal sets a meal directly for testing
func (m *MockCatalog) AddMeal(meal *catalog.Meal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *meal
	m.meals[meal.ID] = &c
}

// AddIngredient sets an ingredient directly for testing
func (m *MockCatalog) AddIngredient(ing *catalog.Ingredient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *ing
	m.ingredients[ing.ID] = &c
}

// CountActiveMeals counts meals marked active
func (m *MockCatalog) CountActiveMeals(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CountMealsErr != nil {
		return 0, m.CountMealsErr
	}
	n := 0
	for _, meal := range m.meals {
		if meal.IsActive {
			n++
		}
	}
	return n, nil
}

// Reset clears all entries and recorded calls
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meals = make(map[string]*catalog.Meal)
	m.ingredients = make(map[string]*catalog.Ingredient)
	m.GetMealCalls = make([]string, 0)
	m.GetIngredientCalls = make([]string, 0)
	m.GetMealErr = nil
	m.GetIngredientErr = nil
}
