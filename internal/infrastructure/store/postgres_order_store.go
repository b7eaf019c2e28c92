package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const orderColumns = `id, order_number, user_id, status, order_type, payment_method, payment_status,
	subtotal, tax_amount, delivery_fee, discount_amount, total_amount,
	customer_name, customer_phone, customer_email,
	delivery_address, delivery_latitude, delivery_longitude, estimated_delivery_time, actual_delivery_time,
	special_instructions, coupon_code, created_at, updated_at, confirmed_at, completed_at, version`

const itemColumns = `id, order_id, position, meal_id, meal_name, meal_price, quantity,
	selected_ingredients, removed_ingredients, removed_ingredient_names, special_instructions, subtotal`

// PostgresOrderStore implements order.Repository on PostgreSQL
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

// InsertOrder writes the order and its items in one transaction
func (s *PostgresOrderStore) InsertOrder(ctx context.Context, o *order.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		         $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.OrderType, o.PaymentMethod, o.PaymentStatus,
		o.Subtotal, o.TaxAmount, o.DeliveryFee, o.DiscountAmount, o.TotalAmount,
		o.CustomerName, o.CustomerPhone, o.CustomerEmail,
		o.DeliveryAddress, o.DeliveryLatitude, o.DeliveryLongitude, o.EstimatedDeliveryTime, o.ActualDeliveryTime,
		o.SpecialInstructions, o.CouponCode, o.CreatedAt, o.UpdatedAt, o.ConfirmedAt, o.CompletedAt, o.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", order.ErrDuplicateOrderNumber, o.OrderNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, it := range o.Items {
		selected, err := json.Marshal(it.SelectedIngredients)
		if err != nil {
			return fmt.Errorf("encode ingredients: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (`+itemColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			it.ID, o.ID, i, it.MealID, it.MealName, it.MealPrice, it.Quantity,
			selected, pq.Array(it.RemovedIngredients), pq.Array(it.RemovedIngredientNames),
			it.SpecialInstructions, it.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateOrder writes the mutable fields of o if the row is still at the
// version o was read at. Items and money are fixed at creation and are not
// rewritten; transition timestamps are never overwritten once set.
func (s *PostgresOrderStore) UpdateOrder(ctx context.Context, o *order.Order) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET
			status = $2,
			payment_status = $3,
			estimated_delivery_time = $4,
			actual_delivery_time = COALESCE(actual_delivery_time, $5),
			updated_at = $6,
			confirmed_at = COALESCE(confirmed_at, $7),
			completed_at = COALESCE(completed_at, $8),
			version = $9
		 WHERE id = $1 AND version = $10`,
		o.ID, o.Status, o.PaymentStatus, o.EstimatedDeliveryTime, o.ActualDeliveryTime,
		o.UpdatedAt, o.ConfirmedAt, o.CompletedAt, o.Version, o.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return order.ErrOrderNotFound
	}
	return fmt.Errorf("%w: %s", order.ErrConcurrentUpdate, o.ID)
}

func (s *PostgresOrderStore) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresOrderStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadItems(ctx, []*order.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns orders newest first
func (s *PostgresOrderStore) ListOrders(ctx context.Context, filter order.ListFilter) ([]*order.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Skip > 0 {
		args = append(args, filter.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Stats counts all orders and sums revenue of delivered ones, overall and
// since the given instant.
func (s *PostgresOrderStore) Stats(ctx context.Context, since time.Time) (*order.Stats, error) {
	var st order.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*),
			COALESCE(SUM(total_amount) FILTER (WHERE status = $2), 0),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COALESCE(SUM(total_amount) FILTER (WHERE status = $2 AND created_at >= $1), 0)
		 FROM orders`,
		since, order.StatusDelivered,
	).Scan(&st.TotalOrders, &st.TotalRevenue, &st.TodayOrders, &st.TodayRevenue)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresOrderStore) loadItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*order.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		o.Items = make([]order.OrderItem, 0)
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it       order.OrderItem
			orderID  string
			position int
			selected []byte
		)
		if err := rows.Scan(
			&it.ID, &orderID, &position, &it.MealID, &it.MealName, &it.MealPrice, &it.Quantity,
			&selected, pq.Array(&it.RemovedIngredients), pq.Array(&it.RemovedIngredientNames),
			&it.SpecialInstructions, &it.Subtotal,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if err := json.Unmarshal(selected, &it.SelectedIngredients); err != nil {
			return fmt.Errorf("decode ingredients: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o                   order.Order
		lat, lng            sql.NullFloat64
		eta, actual         sql.NullTime
		confirmed, complete sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.OrderType, &o.PaymentMethod, &o.PaymentStatus,
		&o.Subtotal, &o.TaxAmount, &o.DeliveryFee, &o.DiscountAmount, &o.TotalAmount,
		&o.CustomerName, &o.CustomerPhone, &o.CustomerEmail,
		&o.DeliveryAddress, &lat, &lng, &eta, &actual,
		&o.SpecialInstructions, &o.CouponCode, &o.CreatedAt, &o.UpdatedAt, &confirmed, &complete, &o.Version,
	)
	if err != nil {
		return nil, err
	}

	o.DeliveryLatitude = nullFloat(lat)
	o.DeliveryLongitude = nullFloat(lng)
	o.EstimatedDeliveryTime = nullTime(eta)
	o.ActualDeliveryTime = nullTime(actual)
	o.ConfirmedAt = nullTime(confirmed)
	o.CompletedAt = nullTime(complete)
	return &o, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
