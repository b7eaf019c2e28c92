package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/example/restaurant-orders/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items keyed by "id" and understands the two condition
// expressions the store uses.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	TransactCalls int
	ScanErr       error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(item map[string]types.AttributeValue) string {
	if v, ok := item["id"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) conditionHolds(cond *string, values map[string]types.AttributeValue, key string) bool {
	stored, exists := f.items[key]
	switch aws.ToString(cond) {
	case "attribute_not_exists(id)":
		return !exists
	case "attribute_exists(id)":
		return exists
	case "attribute_exists(id) AND #version = :prev":
		if !exists {
			return false
		}
		have, _ := stored["version"].(*types.AttributeValueMemberN)
		want, _ := values[":prev"].(*types.AttributeValueMemberN)
		return have != nil && want != nil && have.Value == want.Value
	}
	return true
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keyOf(in.Item)
	if !f.conditionHolds(in.ConditionExpression, in.ExpressionAttributeValues, key) {
		ccf := &types.ConditionalCheckFailedException{Message: aws.String("conditional check failed")}
		if in.ReturnValuesOnConditionCheckFailure == types.ReturnValuesOnConditionCheckFailureAllOld {
			ccf.Item = f.items[key]
		}
		return nil, ccf
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TransactCalls++

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		if !f.conditionHolds(ti.Put.ConditionExpression, ti.Put.ExpressionAttributeValues, keyOf(ti.Put.Item)) {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, ti := range in.TransactItems {
		f.items[keyOf(ti.Put.Item)] = ti.Put.Item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ScanErr != nil {
		return nil, f.ScanErr
	}

	var want string
	if v, ok := in.ExpressionAttributeValues[":kind"].(*types.AttributeValueMemberS); ok {
		want = v.Value
	}

	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		if want != "" {
			kind, _ := item["kind"].(*types.AttributeValueMemberS)
			if kind == nil || kind.Value != want {
				continue
			}
		}
		out.Count++
		if in.Select != types.SelectCount {
			out.Items = append(out.Items, item)
		}
	}
	out.ScannedCount = int32(len(f.items))
	return out, nil
}

func newTestDynamoStore() (*store.DynamoOrderStore, *fakeDynamo) {
	client := newFakeDynamo()
	return store.NewDynamoOrderStore(client, "orders"), client
}

// ============================================
// DynamoOrderStore Tests
// ============================================

func TestDynamoOrderStore_InsertAndGet(t *testing.T) {
	s, _ := newTestDynamoStore()
	ctx := context.Background()
	o := sampleOrder()

	require.NoError(t, s.InsertOrder(ctx, o))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.True(t, o.Subtotal.Equal(got.Subtotal))
	assert.True(t, o.TaxAmount.Equal(got.TaxAmount))
	assert.True(t, o.TotalAmount.Equal(got.TotalAmount))
	require.Len(t, got.Items, 1)
	assert.Equal(t, o.Items[0].MealName, got.Items[0].MealName)
	assert.True(t, o.Items[0].MealPrice.Equal(got.Items[0].MealPrice))
	assert.Equal(t, o.Items[0].RemovedIngredientNames, got.Items[0].RemovedIngredientNames)
	assert.True(t, o.CreatedAt.Equal(got.CreatedAt))
	assert.NoError(t, got.VerifyTotals())
}

func TestDynamoOrderStore_DuplicateOrderNumber(t *testing.T) {
	s, client := newTestDynamoStore()
	ctx := context.Background()

	first := sampleOrder()
	require.NoError(t, s.InsertOrder(ctx, first))

	second := sampleOrder()
	second.ID = "order-2"
	err := s.InsertOrder(ctx, second)

	assert.ErrorIs(t, err, order.ErrDuplicateOrderNumber)
	_, err = s.GetOrder(ctx, "order-2")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.Equal(t, 2, client.TransactCalls)
}

func TestDynamoOrderStore_CountIgnoresClaims(t *testing.T) {
	s, _ := newTestDynamoStore()
	ctx := context.Background()

	for i, number := range []string{"ORD-20240305-000001", "ORD-20240305-000002", "ORD-20240305-000003"} {
		o := sampleOrder()
		o.ID = "order-" + string(rune('a'+i))
		o.OrderNumber = number
		require.NoError(t, s.InsertOrder(ctx, o))
	}

	n, err := s.CountOrders(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDynamoOrderStore_UpdateOrder(t *testing.T) {
	s, _ := newTestDynamoStore()
	ctx := context.Background()
	o := sampleOrder()
	require.NoError(t, s.InsertOrder(ctx, o))

	status := order.StatusConfirmed
	require.NoError(t, o.Apply(order.Update{Status: &status}, o.CreatedAt.Add(time.Minute)))
	o.Version++
	require.NoError(t, s.UpdateOrder(ctx, o))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, order.StatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, o.ConfirmedAt.Equal(*got.ConfirmedAt))
}

func TestDynamoOrderStore_UpdateOrder_StaleVersionIsRejected(t *testing.T) {
	s, _ := newTestDynamoStore()
	ctx := context.Background()
	o := sampleOrder()
	require.NoError(t, s.InsertOrder(ctx, o))

	first, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	second, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)

	confirmed := order.StatusConfirmed
	require.NoError(t, first.Apply(order.Update{Status: &confirmed}, o.CreatedAt.Add(2*time.Minute)))
	first.Version++
	require.NoError(t, s.UpdateOrder(ctx, first))

	paid := order.PaymentPaid
	require.NoError(t, second.Apply(order.Update{PaymentStatus: &paid}, o.CreatedAt.Add(time.Minute)))
	second.Version++
	err = s.UpdateOrder(ctx, second)

	assert.ErrorIs(t, err, order.ErrConcurrentUpdate)
	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, got.Status)
	assert.Equal(t, order.PaymentPending, got.PaymentStatus)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, first.ConfirmedAt.Equal(*got.ConfirmedAt))
}

func TestDynamoOrderStore_UpdateOrder_NotFound(t *testing.T) {
	s, _ := newTestDynamoStore()

	err := s.UpdateOrder(context.Background(), sampleOrder())

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestDynamoOrderStore_GetOrder_ClaimIsNotAnOrder(t *testing.T) {
	s, _ := newTestDynamoStore()
	ctx := context.Background()
	o := sampleOrder()
	require.NoError(t, s.InsertOrder(ctx, o))

	_, err := s.GetOrder(ctx, "ORDNUM#"+o.OrderNumber)

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestDynamoOrderStore_ListAndStats(t *testing.T) {
	s, _ := newTestDynamoStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	older := sampleOrder()
	older.ID, older.OrderNumber, older.UserID = "order-old", "ORD-20240304-000001", "user-1"
	older.CreatedAt = base.Add(-24 * time.Hour)
	older.Status = order.StatusDelivered

	newer := sampleOrder()
	newer.ID, newer.OrderNumber, newer.UserID = "order-new", "ORD-20240305-000002", "user-1"
	newer.CreatedAt = base

	other := sampleOrder()
	other.ID, other.OrderNumber, other.UserID = "order-other", "ORD-20240305-000003", "user-2"
	other.CreatedAt = base.Add(time.Hour)
	other.Status = order.StatusDelivered

	for _, o := range []*order.Order{older, newer, other} {
		require.NoError(t, s.InsertOrder(ctx, o))
	}

	mine, err := s.ListOrders(ctx, order.ListFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "order-new", mine[0].ID)
	assert.Equal(t, "order-old", mine[1].ID)

	delivered, err := s.ListOrders(ctx, order.ListFilter{Status: order.StatusDelivered, Limit: 1})
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, "order-other", delivered[0].ID)

	paged, err := s.ListOrders(ctx, order.ListFilter{Skip: 5})
	require.NoError(t, err)
	assert.Empty(t, paged)

	st, err := s.Stats(ctx, base.Truncate(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalOrders)
	assert.Equal(t, 2, st.TodayOrders)
	assert.True(t, money("53.20").Equal(st.TotalRevenue))
	assert.True(t, money("26.60").Equal(st.TodayRevenue))
}

func TestDynamoOrderStore_ScanFailure(t *testing.T) {
	s, client := newTestDynamoStore()
	client.ScanErr = errors.New("throttled")

	_, err := s.CountOrders(context.Background())

	assert.ErrorIs(t, err, client.ScanErr)
}
