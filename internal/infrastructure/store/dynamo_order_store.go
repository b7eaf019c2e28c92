package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/shopspring/decimal"
)

const (
	KindOrder       = "order"
	KindOrderNumber = "order_number"

	orderNumberKeyPrefix = "ORDNUM#"

	updateCondition = "attribute_exists(id) AND #version = :prev"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoOrderStore
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoOrderStore implements order.Repository on a single DynamoDB table.
// Orders and order-number claims share the table, told apart by "kind".
// Item writes are streamed to Kinesis via the DynamoDB Kinesis integration.
type DynamoOrderStore struct {
	client    DynamoDBAPI
	tableName string
}

// DynamoOrderItem is the stored shape of an order. The whole order lives in
// Document; the other attributes exist for filters and stream consumers.
type DynamoOrderItem struct {
	ID          string `dynamodbav:"id"`
	Kind        string `dynamodbav:"kind"`
	OrderNumber string `dynamodbav:"order_number"`
	UserID      string `dynamodbav:"user_id"`
	Status      string `dynamodbav:"status"`
	TotalAmount string `dynamodbav:"total_amount"`
	CreatedAt   string `dynamodbav:"created_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
	Version     int    `dynamodbav:"version"`
	Document    string `dynamodbav:"document"`
}

type dynamoOrderNumberClaim struct {
	ID      string `dynamodbav:"id"`
	Kind    string `dynamodbav:"kind"`
	OrderID string `dynamodbav:"order_id"`
}

func NewDynamoOrderStore(client DynamoDBAPI, tableName string) *DynamoOrderStore {
	return &DynamoOrderStore{client: client, tableName: tableName}
}

// InsertOrder puts the order and claims its number in one transaction, so a
// taken number leaves nothing behind.
func (s *DynamoOrderStore) InsertOrder(ctx context.Context, o *order.Order) error {
	item, err := toDynamoOrderItem(o)
	if err != nil {
		return err
	}
	orderAV, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	claimAV, err := attributevalue.MarshalMap(dynamoOrderNumberClaim{
		ID:      orderNumberKeyPrefix + o.OrderNumber,
		Kind:    KindOrderNumber,
		OrderID: o.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order number claim: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                orderAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                claimAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && conditionFailed(canceled) {
			return fmt.Errorf("%w: %s", order.ErrDuplicateOrderNumber, o.OrderNumber)
		}
		return fmt.Errorf("failed to put order: %w", err)
	}
	return nil
}

// UpdateOrder replaces the stored order if it is still at the version o was
// read at. The old item comes back on a failed check to tell a missing
// order from a lost race.
func (s *DynamoOrderStore) UpdateOrder(ctx context.Context, o *order.Order) error {
	item, err := toDynamoOrderItem(o)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tableName),
		Item:                     av,
		ConditionExpression:      aws.String(updateCondition),
		ExpressionAttributeNames: map[string]string{"#version": "version"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberN{Value: strconv.Itoa(o.Version - 1)},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return order.ErrOrderNotFound
			}
			return fmt.Errorf("%w: %s", order.ErrConcurrentUpdate, o.ID)
		}
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (s *DynamoOrderStore) CountOrders(ctx context.Context) (int, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		Select:                    types.SelectCount,
		FilterExpression:          aws.String("kind = :kind"),
		ExpressionAttributeValues: kindFilter(),
	})

	total := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count orders: %w", err)
		}
		total += int(page.Count)
	}
	return total, nil
}

func (s *DynamoOrderStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if result.Item == nil {
		return nil, order.ErrOrderNotFound
	}

	var item DynamoOrderItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	if item.Kind != KindOrder {
		return nil, order.ErrOrderNotFound
	}
	return item.Order()
}

// ListOrders scans the table and pages in memory, newest first.
// TODO: switch to a user_id/created_at GSI query once the table has one.
func (s *DynamoOrderStore) ListOrders(ctx context.Context, filter order.ListFilter) ([]*order.Order, error) {
	all, err := s.scanOrders(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*order.Order, 0, len(all))
	for _, o := range all {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Skip > 0 {
		if filter.Skip >= len(result) {
			return []*order.Order{}, nil
		}
		result = result[filter.Skip:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *DynamoOrderStore) Stats(ctx context.Context, since time.Time) (*order.Stats, error) {
	all, err := s.scanOrders(ctx)
	if err != nil {
		return nil, err
	}

	st := &order.Stats{TotalRevenue: decimal.Zero, TodayRevenue: decimal.Zero}
	for _, o := range all {
		st.TotalOrders++
		today := !o.CreatedAt.Before(since)
		if today {
			st.TodayOrders++
		}
		if o.Status == order.StatusDelivered {
			st.TotalRevenue = st.TotalRevenue.Add(o.TotalAmount)
			if today {
				st.TodayRevenue = st.TodayRevenue.Add(o.TotalAmount)
			}
		}
	}
	return st, nil
}

func (s *DynamoOrderStore) scanOrders(ctx context.Context) ([]*order.Order, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          aws.String("kind = :kind"),
		ExpressionAttributeValues: kindFilter(),
	})

	var orders []*order.Order
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan orders: %w", err)
		}
		for _, av := range page.Items {
			var item DynamoOrderItem
			if err := attributevalue.UnmarshalMap(av, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal order: %w", err)
			}
			if item.Kind != KindOrder {
				continue
			}
			o, err := item.Order()
			if err != nil {
				return nil, err
			}
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// Order decodes the stored document
func (item DynamoOrderItem) Order() (*order.Order, error) {
	var o order.Order
	if err := json.Unmarshal([]byte(item.Document), &o); err != nil {
		return nil, fmt.Errorf("failed to decode order document %s: %w", item.ID, err)
	}
	return &o, nil
}

func toDynamoOrderItem(o *order.Order) (DynamoOrderItem, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return DynamoOrderItem{}, fmt.Errorf("failed to encode order: %w", err)
	}
	return DynamoOrderItem{
		ID:          o.ID,
		Kind:        KindOrder,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.String(),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   o.UpdatedAt.Format(time.RFC3339Nano),
		Version:     o.Version,
		Document:    string(doc),
	}, nil
}

func kindFilter() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		":kind": &types.AttributeValueMemberS{Value: KindOrder},
	}
}

func conditionFailed(e *types.TransactionCanceledException) bool {
	for _, r := range e.CancellationReasons {
		if aws.ToString(r.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

// NewDynamoClient loads the default AWS config and returns a DynamoDB client.
// A non-empty endpoint points the client at a local emulator.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}
