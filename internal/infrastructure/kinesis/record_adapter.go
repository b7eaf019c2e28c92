package kinesis

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/example/restaurant-orders/internal/infrastructure/store"
)

// ConvertFromKinesisRecord converts a Kinesis record carrying a DynamoDB
// Streams change of the order table into an order event. Changes that do not
// map to an event (claims, removals, edits that keep the status) yield nil.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*order.Event, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Stream record to an
// order event. INSERT of an order is OrderPlaced; MODIFY that changes status
// or payment status is OrderStatusChanged.
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*order.Event, error) {
	switch record.EventName {
	case "INSERT":
		if kindOf(record.Change.NewImage) != store.KindOrder {
			return nil, nil
		}
		o, err := decodeOrderImage(record.Change.NewImage)
		if err != nil {
			return nil, err
		}
		return newEvent(record.EventID, o, order.EventOrderPlaced, order.NewOrderPlaced(o))

	case "MODIFY":
		if kindOf(record.Change.NewImage) != store.KindOrder {
			return nil, nil
		}
		if !statusChanged(record.Change.OldImage, record.Change.NewImage) {
			return nil, nil
		}
		o, err := decodeOrderImage(record.Change.NewImage)
		if err != nil {
			return nil, err
		}
		return newEvent(record.EventID, o, order.EventOrderStatusChanged, order.NewOrderStatusChanged(o))
	}
	return nil, nil
}

func newEvent(streamEventID string, o *order.Order, eventType string, data any) (*order.Event, error) {
	event, err := order.NewEvent(o.ID, eventType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s event: %w", eventType, err)
	}
	// Stream redeliveries keep the same id.
	if streamEventID != "" {
		event.ID = streamEventID
	}
	event.Timestamp = o.UpdatedAt
	return event, nil
}

func kindOf(image map[string]events.DynamoDBAttributeValue) string {
	if v, ok := image["kind"]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

func stringAttr(image map[string]events.DynamoDBAttributeValue, name string) string {
	if v, ok := image[name]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

func statusChanged(oldImage, newImage map[string]events.DynamoDBAttributeValue) bool {
	if oldImage == nil {
		return true
	}
	if stringAttr(oldImage, "status") != stringAttr(newImage, "status") {
		return true
	}
	// Payment status only lives in the document.
	oldOrder, err := decodeOrderImage(oldImage)
	if err != nil {
		return true
	}
	newOrder, err := decodeOrderImage(newImage)
	if err != nil {
		return true
	}
	return oldOrder.PaymentStatus != newOrder.PaymentStatus
}

// decodeOrderImage rebuilds the order from the "document" attribute.
func decodeOrderImage(image map[string]events.DynamoDBAttributeValue) (*order.Order, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}
	doc := stringAttr(image, "document")
	if doc == "" {
		return nil, fmt.Errorf("missing document attribute: id=%s", stringAttr(image, "id"))
	}

	var o order.Order
	if err := json.Unmarshal([]byte(doc), &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order document: %w", err)
	}
	if o.ID == "" || o.OrderNumber == "" {
		return nil, fmt.Errorf("missing required fields: id=%s, order_number=%s", o.ID, o.OrderNumber)
	}
	return &o, nil
}

// BatchConvertFromKinesisEvent converts all records from a Kinesis event.
// Returns successfully converted events and any errors encountered.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*order.Event, []error) {
	var eventList []*order.Event
	var errs []error

	for _, record := range kinesisEvent.Records {
		event, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if event != nil {
			eventList = append(eventList, event)
		}
	}

	return eventList, errs
}
