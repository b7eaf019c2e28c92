package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/restaurant-orders/internal/config"
	"github.com/example/restaurant-orders/internal/email"
	"github.com/example/restaurant-orders/internal/infrastructure/kinesis"
	"github.com/example/restaurant-orders/internal/logger"
	"github.com/example/restaurant-orders/internal/notification"
)

var (
	notificationHandler *notification.Handler
	log                 *slog.Logger
)

func init() {
	cfg, err := config.LoadNotifier(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}
	log = logger.New(cfg.App.LogLevel, "order-notifier-lambda")

	emailSvc := email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	notificationHandler = notification.NewHandler(emailSvc, log)

	log.Info("initialized", "smtp", cfg.SMTP.Host+":"+cfg.SMTP.Port)
}

// handler reports undecodable or failed records back to Kinesis so only
// those are retried.
func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	var batchItemFailures []events.KinesisBatchItemFailure

	for _, record := range kinesisEvent.Records {
		event, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			log.Error("failed to convert record", "event_id", record.EventID, "error", err)
			batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			continue
		}

		// not an order change worth notifying about
		if event == nil {
			continue
		}

		if err := notificationHandler.HandleEvent(ctx, event); err != nil {
			log.Error("failed to process event",
				"event_id", event.ID, "event_type", event.EventType, "order_id", event.OrderID, "error", err)
			batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
		}
	}

	log.Info("batch processed",
		"records", len(kinesisEvent.Records), "failed", len(batchItemFailures))

	return events.KinesisEventResponse{
		BatchItemFailures: batchItemFailures,
	}, nil
}

func main() {
	lambda.Start(handler)
}
