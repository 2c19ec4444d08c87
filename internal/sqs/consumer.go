package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const (
	maxMessagesPerPoll = 10
	longPollSeconds    = 20
)

// ConsumerAPI defines the interface for SQS operations used by Consumer.
type ConsumerAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Handler processes one decoded audit message. A returned error leaves the
// message on the queue for redelivery.
type Handler func(ctx context.Context, msg AuditMessage) error

// Consumer handles consuming audit messages from AWS SQS.
type Consumer struct {
	client   ConsumerAPI
	queueURL string
	handle   Handler
}

// NewConsumer creates a new SQS Consumer. A nil handler logs each message.
func NewConsumer(client ConsumerAPI, queueURL string, handle Handler) *Consumer {
	if handle == nil {
		handle = LogAuditMessage
	}
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		handle:   handle,
	}
}

// LogAuditMessage writes msg to the default logger.
func LogAuditMessage(_ context.Context, msg AuditMessage) error {
	slog.Info("Received product audit notification",
		slog.String("event_id", msg.EventID),
		slog.String("action", msg.Action),
		slog.Int64("product_id", msg.ProductID),
		slog.String("name", msg.Name),
		slog.String("price", msg.Price),
		slog.Int("quantity", msg.Quantity),
		slog.Bool("available", msg.Available),
		slog.Time("occurred_at", msg.OccurredAt),
	)
	return nil
}

// Start begins consuming messages from the SQS queue until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("Starting SQS consumer", slog.String("queueURL", c.queueURL))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping SQS consumer")
			return ctx.Err()
		default:
			if err := c.receiveMessages(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Error receiving messages", slog.Any("err", err))
			}
		}
	}
}

func (c *Consumer) receiveMessages(ctx context.Context) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(c.queueURL),
		MaxNumberOfMessages:   maxMessagesPerPoll,
		WaitTimeSeconds:       longPollSeconds,
		MessageAttributeNames: []string{eventTypeAttribute},
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, message := range result.Messages {
		if err := c.processMessage(ctx, message); err != nil {
			slog.Error("Error processing message", slog.Any("err", err))
			continue
		}

		if err := c.deleteMessage(ctx, message); err != nil {
			slog.Error("Error deleting message", slog.Any("err", err))
		}
	}

	return nil
}

func (c *Consumer) processMessage(ctx context.Context, message types.Message) error {
	if message.Body == nil {
		return fmt.Errorf("message body is nil")
	}

	var msg AuditMessage
	if err := json.Unmarshal([]byte(*message.Body), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.Action == "" {
		if attr, ok := message.MessageAttributes[eventTypeAttribute]; ok && attr.StringValue != nil {
			msg.Action = *attr.StringValue
		}
	}

	if err := c.handle(ctx, msg); err != nil {
		return fmt.Errorf("failed to handle message %s: %w", msg.EventID, err)
	}
	return nil
}

func (c *Consumer) deleteMessage(ctx context.Context, message types.Message) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
