package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const eventTypeAttribute = "event_type"

// PublisherAPI defines the SQS operation used by Publisher.
type PublisherAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends admin audit messages to AWS SQS.
type Publisher struct {
	client   PublisherAPI
	queueURL string
}

// NewPublisher creates a new SQS Publisher with the given client and queue URL.
func NewPublisher(client PublisherAPI, queueURL string) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: queueURL,
	}
}

// AuditMessage describes one confirmed admin mutation of a product.
type AuditMessage struct {
	EventID    string    `json:"event_id"`
	Action     string    `json:"action"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	Quantity   int       `json:"quantity"`
	Available  bool      `json:"available"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishAuditMessage publishes msg to the queue. The action is also sent as
// a message attribute so subscribers can filter without decoding the body.
func (p *Publisher) PublishAuditMessage(ctx context.Context, msg AuditMessage) error {
	messageBody, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(messageBody)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			eventTypeAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Action),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}
