package integration

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// MemoryQueue is an in-process stand-in for one SQS queue. It serves both the
// publisher and the consumer side.
type MemoryQueue struct {
	mu       sync.Mutex
	seq      int
	visible  []types.Message
	inFlight map[string]types.Message
	deleted  int
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{inFlight: map[string]types.Message{}}
}

func (q *MemoryQueue) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	id := strconv.Itoa(q.seq)
	q.visible = append(q.visible, types.Message{
		MessageId:         aws.String(id),
		ReceiptHandle:     aws.String("receipt-" + id),
		Body:              params.MessageBody,
		MessageAttributes: params.MessageAttributes,
	})
	return &sqs.SendMessageOutput{MessageId: aws.String(id)}, nil
}

func (q *MemoryQueue) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	q.mu.Lock()
	n := min(len(q.visible), int(params.MaxNumberOfMessages))
	batch := append([]types.Message(nil), q.visible[:n]...)
	q.visible = q.visible[n:]
	for _, m := range batch {
		q.inFlight[*m.ReceiptHandle] = m
	}
	q.mu.Unlock()

	if len(batch) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (q *MemoryQueue) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inFlight[*params.ReceiptHandle]; ok {
		delete(q.inFlight, *params.ReceiptHandle)
		q.deleted++
	}
	return &sqs.DeleteMessageOutput{}, nil
}

// Deleted reports how many messages consumers acknowledged.
func (q *MemoryQueue) Deleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.deleted
}

// Len reports how many messages wait to be received.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.visible)
}
