package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
)

// OutboundMessage carries everything needed to send one message. GroupID and
// DeduplicationID apply to FIFO queues only.
type OutboundMessage struct {
	Body            string
	GroupID         string
	DeduplicationID string
}

// Producer sends messages to a single queue. Queues whose URL ends in .fifo
// are treated as FIFO queues.
type Producer struct {
	sqs      sqsAPI
	queueURL string
	fifo     bool
}

// NewProducer builds a producer on top of an existing client.
func NewProducer(client *Client, queueURL string) *Producer {
	return &Producer{
		sqs:      client.sqs,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

// Send validates msg and forwards it to the queue. For FIFO queues a
// deduplication ID is generated when the caller leaves it empty.
func (p *Producer) Send(ctx context.Context, msg OutboundMessage) error {
	if err := p.validate(msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(msg.Body),
	}
	if p.fifo {
		in.MessageGroupId = aws.String(msg.GroupID)
		dedup := msg.DeduplicationID
		if dedup == "" {
			dedup = uuid.NewString()
		}
		in.MessageDeduplicationId = aws.String(dedup)
	}

	if _, err := p.sqs.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("sending message to queue %s: %w", p.queueURL, err)
	}
	return nil
}

func (p *Producer) validate(msg OutboundMessage) error {
	if msg.Body == "" {
		return errors.New("message body cannot be empty")
	}
	if p.fifo {
		if msg.GroupID == "" {
			return errors.New("FIFO queue requires a message group id")
		}
		return nil
	}
	if msg.GroupID != "" || msg.DeduplicationID != "" {
		return errors.New("FIFO fields set for a standard queue")
	}
	return nil
}
