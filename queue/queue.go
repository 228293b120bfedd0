// Package queue wraps SQS for the experiment pipeline: one-shot receive and
// delete helpers, a publisher, and a long-poll worker-pool consumer.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	log "github.com/sirupsen/logrus"
)

// sqsAPI is the slice of the SQS client this package calls. Kept narrow so
// tests can stand in a fake.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Client wraps the SQS API for one-shot receive and delete calls.
type Client struct {
	sqs sqsAPI
}

// New builds a client from the default AWS credential chain.
func New(ctx context.Context) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewFromConfig(cfg), nil
}

// NewFromConfig builds a client from an already-loaded AWS config.
func NewFromConfig(cfg aws.Config) *Client {
	return &Client{sqs: sqs.NewFromConfig(cfg)}
}

// GetMessages long-polls queueURL for up to maxMessages messages, waiting at
// most wait for one to arrive. An SDK error or an empty response yields an
// empty slice.
func (c *Client) GetMessages(ctx context.Context, queueURL string, maxMessages int, wait time.Duration) []Message {
	out, err := c.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     int32(wait / time.Second),
	})
	if err != nil {
		log.WithError(err).WithField("queue_url", queueURL).Error("could not receive messages from SQS")
		return []Message{}
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, newMessage(m))
	}
	return msgs
}

// DeleteMessage acknowledges one message by its receipt handle. Errors are
// logged and absorbed.
func (c *Client) DeleteMessage(ctx context.Context, queueURL, handle string) {
	if err := c.deleteMessage(ctx, queueURL, handle); err != nil {
		log.WithError(err).WithField("queue_url", queueURL).Error("error removing message")
	}
}

func (c *Client) deleteMessage(ctx context.Context, queueURL, handle string) error {
	_, err := c.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		return fmt.Errorf("unable to delete message from the queue: %w", err)
	}
	return nil
}
