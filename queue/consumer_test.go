package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
)

type handlerFunc func(ctx context.Context, msg Message) error

func (f handlerFunc) Run(ctx context.Context, msg Message) error { return f(ctx, msg) }

func newTestConsumer(api sqsAPI, handler Handler) *Consumer {
	return &Consumer{
		client:  &Client{sqs: api},
		handler: handler,
		cfg: ConsumerConfig{
			QueueURL:       testQueueURL,
			BatchSize:      1,
			Workers:        1,
			WaitTime:       time.Second,
			HandlerTimeout: 5 * time.Second,
		},
		wg: &sync.WaitGroup{},
	}
}

// receiveOnce returns a single message on the first call and empty responses
// afterwards.
func receiveOnce(msg types.Message) func(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	var served int32
	return func(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
		if atomic.AddInt32(&served, 1) == 1 {
			return &sqs.ReceiveMessageOutput{Messages: []types.Message{msg}}, nil
		}
		return &sqs.ReceiveMessageOutput{}, nil
	}
}

func TestConsume_DeletesMessageAfterSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deleted := make(chan string, 1)
	api := &fakeSQS{
		receiveMessage: receiveOnce(types.Message{
			MessageId:     aws.String("id-1"),
			ReceiptHandle: aws.String("handle-1"),
			Body:          aws.String("work item"),
		}),
		deleteMessage: func(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
			deleted <- aws.ToString(in.ReceiptHandle)
			return &sqs.DeleteMessageOutput{}, nil
		},
	}

	handled := make(chan Message, 1)
	consumer := newTestConsumer(api, handlerFunc(func(_ context.Context, msg Message) error {
		handled <- msg
		return nil
	}))
	go consumer.Consume(ctx)

	select {
	case msg := <-handled:
		assert.Equal(t, "work item", msg.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	select {
	case handle := <-deleted:
		assert.Equal(t, "handle-1", handle)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not deleted after successful handling")
	}
}

func TestConsume_HandlerError_MessageKept(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deletes int32
	api := &fakeSQS{
		receiveMessage: receiveOnce(types.Message{
			MessageId:     aws.String("id-1"),
			ReceiptHandle: aws.String("handle-1"),
			Body:          aws.String("poison"),
		}),
		deleteMessage: func(_ context.Context, _ *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
			atomic.AddInt32(&deletes, 1)
			return &sqs.DeleteMessageOutput{}, nil
		},
	}

	handled := make(chan struct{}, 1)
	consumer := newTestConsumer(api, handlerFunc(func(_ context.Context, _ Message) error {
		handled <- struct{}{}
		return errors.New("cannot process")
	}))
	go consumer.Consume(ctx)

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	// Give the worker time to (wrongly) delete before checking.
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&deletes))
}

func TestConsume_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	api := &fakeSQS{
		receiveMessage: func(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
			return &sqs.ReceiveMessageOutput{}, nil
		},
	}

	consumer := newTestConsumer(api, handlerFunc(func(_ context.Context, _ Message) error {
		return nil
	}))

	done := make(chan struct{})
	go func() {
		consumer.Consume(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not shut down after context cancellation")
	}
}

func TestNewConsumer_Defaults(t *testing.T) {
	consumer := NewConsumer(aws.Config{}, ConsumerConfig{QueueURL: testQueueURL}, handlerFunc(func(_ context.Context, _ Message) error {
		return nil
	}))

	assert.Equal(t, 10, consumer.cfg.BatchSize)
	assert.Equal(t, 1, consumer.cfg.Workers)
	assert.Equal(t, 5*time.Second, consumer.cfg.WaitTime)
	assert.Equal(t, 30*time.Second, consumer.cfg.HandlerTimeout)
}
