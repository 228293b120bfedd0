package queue

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	log "github.com/sirupsen/logrus"
)

// ConsumerConfig tunes the polling loop and the worker pool.
type ConsumerConfig struct {
	QueueURL string
	// BatchSize is the number of messages requested per receive call,
	// capped by SQS at 10.
	BatchSize int
	// Workers is the number of goroutines handling messages.
	Workers int
	// WaitTime is the long-poll wait passed to each receive call.
	WaitTime time.Duration
	// HandlerTimeout bounds a single handler invocation.
	HandlerTimeout time.Duration
}

// Consumer long-polls a queue and feeds messages to a pool of workers. A
// message is deleted from the queue only after its handler returns nil.
type Consumer struct {
	client  *Client
	handler Handler
	cfg     ConsumerConfig
	wg      *sync.WaitGroup
}

// NewConsumer builds a consumer from an already-loaded AWS config. Zero
// values in cfg fall back to one worker, batches of 10, a 5s poll wait and a
// 30s handler timeout.
func NewConsumer(awsCfg aws.Config, cfg ConsumerConfig, handler Handler) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = 5 * time.Second
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}

	return &Consumer{
		client:  NewFromConfig(awsCfg),
		handler: handler,
		cfg:     cfg,
		wg:      &sync.WaitGroup{},
	}
}

// Consume polls until ctx is cancelled, then waits for in-flight handlers to
// drain.
func (c *Consumer) Consume(ctx context.Context) {
	jobs := make(chan Message, c.cfg.Workers)
	for w := 1; w <= c.cfg.Workers; w++ {
		c.wg.Add(1)
		go c.worker(ctx, jobs, w)
	}

loop:
	for {
		select {
		case <-ctx.Done():
			log.Info("closing jobs channel")
			close(jobs)
			break loop
		default:
			for _, m := range c.client.GetMessages(ctx, c.cfg.QueueURL, c.cfg.BatchSize, c.cfg.WaitTime) {
				jobs <- m
			}
		}
	}

	c.wg.Wait()
}

func (c *Consumer) worker(ctx context.Context, messages <-chan Message, workerID int) {
	defer c.wg.Done()
	for m := range messages {
		if err := c.handleMsg(ctx, m, workerID); err != nil {
			log.WithError(err).Error("error running handler")
		}
	}
	log.Info("worker exiting")
}

func (c *Consumer) handleMsg(ctx context.Context, m Message, workerID int) error {
	span, ctx := tracer.StartSpanFromContext(ctx, "queue.handle_msg")
	span.SetTag("worker_id", workerID)
	defer span.Finish()

	handlerCtx, cancel := context.WithTimeout(ctx, c.cfg.HandlerTimeout)
	defer cancel()

	if err := c.handler.Run(handlerCtx, m); err != nil {
		span.SetTag("success", false)
		span.SetTag("error", err)
		return err
	}

	log.WithFields(TraceFields(handlerCtx)).Info("deleting message from SQS")
	if err := c.client.deleteMessage(handlerCtx, c.cfg.QueueURL, m.Handle); err != nil {
		span.SetTag("success", false)
		span.SetTag("error", err)
		return err
	}

	span.SetTag("success", true)
	return nil
}

// TraceFields exposes the active Datadog span as log fields so log lines can
// be correlated with traces.
func TraceFields(ctx context.Context) log.Fields {
	if span, ok := tracer.SpanFromContext(ctx); ok {
		return log.Fields{"dd.trace_id": span.Context().TraceID(), "dd.span_id": span.Context().SpanID()}
	}
	return log.Fields{}
}
