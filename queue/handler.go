package queue

import "context"

// Handler processes one received message. A nil return acknowledges the
// message; any error leaves it on the queue for redelivery.
type Handler interface {
	Run(ctx context.Context, msg Message) error
}
