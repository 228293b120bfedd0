package queue

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Message is one received queue entry. Handle is the opaque receipt token a
// later delete call needs; Body is the raw payload text.
type Message struct {
	ID     string
	Handle string
	Body   string
}

func newMessage(m types.Message) Message {
	return Message{
		ID:     aws.ToString(m.MessageId),
		Handle: aws.ToString(m.ReceiptHandle),
		Body:   aws.ToString(m.Body),
	}
}

// Decode unmarshals the JSON body into out.
func (m Message) Decode(out interface{}) error {
	return json.Unmarshal([]byte(m.Body), out)
}
