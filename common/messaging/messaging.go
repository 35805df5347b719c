// Package messaging abstracts the message bus used for rollup lifecycle
// events so publishers are not coupled to a broker.
package messaging

import (
	"context"
	"time"
)

// Message is a message sent to or received from the broker.
type Message struct {
	Subject string
	Data    []byte

	// Reply is set for request/reply exchanges.
	Reply string

	// Metadata is carried as message headers.
	Metadata map[string]string

	Timestamp time.Time
}

// MessageHandler processes a received message.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription is an active subscription to a subject.
type Subscription interface {
	Unsubscribe() error
	Subject() string
	IsValid() bool
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish is fire-and-forget.
	Publish(ctx context.Context, subject string, data []byte, opts ...PublishOption) error

	// PublishMsg sends a Message with its metadata as headers.
	PublishMsg(ctx context.Context, msg *Message) error

	Close() error
}

// Subscriber subscribes to subjects.
type Subscriber interface {
	Subscribe(subject string, handler MessageHandler) (Subscription, error)
	Close() error
}

// Client combines Publisher and Subscriber with connection management.
type Client interface {
	Publisher
	Subscriber

	// Request sends data and waits up to timeout for a reply.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*Message, error)

	// Drain closes the connection after in-flight messages complete.
	Drain() error

	IsConnected() bool
}

// PublishOption configures a single publish.
type PublishOption func(*PublishOptions)

// PublishOptions is the resolved set of options.
type PublishOptions struct {
	Headers map[string]string
}

// WithHeader adds a header to the published message.
func WithHeader(key, value string) PublishOption {
	return func(o *PublishOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// ApplyPublishOptions resolves opts.
func ApplyPublishOptions(opts ...PublishOption) PublishOptions {
	var o PublishOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
