package queue

import "context"

// Channel names shared by the gateway and the worker. Payloads on both are
// UTF-8 JSON text.
const (
	ChannelChatRequests  = "chat_requests"
	ChannelChatResponses = "chat_responses"
)

// Queue is a durable, named-channel broker decoupling the gateway from the
// worker.
type Queue interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Consume returns a pull iterator over the channel. Consumers are
	// independent: each Next removes one message from the channel.
	Consume(channel string) Consumer
	// Ping reports broker connectivity; a failure at startup is fatal.
	Ping(ctx context.Context) error
}

// Consumer yields messages one at a time. Next blocks until a message
// arrives or ctx is done; cancellation is honored between dequeues.
type Consumer interface {
	Next(ctx context.Context) ([]byte, error)
}
