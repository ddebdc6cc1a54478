package chat

import "context"

// Request is one logical chat-completion call.
type Request struct {
	Model       string
	Messages    History
	MaxTokens   int
	Temperature float64
	N           int
}

type Response struct {
	Choices []Message
}

// Backend issues a single remote chat-completion call. It must not retry;
// retrying is the Generator's job.
type Backend interface {
	Create(ctx context.Context, req Request) (Response, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (Response, error)

func (f BackendFunc) Create(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
