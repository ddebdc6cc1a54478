package openai

import (
	"context"
	"errors"
	"time"

	openai "github.com/openai/openai-go/v3" // imported as openai
	"github.com/openai/openai-go/v3/option"

	"github.com/ibreez3/ai-chat/chat"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Client implements chat.Backend over the OpenAI chat completions API.
// The SDK's own retries are disabled; chat.Generator owns the retry policy.
type Client struct {
	cli openai.Client
}

func NewClient(apiKey string, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &Client{cli: openai.NewClient(opts...)}
}

func (c *Client) Create(ctx context.Context, req chat.Request) (chat.Response, error) {
	messages, err := toParams(req.Messages)
	if err != nil {
		return chat.Response{}, err
	}
	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
		N:           openai.Int(int64(req.N)),
	}
	res, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return chat.Response{}, translateError(err)
	}
	out := chat.Response{Choices: make([]chat.Message, 0, len(res.Choices))}
	for _, choice := range res.Choices {
		role := chat.Role(choice.Message.Role)
		if role == "" {
			role = chat.RoleAssistant
		}
		out.Choices = append(out.Choices, chat.NewMessage(role, choice.Message.Content))
	}
	return out, nil
}

func toParams(history chat.History) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		role, err := m.Role()
		if err != nil {
			return nil, err
		}
		switch role {
		case chat.RoleUser:
			out = append(out, openai.UserMessage(m.Content()))
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content()))
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content()))
		}
	}
	return out, nil
}

func translateError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &chat.APIError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
	}
	return err
}
