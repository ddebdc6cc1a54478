package azure

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/ibreez3/ai-chat/chat"
)

const (
	endpointPattern   = `^https://[a-zA-Z0-9-]+\.openai\.azure\.com/?$`
	deploymentPattern = `^[a-zA-Z0-9-]+$`
)

var (
	endpointRegex   = regexp.MustCompile(endpointPattern)
	deploymentRegex = regexp.MustCompile(deploymentPattern)
)

// OpenAI implements chat.Backend against an Azure OpenAI deployment. The
// model in a chat.Request is ignored; the deployment decides it.
type OpenAI struct {
	deployment string
	client     *azopenai.Client
}

// NewOpenAI connects to endpoint (e.g. "https://<host>.openai.azure.com").
// With an empty apiKey the default Azure credential chain is used.
func NewOpenAI(endpoint, deployment, apiKey string) (*OpenAI, error) {
	if err := validate(endpoint, deployment); err != nil {
		return nil, err
	}

	var (
		client *azopenai.Client
		err    error
	)
	if apiKey != "" {
		client, err = azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), nil)
	} else {
		cred, cerr := azidentity.NewDefaultAzureCredential(nil)
		if cerr != nil {
			return nil, fmt.Errorf("failed to get Azure credentials: %w", cerr)
		}
		client, err = azopenai.NewClient(endpoint, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}
	return &OpenAI{deployment: deployment, client: client}, nil
}

func validate(endpoint, deployment string) error {
	if !endpointRegex.MatchString(endpoint) {
		return &chat.ConfigurationError{Field: "azure.endpoint", Reason: "must follow pattern " + endpointPattern}
	}
	if !deploymentRegex.MatchString(deployment) {
		return &chat.ConfigurationError{Field: "azure.deployment", Reason: "must follow pattern " + deploymentPattern}
	}
	return nil
}

func (m *OpenAI) Create(ctx context.Context, req chat.Request) (chat.Response, error) {
	messages, err := toRequestMessages(req.Messages)
	if err != nil {
		return chat.Response{}, err
	}
	opts := azopenai.ChatCompletionsOptions{
		Messages:       messages,
		MaxTokens:      to.Ptr(int32(req.MaxTokens)),
		N:              to.Ptr(int32(req.N)),
		Temperature:    to.Ptr(float32(req.Temperature)),
		DeploymentName: &m.deployment,
	}
	resp, err := m.client.GetChatCompletions(ctx, opts, nil)
	if err != nil {
		return chat.Response{}, translateError(err)
	}
	return toResponse(resp.Choices)
}

func toRequestMessages(history chat.History) ([]azopenai.ChatRequestMessageClassification, error) {
	out := make([]azopenai.ChatRequestMessageClassification, 0, len(history))
	for _, msg := range history {
		role, err := msg.Role()
		if err != nil {
			return nil, err
		}
		switch role {
		case chat.RoleUser:
			out = append(out, &azopenai.ChatRequestUserMessage{Content: azopenai.NewChatRequestUserMessageContent(msg.Content())})
		case chat.RoleAssistant:
			out = append(out, &azopenai.ChatRequestAssistantMessage{Content: to.Ptr(msg.Content())})
		case chat.RoleSystem:
			out = append(out, &azopenai.ChatRequestSystemMessage{Content: to.Ptr(msg.Content())})
		}
	}
	return out, nil
}

func toResponse(choices []azopenai.ChatChoice) (chat.Response, error) {
	out := chat.Response{Choices: make([]chat.Message, 0, len(choices))}
	for _, choice := range choices {
		if choice.Message == nil || choice.Message.Content == nil {
			return chat.Response{}, chat.ErrNoMessage
		}
		out.Choices = append(out.Choices, chat.AssistantMessage(*choice.Message.Content))
	}
	return out, nil
}

func translateError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return &chat.APIError{StatusCode: respErr.StatusCode, Message: respErr.ErrorCode, Err: err}
	}
	return err
}
