package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ibreez3/ai-chat/azure"
	"github.com/ibreez3/ai-chat/chat"
	"github.com/ibreez3/ai-chat/config"
	"github.com/ibreez3/ai-chat/openai"
)

func NewBackend(cfg config.Config) (chat.Backend, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		timeout := time.Duration(cfg.OpenAI.RequestTimeoutSec) * time.Second
		return openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, timeout), nil
	case config.ProviderAzure:
		return azure.NewOpenAI(cfg.Azure.Endpoint, cfg.Azure.Deployment, cfg.Azure.APIKey)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// NewGenerator wires the configured backend into a chat.Generator.
func NewGenerator(cfg config.Config, log logrus.FieldLogger) (*chat.Generator, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	gen, err := chat.NewGenerator(backend, cfg.GeneratorOptions())
	if err != nil {
		return nil, err
	}
	return gen.WithLogger(log.WithField("provider", cfg.Provider)), nil
}
