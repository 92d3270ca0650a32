package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/XenioxYT/discord-chatbot/internal/config"
)

// NewClient creates an OpenAI-compatible chat client from configuration.
// BaseURL may point at any compatible endpoint; empty keeps the default.
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
