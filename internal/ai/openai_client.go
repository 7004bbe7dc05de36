package ai

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *log.Logger
}

func NewOpenAIClient(apiKey, model, baseURL string, logger *log.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (c *OpenAIClient) GetReply(ctx context.Context, history []Message) (string, error) {
	msgs := lo.Map(history, func(m Message, _ int) openai.ChatCompletionMessage {
		return openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Text,
		}
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		c.logger.Error("openai completion failed", "model", c.model, "err", err)
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	raw := resp.Choices[0].Message.Content
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyReply
	}

	c.logger.Debug("openai raw reply", "model", c.model, "reply", raw)
	return raw, nil
}

func openAIRole(role string) string {
	switch role {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
