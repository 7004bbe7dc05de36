package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string, logger *log.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiClient{client: client, model: model, logger: logger}, nil
}

func (c *GeminiClient) GetReply(ctx context.Context, history []Message) (string, error) {
	system, contents := toGeminiContents(history)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		c.logger.Error("gemini completion failed", "model", c.model, "err", err)
		return "", err
	}

	raw := geminiText(resp)
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyReply
	}

	c.logger.Debug("gemini raw reply", "model", c.model, "reply", raw)
	return raw, nil
}

// toGeminiContents lifts the leading system messages into the system
// instruction. Later system messages (priming notes) are sent as user
// content, which is how Gemini chats accept mid-conversation context.
func toGeminiContents(history []Message) (string, []*genai.Content) {
	var system []string
	i := 0
	for ; i < len(history) && history[i].Role == RoleSystem; i++ {
		system = append(system, history[i].Text)
	}

	contents := make([]*genai.Content, 0, len(history)-i)
	for _, m := range history[i:] {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	return strings.Join(system, "\n\n"), contents
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
