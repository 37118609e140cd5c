package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/dywsy21/Cecilia/internal/config"
)

// openaiEngine talks to the OpenAI API or any compatible endpoint.
type openaiEngine struct {
	client openai.Client
	model  string
}

func newOpenAI(cfg config.LLMConfig) *openaiEngine {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout()),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &openaiEngine{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (o *openaiEngine) Model() string { return o.model }

// Available verifies credentials by listing models.
func (o *openaiEngine) Available(ctx context.Context) error {
	if _, err := o.client.Models.List(ctx); err != nil {
		return fmt.Errorf("llm: openai unavailable: %w", err)
	}
	return nil
}

func (o *openaiEngine) Summarize(ctx context.Context, title, content string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(title, content)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: openai returned no choices")
	}

	summary := StripReasoning(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("llm: model returned empty summary")
	}
	return summary, nil
}
