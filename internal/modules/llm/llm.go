// Package llm abstracts the language model backends used to summarize
// papers.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dywsy21/Cecilia/internal/config"
)

// maxContentRunes caps the extracted paper text handed to the model so
// the request fits common context windows.
const maxContentRunes = 30000

const systemPrompt = "你是一位学术论文阅读助手。请用中文为给定的论文撰写一份结构化摘要，" +
	"使用 Markdown 格式，包含：研究问题、核心方法、主要结论、潜在影响四个部分。" +
	"摘要应当准确、凝练，面向相关领域的研究者。"

// Engine generates paper summaries.
type Engine interface {
	// Available checks whether the backend is reachable and the model
	// is usable. A run aborts before any paper work when it is not.
	Available(ctx context.Context) error
	// Summarize produces a markdown summary of the paper text.
	Summarize(ctx context.Context, title, content string) (string, error)
	// Model names the configured model for logs and status output.
	Model() string
}

// New selects the backend named by the configuration.
func New(cfg config.LLMConfig) (Engine, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return newOllama(cfg), nil
	case "openai":
		return newOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// buildUserPrompt assembles the per-paper request.
func buildUserPrompt(title, content string) string {
	return fmt.Sprintf("论文标题：%s\n\n论文全文：\n%s", title, truncateRunes(content, maxContentRunes))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripReasoning removes chain-of-thought markers that reasoning models
// emit before the answer. An unclosed marker drops everything after it.
func StripReasoning(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	if idx := strings.Index(s, "<think>"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
