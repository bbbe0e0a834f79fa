package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"telepost/internal/biz/repo"
)

// rewritePrompt is the editorial style the destination channel runs on
const rewritePrompt = `Перепиши новость в стиле:
- Первое предложение = главный факт
- 2-3 коротких абзаца
- Без эмодзи
- Без воды и восторгов
- Нейтральный взрослый тон
- Ссылки оставляй как есть, без markdown разметки
- Если упоминается Meta/Instagram/WhatsApp — добавь сноску: * — продукт компании Meta, признана экстремистской и запрещена в РФ.

Новость:
%s`

// rewriteRepo implements the rewrite service on the OpenAI chat API
type rewriteRepo struct {
	client *openai.Client
	model  string
}

// NewRewriteRepo creates a new rewrite service client
func NewRewriteRepo(apiKey, model string) repo.RewriteRepo {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &rewriteRepo{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Rewrite sends the text through the chat completion API. Output is
// returned as-is; the caller treats it as untrusted markdown.
func (r *rewriteRepo) Rewrite(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(rewritePrompt, text)},
		},
		MaxTokens: 1000,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
