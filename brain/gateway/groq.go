// Package gateway implements the language-model boundary. The generator is
// stateless and untrusted for policy compliance; callers validate its output.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/aryanranjan/aria/brain/contract"
	sessionx "github.com/aryanranjan/aria/brain/session"
	groqx "github.com/aryanranjan/aria/pkg/groq"
)

// Groq calls Groq's OpenAI-compatible chat completion API.
type Groq struct {
	client      *openaisdk.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
}

var _ contractx.Generator = (*Groq)(nil)

func NewGroq(cfg groqx.Config) (*Groq, error) {
	client := groqx.NewClient(cfg)
	if client == nil {
		return nil, errors.New("groq api key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}

	return &Groq{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}, nil
}

// Generate runs one completion with a bounded deadline. The deadline is
// independent of any session lease the caller holds, so a slow generation
// cannot hold a lease open past its own budget.
func (g *Groq) Generate(ctx context.Context, prompt contractx.PromptContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(prompt.Messages)+1)
	if strings.TrimSpace(prompt.System) != "" {
		messages = append(messages, openaisdk.SystemMessage(prompt.System))
	}
	for _, m := range prompt.Messages {
		switch m.Role {
		case sessionx.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(m.Content))
		default:
			messages = append(messages, openaisdk.UserMessage(m.Content))
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(g.model),
		Messages:    messages,
		MaxTokens:   openaisdk.Int(g.maxTokens),
		Temperature: openaisdk.Float(g.temperature),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", contractx.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", contractx.ErrUpstreamError, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrUpstreamError)
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: blank completion", contractx.ErrUpstreamError)
	}
	return reply, nil
}
