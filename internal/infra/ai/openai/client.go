package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/infra/ai/prompt"
)

const (
	maxTokens    = 4096
	defaultModel = "gpt-4o"
	temperature  = 0.2
)

// Client is the alternate provider. Chat completions carry no grounding
// metadata, so reports built through it have no sources.
type Client struct {
	*openai.Client
	Model string
}

var _ report.Client = (*Client)(nil)

func NewClient(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Generate(ctx context.Context, p string) (report.RawResponse, error) {
	text, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: p},
	})
	if err != nil {
		return report.RawResponse{}, err
	}
	return report.RawResponse{Text: text}, nil
}

func (c *Client) Ask(ctx context.Context, req report.FollowUpRequest) (string, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.BuildFollowUpInstruction(req.Content, req.Language)},
	}
	msgs = append(msgs, toMessages(req.History)...)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Question})
	return c.complete(ctx, msgs)
}

// toMessages skips failed exchanges (the error turn and the question before it).
func toMessages(turns []report.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, m := range turns {
		if m.Role == report.RoleModel && m.Failed {
			if n := len(out); n > 0 && out[n-1].Role == openai.ChatMessageRoleUser {
				out = out[:n-1]
			}
			continue
		}
		role := openai.ChatMessageRoleUser
		if m.Role == report.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	return out
}

func (c *Client) complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	// reasoning models (o1/o3/o4/gpt-5*) pakai MaxCompletionTokens dan tidak terima temperature
	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = temperature
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("chat completion: %w: %s", report.ErrQuotaExceeded, apiErr.Message)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
