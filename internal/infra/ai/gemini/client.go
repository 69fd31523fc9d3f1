package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/infra/ai/prompt"
)

const (
	DefaultModel       = "gemini-3-flash-preview"
	DefaultTemperature = float32(0.2)
)

type Options struct {
	APIKey      string
	Model       string
	Temperature float32
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
}

// Client serves report generation and follow-up chat, both with Google Search grounding.
type Client struct {
	genai       *genai.Client
	model       string
	temperature float32
}

var _ report.Client = (*Client)(nil)

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	c := &Client{genai: gc, model: opts.Model, temperature: opts.Temperature}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.temperature == 0 {
		c.temperature = DefaultTemperature
	}
	return c, nil
}

func (c *Client) searchTools() []*genai.Tool {
	return []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
}

// Generate sends one grounded request; no retry.
func (c *Client) Generate(ctx context.Context, p string) (report.RawResponse, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(p), &genai.GenerateContentConfig{
		Tools:       c.searchTools(),
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		return report.RawResponse{}, mapError("generate content", err)
	}
	return report.RawResponse{Text: resp.Text(), Chunks: groundingChunks(resp)}, nil
}

// Ask replays the report's chat history into a fresh chat and sends the question.
func (c *Client) Ask(ctx context.Context, req report.FollowUpRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Tools:             c.searchTools(),
		Temperature:       genai.Ptr(c.temperature),
		SystemInstruction: genai.NewContentFromText(prompt.BuildFollowUpInstruction(req.Content, req.Language), genai.RoleUser),
	}
	chat, err := c.genai.Chats.Create(ctx, c.model, cfg, toHistory(req.History))
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: req.Question})
	if err != nil {
		return "", mapError("send message", err)
	}
	return resp.Text(), nil
}

// toHistory converts stored turns. A failed model turn becomes an empty
// content so the SDK drops it together with the question that caused it.
func toHistory(turns []report.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		switch {
		case m.Role == report.RoleModel && m.Failed:
			out = append(out, &genai.Content{Role: genai.RoleModel})
		case m.Role == report.RoleModel:
			out = append(out, genai.NewContentFromText(m.Text, genai.RoleModel))
		default:
			out = append(out, genai.NewContentFromText(m.Text, genai.RoleUser))
		}
	}
	return out
}

func groundingChunks(resp *genai.GenerateContentResponse) []report.Chunk {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	md := resp.Candidates[0].GroundingMetadata
	if md == nil {
		return nil
	}
	chunks := make([]report.Chunk, 0, len(md.GroundingChunks))
	for _, gc := range md.GroundingChunks {
		if gc == nil {
			continue
		}
		var ch report.Chunk
		if gc.Web != nil {
			ch.Web = &report.WebRef{URI: gc.Web.URI, Title: gc.Web.Title}
		}
		chunks = append(chunks, ch)
	}
	return chunks
}

// mapError keeps the provider message and tags quota failures.
func mapError(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%s: %w: %s", op, report.ErrQuotaExceeded, apiErr.Message)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("%s: %s", op, apiErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
