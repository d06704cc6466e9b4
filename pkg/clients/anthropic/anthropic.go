package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/bakery/internal/config"
)

const (
	apiVersion = "2023-06-01"
	maxTokens  = 64
)

const systemPrompt = `You translate messages sent by bakery staff into one bot command.

The bot understands exactly these commands:
- made <product> <quantity>   (items baked, e.g. "made croissant 12")
- sold <product> <quantity>   (items sold, e.g. "sold baguette 3")
- today                       (today's production and sales summary)
- help                        (list the commands)

RULES:
- Reply with ONE line holding the command and nothing else.
- Quantities are whole numbers written with digits ("a dozen" is 12).
- Product names are lowercase, singular, with spaces kept.
- If the message does not match any command, reply with: unknown`

// Client turns free-text chat messages into bot commands.
type Client interface {
	TranslateToCommand(ctx context.Context, input string) (string, error)
}

type anthropicClient struct {
	httpClient *resty.Client
	model      string
}

// NewClient creates a configured Anthropic client.
func NewClient(cfg config.AIConfig) Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.anthropic.com"
	}

	client := resty.New().
		SetBaseURL(base).
		SetHeader("x-api-key", cfg.AnthropicKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(15 * time.Second)

	return &anthropicClient{httpClient: client, model: cfg.Model}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// TranslateToCommand returns a single command line such as "made croissant 12",
// or "unknown" when the message is not about production or sales.
func (c *anthropicClient) TranslateToCommand(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty input")
	}

	reqBody := messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []Message{{Role: "user", Content: input}},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anthropic api error: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	if len(respBody.Content) == 0 {
		return "", fmt.Errorf("empty response from ai")
	}

	line := firstLine(respBody.Content[0].Text)
	if line == "" {
		return "", fmt.Errorf("empty response from ai")
	}
	return line, nil
}

// firstLine drops markdown fences and returns the first non-blank line.
func firstLine(text string) string {
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "```") {
			continue
		}
		l = strings.TrimSpace(strings.Trim(l, "`"))
		if l == "" {
			continue
		}
		return strings.ToLower(l)
	}
	return ""
}
