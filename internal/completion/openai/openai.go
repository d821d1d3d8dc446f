// Package openai provides a completion client backed by the OpenAI chat
// completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/umarrg/chatbot/internal/chat"
	"github.com/umarrg/chatbot/internal/completion"
)

// defaultTimeout bounds a single completion request when no timeout is
// configured. The pipeline itself never cancels an in-flight call.
const defaultTimeout = 30 * time.Second

// Client implements completion.Client using the OpenAI API with fixed
// model parameters supplied at construction.
type Client struct {
	client      oai.Client
	model       string
	maxTokens   int
	temperature float64
}

// config holds optional configuration for the client.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Client.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI completion client.
func New(apiKey, model string, maxTokens int, temperature float64, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{timeout: defaultTimeout}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
		// The relay never retries upstream calls; failures are classified
		// and surfaced to the user instead.
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Client{
		client:      oai.NewClient(reqOpts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// Complete implements completion.Client. It sends the full transcript as
// ordered role/content pairs and extracts the first choice's message text.
func (c *Client) Complete(ctx context.Context, t chat.Transcript) (string, error) {
	params, err := buildParams(t)
	if err != nil {
		return "", &completion.Error{Kind: completion.KindUnknown, Cause: err}
	}
	params.Model = shared.ChatModel(c.model)
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(c.maxTokens))
	}
	if c.temperature != 0 {
		params.Temperature = param.NewOpt(c.temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &completion.Error{
			Kind:  completion.KindUnknown,
			Cause: errors.New("empty choices in response"),
		}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify wraps an SDK error into a completion.Error using the
// upstream-reported status category. Errors without a status (network
// failure, timeout) classify as unknown.
func classify(err error) *completion.Error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return &completion.Error{
			Kind:       completion.Classify(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Cause:      err,
		}
	}
	return &completion.Error{Kind: completion.KindUnknown, Cause: err}
}

// buildParams converts a transcript into OpenAI SDK message params.
func buildParams(t chat.Transcript) (oai.ChatCompletionNewParams, error) {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(t))
	for _, turn := range t {
		switch turn.Role {
		case chat.RoleSystem:
			messages = append(messages, oai.SystemMessage(turn.Content))
		case chat.RoleUser:
			messages = append(messages, oai.UserMessage(turn.Content))
		case chat.RoleAssistant:
			messages = append(messages, oai.AssistantMessage(turn.Content))
		default:
			return oai.ChatCompletionNewParams{}, fmt.Errorf("openai: unknown turn role %q", turn.Role)
		}
	}
	return oai.ChatCompletionNewParams{Messages: messages}, nil
}
