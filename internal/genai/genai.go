// Package genai provides the OpenAI-backed chat completion client used
// for the free-form concierge dialogue.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default client configuration.
const (
	// DefaultTimeout bounds a single completion call. Expiry is reported
	// like any other provider failure.
	DefaultTimeout = 30 * time.Second
	// DefaultTemperature keeps price/condition answers close to the facts.
	DefaultTemperature = 0.3
)

// ErrNoChoicesReturned indicates the provider returned an empty choice list.
var ErrNoChoicesReturned = errors.New("no choices returned")

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChatService adapts the OpenAI SDK to chatService.
type openaiChatService struct {
	client openai.Client
}

func (s openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey      string
	Model       openai.ChatModel
	Timeout     time.Duration
	Temperature float64
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding $OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout sets the per-call completion timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat        chatService
	model       openai.ChatModel
	timeout     time.Duration
	temperature float64
}

// NewClient initializes a GenAI client. The API key comes from options or
// the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:       openai.ChatModelGPT4oMini,
		Timeout:     DefaultTimeout,
		Temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	cli := openai.NewClient(option.WithAPIKey(apiKey))
	slog.Debug("genai.NewClient: client created", "model", cfg.Model, "timeout", cfg.Timeout)
	return &Client{
		chat:        openaiChatService{client: cli},
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
	}, nil
}

// Complete runs one chat completion over the prepared message sequence and
// returns the trimmed answer text.
func (c *Client) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		slog.Error("genai.Complete: completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.Complete: empty choice list")
		return "", ErrNoChoicesReturned
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("genai.Complete: completion succeeded", "answerLength", len(answer))
	return answer, nil
}
