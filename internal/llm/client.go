// Package llm talks to the hosted language model through its
// OpenAI-compatible API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

var (
	// ErrEmptyCompletion is returned when the model answers without any text.
	ErrEmptyCompletion = errors.New("model returned an empty completion")
	// ErrMissingAPIKey is returned by NewClient when no key is configured.
	ErrMissingAPIKey = errors.New("model API key is required")
)

// Completion is the text the model produced for one prompt.
type Completion struct {
	Text             string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Config configures a Client.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float32
	TranscribeModel string
	HTTPClient      *http.Client
}

// Client invokes chat completions and audio transcriptions.
type Client struct {
	api             *openai.Client
	model           string
	temperature     float32
	transcribeModel string
}

// NewClient creates a model client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = openai.Whisper1
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		apiCfg.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		api:             openai.NewClientWithConfig(apiCfg),
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		transcribeModel: cfg.TranscribeModel,
	}, nil
}

// Model returns the configured chat model name.
func (c *Client) Model() string { return c.model }

// Invoke sends prompt as a single user message and returns the first choice.
func (c *Client) Invoke(ctx context.Context, prompt string) (Completion, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, ErrEmptyCompletion
	}

	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return Completion{}, ErrEmptyCompletion
	}

	return Completion{
		Text:             text,
		Model:            resp.Model,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Transcribe converts recorded speech to text. Any failure yields "".
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) string {
	if filename == "" {
		filename = "recording.webm"
	}
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		slog.Warn("transcription failed", "model", c.transcribeModel, "error", err)
		return ""
	}
	return strings.TrimSpace(resp.Text)
}
