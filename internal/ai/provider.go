package ai

import (
	"context"
	"errors"
	"fmt"

	"legiseye/internal/config"
	"legiseye/internal/metrics"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrEmptyInput = errors.New("llm input is empty")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer produces chat completions.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	StreamComplete(ctx context.Context, messages []ChatMessage, onChunk func(chunk string) error) (string, error)
	Model() string
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider is a model backend that can both complete and embed.
type Provider interface {
	Completer
	Embedder
	Name() string
}

// NewProvider builds the configured provider wrapped with call metrics.
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case "openai":
		p = NewOpenAICompatibleClient(ChatConfig{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
		})
	case "gemini":
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	return Instrument(p), nil
}

type instrumented struct {
	Provider
}

// Instrument counts every call to p in metrics.LLMCalls.
func Instrument(p Provider) Provider {
	return &instrumented{Provider: p}
}

func (i *instrumented) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	out, err := i.Provider.Complete(ctx, messages)
	metrics.LLMCalls.WithLabelValues(i.Name(), "complete", metrics.Result(err)).Inc()
	return out, err
}

func (i *instrumented) StreamComplete(ctx context.Context, messages []ChatMessage, onChunk func(string) error) (string, error) {
	out, err := i.Provider.StreamComplete(ctx, messages, onChunk)
	metrics.LLMCalls.WithLabelValues(i.Name(), "stream", metrics.Result(err)).Inc()
	return out, err
}

func (i *instrumented) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := i.Provider.Embed(ctx, text)
	metrics.LLMCalls.WithLabelValues(i.Name(), "embed", metrics.Result(err)).Inc()
	return out, err
}

func (i *instrumented) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := i.Provider.EmbedBatch(ctx, texts)
	metrics.LLMCalls.WithLabelValues(i.Name(), "embed", metrics.Result(err)).Inc()
	return out, err
}
