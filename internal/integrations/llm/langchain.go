package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"supporttriage/internal/httpx"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOllamaModel = "llama3.1"
)

// LangChainProvider adapts any langchaingo model.
type LangChainProvider struct {
	model    llms.Model
	name     string
	provider string
}

func NewLangChainProvider(model llms.Model, name, provider string) *LangChainProvider {
	return &LangChainProvider{model: model, name: name, provider: provider}
}

func NewOpenAIProvider(apiKey, model string) (*LangChainProvider, error) {
	if model == "" {
		model = defaultOpenAIModel
	}
	m, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithHTTPClient(httpx.ExternalHTTPClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return NewLangChainProvider(m, model, "openai"), nil
}

func NewOllamaProvider(host, model string) (*LangChainProvider, error) {
	if model == "" {
		model = defaultOllamaModel
	}
	m, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(host),
		ollama.WithFormat("json"),
		ollama.WithHTTPClient(httpx.ExternalHTTPClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return NewLangChainProvider(m, model, "ollama"), nil
}

func (p *LangChainProvider) Name() string { return p.name }

func (p *LangChainProvider) Complete(ctx context.Context, req Request) (Response, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := p.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		slog.Error("llm langchain error", "provider", p.provider, "model", p.name, "error", err)
		return Response{}, fmt.Errorf("%s API error: %w", p.provider, err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in %s response", p.provider)
	}

	choice := resp.Choices[0]
	usage := Usage{
		InputTokens:  intInfo(choice.GenerationInfo, "PromptTokens"),
		OutputTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
	}
	slog.Info("llm langchain response",
		"provider", p.provider,
		"model", p.name,
		"size", len(choice.Content),
		"tokens_in", usage.InputTokens,
		"tokens_out", usage.OutputTokens)
	return Response{Text: choice.Content, Model: p.name, Usage: usage}, nil
}

func intInfo(info map[string]any, key string) int64 {
	switch v := info[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}
