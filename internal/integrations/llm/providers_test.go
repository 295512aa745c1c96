package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, o := range options {
		o(&m.opts)
	}
	return m.resp, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLangChainProviderComplete(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        `{"prioridad":"P2"}`,
		GenerationInfo: map[string]any{"PromptTokens": 120, "CompletionTokens": 30},
	}}}}
	p := NewLangChainProvider(model, "gpt-4o-mini", "openai")

	resp, err := p.Complete(context.Background(), Request{
		System: SystemPrompt, Prompt: "ticket", Temperature: 0.3, MaxTokens: 512, JSON: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"prioridad":"P2"}`, resp.Text)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Equal(t, int64(150), resp.Usage.TotalTokens())
	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.True(t, model.opts.JSONMode)
	assert.Equal(t, 0.3, model.opts.Temperature)
	assert.Equal(t, 512, model.opts.MaxTokens)
}

func TestLangChainProviderNoChoices(t *testing.T) {
	p := NewLangChainProvider(&fakeModel{resp: &llms.ContentResponse{}}, "m", "ollama")
	_, err := p.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestAnthropicProviderComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "{\"prioridad\":\"P1\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 42, "output_tokens": 7}
		}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", "claude-test",
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0))
	resp, err := p.Complete(context.Background(), Request{System: SystemPrompt, Prompt: "ticket", Temperature: 0.3, MaxTokens: 256})
	require.NoError(t, err)

	assert.Equal(t, `{"prioridad":"P1"}`, resp.Text)
	assert.Equal(t, int64(42), resp.Usage.InputTokens)
	assert.Equal(t, "claude-test", body["model"])
	assert.Equal(t, 0.3, body["temperature"])
	assert.EqualValues(t, 256, body["max_tokens"])
}

func TestAnthropicProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	assert.Equal(t, defaultAnthropicModel, p.Name())
	_, err := p.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.False(t, isUnavailable(err))
}
