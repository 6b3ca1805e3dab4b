package instruct

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowagent"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCompleter struct {
	content string
	err     error
	got     openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.got = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content},
		}},
	}, nil
}

const validAnswer = `{
  "nodes": [
    {"id": "A", "name": "Webhook", "type": "webhook-trigger"},
    {"id": "B", "name": "Search news", "type": "search-integration"}
  ],
  "edges": [{"source": "A", "target": "B"}],
  "triggers": ["A"],
  "candidateProviders": [{"nodeId": "B", "capabilityKind": "search", "recommendedProvider": "brave-search-mcp"}]
}`

func TestInterpretSendsPromptAndDecodes(t *testing.T) {
	fc := &fakeCompleter{content: validAnswer}
	in := NewWithClient(Config{}, fc, discardLogger())

	s, err := in.Interpret(context.Background(), "when a webhook fires, search the news")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, fc.got.Model)
	require.Len(t, fc.got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, fc.got.Messages[0].Role)
	assert.Equal(t, SystemPrompt, fc.got.Messages[0].Content)
	assert.Equal(t, "when a webhook fires, search the news", fc.got.Messages[1].Content)
	assert.InDelta(t, 0.1, fc.got.Temperature, 1e-6)
	require.NotNil(t, fc.got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, fc.got.ResponseFormat.Type)

	require.Len(t, s.Nodes, 2)
	assert.Equal(t, "A", s.Nodes[0].ID)
	assert.Equal(t, []flowagent.Edge{{Source: "A", Target: "B"}}, s.Edges)
	assert.Equal(t, []string{"A"}, s.Triggers)
	assert.Equal(t, flowagent.CapabilitySearch, s.CandidateProviders[0].CapabilityKind)
}

func TestInterpretFailures(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{"upstream error", &fakeCompleter{err: errors.New("503")}},
		{"empty", &fakeCompleter{content: "  "}},
		{"not json", &fakeCompleter{content: "sure, here is your workflow"}},
		{"wrong shape", &fakeCompleter{content: `{"nodes": "A"}`}},
		{"no nodes", &fakeCompleter{content: `{"edges": []}`}},
		{"node without id", &fakeCompleter{content: `{"nodes": [{"name": "x"}]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewWithClient(Config{}, tt.fc, discardLogger())
			_, err := in.Interpret(context.Background(), "do things")
			require.Error(t, err)
			assert.ErrorIs(t, err, flowagent.ErrInterpretation)
			assert.Equal(t, FailedMessage, err.Error())
		})
	}
}

func TestInterpretFillsDefaults(t *testing.T) {
	fc := &fakeCompleter{content: `{"nodes": [{"id": "only"}]}`}
	s, err := NewWithClient(Config{Model: "gpt-4o"}, fc, discardLogger()).Interpret(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", fc.got.Model)
	assert.Equal(t, "only", s.Nodes[0].Name)
	assert.NotNil(t, s.Edges)
	assert.NotNil(t, s.CandidateProviders)
	assert.Nil(t, s.Triggers)
}

func TestInterpretOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": validAnswer}}},
		})
	}))
	defer srv.Close()

	in := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Timeout: 5 * time.Second}, discardLogger())
	s, err := in.Interpret(context.Background(), "search the news")
	require.NoError(t, err)
	assert.Len(t, s.Nodes, 2)
}

func TestInterpretHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	in := New(Config{APIKey: "nope", BaseURL: srv.URL + "/v1"}, discardLogger())
	_, err := in.Interpret(context.Background(), "x")
	assert.ErrorIs(t, err, flowagent.ErrInterpretation)
}
