package ai

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-io/fluxion/pkg/protocol"
)

func testClient() *Client {
	return NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestChat_Success(t *testing.T) {
	var captured chatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"content": "All clear."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer server.Close()

	client := testClient()

	resp, err := client.Chat(t.Context(), "openai", protocol.ChatRequest{
		Model: "gpt-4o-mini",
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: "You summarize."},
			{Role: "user", Content: "Summarize this."},
		},
		Temperature: 0.2,
	}, "test-key", server.URL)
	require.NoError(t, err)

	assert.Equal(t, "All clear.", resp.Content)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 16, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.Len(t, captured.Messages, 2)
	assert.InDelta(t, 0.2, captured.Temperature, 0.0001)
}

func TestChat_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	client := testClient()

	_, err := client.Chat(t.Context(), "openai", protocol.ChatRequest{Model: "gpt-4o-mini"}, "bad-key", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
	assert.Contains(t, err.Error(), "401")
}

func TestChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"model": "gpt-4o-mini", "choices": []}`))
	}))
	defer server.Close()

	client := testClient()

	_, err := client.Chat(t.Context(), "openai", protocol.ChatRequest{Model: "gpt-4o-mini"}, "key", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestChat_UnknownProviderWithoutBaseURL(t *testing.T) {
	client := testClient()

	_, err := client.Chat(t.Context(), "acme-llm", protocol.ChatRequest{Model: "m1"}, "key", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown AI provider")
}

func TestChat_FallsBackToRequestModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "hi"}}]}`))
	}))
	defer server.Close()

	client := testClient()

	resp, err := client.Chat(t.Context(), "openai", protocol.ChatRequest{Model: "gpt-4o"}, "key", server.URL)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", resp.Model)
}
