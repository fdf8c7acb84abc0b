package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-agents/internal/core/ai/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "served-model",
			"choices": []any{
				map[string]any{"message": map[string]any{"content": "A briefing."}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13},
		})
	}))
	defer server.Close()

	client := NewClient(provider.Config{APIKey: "test-key", BaseURL: server.URL, Model: "default-model", MaxTokens: 500})
	temp := 0.2
	req := provider.UserPrompt("write a briefing")
	req.Temperature = &temp

	resp, err := client.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "A briefing.", resp.Content)
	assert.Equal(t, "served-model", resp.Model)
	assert.Equal(t, 13, resp.Usage.TotalTokens)

	assert.Equal(t, "default-model", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "write a briefing", got.Messages[0].Content)
}

func TestGenerateModelOverride(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer server.Close()

	client := NewClient(provider.Config{BaseURL: server.URL, Model: "default-model"})
	req := provider.UserPrompt("x")
	req.Model = "stage-model"
	req.MaxTokens = 42

	resp, err := client.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "stage-model", got.Model)
	assert.Equal(t, 42, got.MaxTokens)
	assert.Nil(t, got.Temperature)
	assert.Equal(t, "stage-model", resp.Model)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantAPI bool
		wantErr error
	}{
		{name: "unauthorized plain error", status: http.StatusUnauthorized, body: `{"error":"unauthorized"}`, wantAPI: true},
		{name: "structured error", status: http.StatusTooManyRequests, body: `{"error":{"message":"rate limited","code":429}}`, wantAPI: true},
		{name: "html error page", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantAPI: true},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`, wantErr: provider.ErrEmptyResponse},
		{name: "garbage body", status: http.StatusOK, body: `not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(provider.Config{BaseURL: server.URL, Model: "m"})
			resp, err := client.Generate(context.Background(), provider.UserPrompt("x"))
			require.Error(t, err)
			assert.Nil(t, resp)

			if tc.wantAPI {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tc.status, apiErr.StatusCode)
			}
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestGenerateHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(provider.Config{BaseURL: server.URL, Model: "m", Timeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, provider.UserPrompt("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDefaults(t *testing.T) {
	client := NewClient(provider.Config{Model: "m"})
	assert.Equal(t, "openrouter", client.Name())
	assert.Equal(t, "m", client.GetModel())
	assert.Equal(t, defaultTimeout, client.GetTimeout())
	assert.NoError(t, client.Close())
}
