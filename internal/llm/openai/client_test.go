package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/llm"
)

type capturedRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	TopP           float32           `json:"top_p"`
	MaxTokens      int               `json:"max_tokens"`
}

func newTestServer(t *testing.T, content string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractReport(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, `  {"Patient Details":{},"Tests":[]}  `, &got)

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Model: "m"}, nil)
	raw, err := c.ExtractReport(context.Background(), llm.ExtractRequest{OCRText: "Hemoglobin 13.2 g/dL 12.0-15.5"})
	require.NoError(t, err)
	assert.Equal(t, `{"Patient Details":{},"Tests":[]}`, string(raw))

	assert.Equal(t, "m", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "user", got.Messages[2].Role)
	assert.Contains(t, got.Messages[2].Content, "Hemoglobin 13.2")
}

func TestComplete(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, "Hello Jane", &got)

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"}, nil)
	out, err := c.Complete(context.Background(), llm.ChatRequest{
		Messages:  []entity.Turn{{Role: "system", Content: "sys"}, {Role: "user", Content: "hi"}},
		TopP:      0.9,
		MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Jane", out)
	assert.Len(t, got.Messages, 2)
	assert.InDelta(t, 0.9, got.TopP, 0.001)
	assert.Equal(t, 100, got.MaxTokens)
	assert.Nil(t, got.ResponseFormat)
}

func TestErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bad/chat/completions":
			http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
		case "/empty/chat/completions":
			_, _ = w.Write([]byte(`{"choices":[]}`))
		case "/slow/chat/completions":
			time.Sleep(200 * time.Millisecond)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/bad"}, nil).ExtractReport(ctx, llm.ExtractRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai status 401")

	_, err = NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/empty"}, nil).ExtractReport(ctx, llm.ExtractRequest{})
	assert.ErrorContains(t, err, "no choices")

	_, err = NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/slow", Timeout: 20 * time.Millisecond}, nil).ExtractReport(ctx, llm.ExtractRequest{})
	assert.ErrorContains(t, err, "openai http error")
}
