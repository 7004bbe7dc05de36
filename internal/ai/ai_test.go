package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestOpenAIClientSendsFullHistory(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hello Sam"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-test", srv.URL, log.New(io.Discard))
	reply, err := c.GetReply(context.Background(), []Message{
		{Role: RoleSystem, Text: "be a coach"},
		{Role: RoleSystem, Text: "SYSTEM_NOTE: new user"},
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "what is your name?"},
		{Role: RoleUser, Text: "Sam"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Sam", reply)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 5)
	assert.Equal(t, "system", got.Messages[1].Role)
	assert.Equal(t, "assistant", got.Messages[3].Role)
	assert.Equal(t, "Sam", got.Messages[4].Content)
}

func TestOpenAIClientEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-test", srv.URL, log.New(io.Discard))
	_, err := c.GetReply(context.Background(), []Message{{Role: RoleUser, Text: "hi"}})
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestOpenAIClientProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-test", srv.URL, log.New(io.Discard))
	_, err := c.GetReply(context.Background(), []Message{{Role: RoleUser, Text: "hi"}})
	assert.Error(t, err)
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]Message{
		{Role: RoleSystem, Text: "be a coach"},
		{Role: RoleSystem, Text: "only fitness"},
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "hello"},
		{Role: RoleSystem, Text: "SYSTEM_NOTE: returning user"},
	})

	assert.Equal(t, "be a coach\n\nonly fitness", system)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "user", contents[2].Role)
	assert.Equal(t, "SYSTEM_NOTE: returning user", contents[2].Parts[0].Text)
}

func TestGeminiTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Great, "},
				{Text: "let's start."},
			}},
		}},
	}
	assert.Equal(t, "Great, let's start.", geminiText(resp))
	assert.Equal(t, "", geminiText(nil))
}
