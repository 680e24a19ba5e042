package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsMissingAPIKey(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestAskRejectsOverlongPrompt(t *testing.T) {
	c, err := New(Config{APIKey: "k", BaseURL: "http://example.invalid", MaxRPM: 15}, nil)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), strings.Repeat("a", maxPromptCodepoints+1), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadRequest")
}

func TestAskRejectsBannedSubstring(t *testing.T) {
	c, err := New(Config{APIKey: "k", BaseURL: "http://example.invalid", MaxRPM: 15}, nil)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "please DROP TABLE users", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadRequest")
}

func TestAskRoundTripsAgainstFakeServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"hello"}`))
	}))
	defer server.Close()

	c, err := New(Config{APIKey: "k", BaseURL: server.URL, MaxRPM: 15, MaxRetries: 1}, nil)
	require.NoError(t, err)

	text, err := c.Ask(context.Background(), "ping", false)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestAskJSONStripsCodeFence(t *testing.T) {
	wrapped := "Here you go:\n\n```json\n{\"ok\":true}\n```"
	payload, err := json.Marshal(askResponse{Text: wrapped})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	c, err := New(Config{APIKey: "k", BaseURL: server.URL, MaxRPM: 15, MaxRetries: 1}, nil)
	require.NoError(t, err)

	var out struct {
		OK bool `json:"ok"`
	}
	err = c.AskJSON(context.Background(), "ping", false, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestStripFencesGeneric(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
