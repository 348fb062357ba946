package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mekaelwr/receipt-analysis-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripJSONWrapper(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain JSON object",
			input: `{"items": []}`,
			want:  `{"items": []}`,
		},
		{
			name:  "markdown fenced",
			input: "```json\n{\"items\": [1]}\n```",
			want:  `{"items": [1]}`,
		},
		{
			name:  "fence without language tag",
			input: "```\n[1, 2]\n```",
			want:  `[1, 2]`,
		},
		{
			name:  "prose around the payload",
			input: `Here is the extracted receipt: {"total": 9.99} Hope that helps!`,
			want:  `{"total": 9.99}`,
		},
		{
			name:  "braces inside strings",
			input: `note {"name": "a {weird} item"} trailing`,
			want:  `{"name": "a {weird} item"}`,
		},
		{
			name:  "nested objects",
			input: `{"a": {"b": {"c": 1}}}`,
			want:  `{"a": {"b": {"c": 1}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripJSONWrapper(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "result should be valid JSON")
		})
	}
}

// newTestServer returns a chat completions stub that replies with the
// given message content.
func newTestServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestComplete(t *testing.T) {
	t.Run("returns stripped JSON payload", func(t *testing.T) {
		server := newTestServer(t, "```json\n{\"ok\": true}\n```", http.StatusOK)
		defer server.Close()

		client := NewClient("test-key", server.URL, "test-model", "test-vision", 100)
		got, err := client.Complete(context.Background(), "normalize these")
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok": true}`, got)
	})

	t.Run("wraps API failure in sentinel", func(t *testing.T) {
		server := newTestServer(t, "", http.StatusInternalServerError)
		defer server.Close()

		client := NewClient("test-key", server.URL, "test-model", "test-vision", 100)
		_, err := client.Complete(context.Background(), "normalize these")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrAIService))
	})

	t.Run("empty completion is an error", func(t *testing.T) {
		server := newTestServer(t, "", http.StatusOK)
		defer server.Close()

		client := NewClient("test-key", server.URL, "test-model", "test-vision", 100)
		_, err := client.Complete(context.Background(), "normalize these")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrAIService))
	})
}

func TestExtractReceipt(t *testing.T) {
	extracted := `{"store_name": "ALDI", "date": "2025-06-01", "items": [{"name": "TRPNCA OJ", "price": 5.99}], "subtotal": 5.99, "tax": 0.35, "total": 6.34}`

	t.Run("parses fenced extraction output", func(t *testing.T) {
		server := newTestServer(t, "Sure! ```json\n"+extracted+"\n```", http.StatusOK)
		defer server.Close()

		client := NewClient("test-key", server.URL, "test-model", "test-vision", 100)
		got, err := client.ExtractReceipt(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "ALDI", got.StoreName)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "TRPNCA OJ", got.Items[0].Name)
		assert.Equal(t, 1, got.Items[0].Quantity, "missing quantity defaults to 1")
	})

	t.Run("no items is an extraction failure", func(t *testing.T) {
		server := newTestServer(t, `{"store_name": "ALDI", "items": []}`, http.StatusOK)
		defer server.Close()

		client := NewClient("test-key", server.URL, "test-model", "test-vision", 100)
		_, err := client.ExtractReceipt(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrExtraction))
	})

	t.Run("non-JSON output is an extraction failure", func(t *testing.T) {
		server := newTestServer(t, "I could not read this receipt, sorry.", http.StatusOK)
		defer server.Close()

		client := NewClient("test-key", server.URL, "test-model", "test-vision", 100)
		_, err := client.ExtractReceipt(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrExtraction))
	})

	t.Run("empty image rejected before any call", func(t *testing.T) {
		client := NewClient("test-key", "http://unused", "test-model", "test-vision", 100)
		_, err := client.ExtractReceipt(context.Background(), nil, "image/jpeg")
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}
