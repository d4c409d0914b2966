package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/prakriti/internal/vision"
)

func newTestServer(t *testing.T, text string, captured *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, captured)
		}
		resp := map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
			"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClaudeAssess(t *testing.T) {
	var req map[string]any
	server := newTestServer(t, "plastic | 3 bags | bottles near the park gate", &req)

	analyzer := NewClaudeAnalyzer("sk-test", "claude-test", anthropic.WithBaseURL(server.URL))

	got, err := analyzer.Assess(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "plastic", got.Category)
	assert.Equal(t, "3 bags", got.Volume)
	assert.Equal(t, "bottles near the park gate", got.Notes)

	assert.Equal(t, "claude-test", req["model"])
	assert.Contains(t, string(mustJSON(t, req["messages"])), vision.AssessmentPrompt[:20])
}

func TestClaudeAssessUnparsable(t *testing.T) {
	server := newTestServer(t, "I cannot tell what is in this photo.", nil)
	analyzer := NewClaudeAnalyzer("sk-test", "claude-test", anthropic.WithBaseURL(server.URL))

	_, err := analyzer.Assess(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/png")
	assert.ErrorIs(t, err, vision.ErrNoAssessment)
}

func TestClaudeAssessAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	analyzer := NewClaudeAnalyzer("sk-test", "claude-test", anthropic.WithBaseURL(server.URL))

	_, err := analyzer.Assess(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	assert.Error(t, err)
}

func TestClaudeAssessReadError(t *testing.T) {
	analyzer := NewClaudeAnalyzer("sk-test", "claude-test")

	_, err := analyzer.Assess(context.Background(), &errReader{}, "image/jpeg")
	assert.Error(t, err)
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "image/png", normaliseMIME("image/png"))
	assert.Equal(t, "image/webp", normaliseMIME("image/webp"))
	assert.Equal(t, "image/jpeg", normaliseMIME("application/octet-stream"))
}

// errReader always returns an error on Read.
type errReader struct{}

func (e *errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
