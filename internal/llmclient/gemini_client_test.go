package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/browserpilot/browserpilot/internal/config"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		APIKey:      "test-api-key",
		Model:       "test-model",
		APITimeout:  5 * time.Second,
		MaxTokens:   256,
		Temperature: 0.2,
	}
}

func setupClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testLLMConfig()
	cfg.Endpoint = server.URL
	client, err := NewGeminiClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func candidateResponse(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + mustQuote(text) + `}]},"finishReason":"STOP"}]}`
}

func mustQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	cfg := testLLMConfig()
	cfg.APIKey = ""
	_, err := NewGeminiClient(cfg, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestNewGeminiClient_DefaultEndpoint(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Endpoint = ""
	client, err := NewGeminiClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Contains(t, client.endpoint, "test-model:generateContent")
}

func TestGenerate_Success(t *testing.T) {
	var gotAuth atomic.Value
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("x-goog-api-key"))

		var payload geminiRequestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Contents, 1)
		assert.Equal(t, "write a subject", payload.Contents[0].Parts[0].Text)
		require.NotNil(t, payload.SystemInstruction)
		assert.Empty(t, payload.GenerationConfig.ResponseMimeType)

		w.Write([]byte(candidateResponse("Quarterly planning sync")))
	})

	out, err := client.Generate(context.Background(), GenerationRequest{
		SystemPrompt: "You write email subjects.",
		UserPrompt:   "write a subject",
	})
	require.NoError(t, err)
	assert.Equal(t, "Quarterly planning sync", out)
	assert.Equal(t, "test-api-key", gotAuth.Load())
}

func TestGenerate_ForceJSONSetsMimeType(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload geminiRequestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "application/json", payload.GenerationConfig.ResponseMimeType)
		w.Write([]byte(candidateResponse(`{"action":"reply"}`)))
	})

	out, err := client.Generate(context.Background(), GenerationRequest{
		UserPrompt: "decide",
		ForceJSON:  true,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"reply"}`, out)
}

// 429 is transient: the client must retry and succeed on the second attempt.
func TestGenerate_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(candidateResponse("ok")))
	})

	out, err := client.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

// 400 is permanent: exactly one attempt.
func TestGenerate_BadRequestIsPermanent(t *testing.T) {
	var calls atomic.Int32
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad prompt"}`))
	})

	_, err := client.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerate_NoCandidatesIsPermanent(t *testing.T) {
	var calls atomic.Int32
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerate_ContextCancellation(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
}
