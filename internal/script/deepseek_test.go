package script_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/podcast-service/internal/script"
)

const testTimeout = 5 * time.Second

func TestDeepSeekClient_Generate_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "/chat/completions", request.URL.Path)
			assert.Equal(t, "Bearer test-key", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var payload map[string]any

			err := json.NewDecoder(request.Body).Decode(&payload)
			require.NoError(t, err)
			assert.Equal(t, "deepseek-chat", payload["model"])
			assert.InEpsilon(t, 0.7, payload["temperature"], 0.001)
			assert.InEpsilon(t, float64(1000), payload["max_tokens"], 0.001)

			responseWriter.Header().Set("Content-Type", "application/json")
			_, _ = responseWriter.Write([]byte(`{
				"choices": [{"message": {"role": "assistant", "content": "A generated script."}}]
			}`))
		}))
	defer server.Close()

	client := script.NewDeepSeekClient(server.URL, "test-key", "deepseek-chat", 0.7, testTimeout)

	text, err := client.Generate(context.Background(), "a prompt", 1000)
	require.NoError(t, err)
	assert.Equal(t, "A generated script.", text)
}

func TestDeepSeekClient_Generate_MissingAPIKey(t *testing.T) {
	t.Parallel()

	client := script.NewDeepSeekClient("http://localhost:1", "", "deepseek-chat", 0.7, testTimeout)

	_, err := client.Generate(context.Background(), "a prompt", 100)
	require.ErrorIs(t, err, script.ErrAPIKeyMissing)
}

func TestDeepSeekClient_Generate_NonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			http.Error(responseWriter, `{"error": "insufficient balance"}`, http.StatusPaymentRequired)
		}))
	defer server.Close()

	client := script.NewDeepSeekClient(server.URL, "test-key", "deepseek-chat", 0.7, testTimeout)

	_, err := client.Generate(context.Background(), "a prompt", 100)
	require.ErrorIs(t, err, script.ErrLLMStatus)
}

func TestDeepSeekClient_Generate_NoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "application/json")
			_, _ = responseWriter.Write([]byte(`{"choices": []}`))
		}))
	defer server.Close()

	client := script.NewDeepSeekClient(server.URL, "test-key", "deepseek-chat", 0.7, testTimeout)

	_, err := client.Generate(context.Background(), "a prompt", 100)
	require.ErrorIs(t, err, script.ErrEmptyResponse)
}
