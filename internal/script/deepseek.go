// Package script implements the script composition stage: a chat-completions
// client for the generative text service, prompt construction calibrated to
// the learner's level, and cleanup of the returned script before synthesis.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiChatCompletions = "/chat/completions"

const systemMessage = "You are an expert podcast host. Create engaging, informative content."

// Static errors.
var (
	ErrAPIKeyMissing = errors.New("generative service API key is not configured")
	ErrLLMStatus     = errors.New("generative service returned non-OK status")
	ErrEmptyResponse = errors.New("generative service returned no choices")
)

// chatMessage is one message of a chat-completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// DeepSeekClient calls a chat-completions endpoint (DeepSeek exposes the
// OpenAI wire format) to generate podcast scripts.
type DeepSeekClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

// NewDeepSeekClient creates a chat-completions client. The baseURL carries no
// trailing path (e.g. "https://api.deepseek.com").
func NewDeepSeekClient(
	baseURL, apiKey, model string,
	temperature float64,
	timeout time.Duration,
) *DeepSeekClient {
	return &DeepSeekClient{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
	}
}

// Generate sends one chat-completions request and returns the raw text of the
// first choice. A response with no choices is an error; the pipeline never
// retries this stage.
func (c *DeepSeekClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", ErrAPIKeyMissing
	}

	requestBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := c.baseURL + apiChatCompletions

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request to generative service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return "", fmt.Errorf("%w: %s: %s", ErrLLMStatus, resp.Status, string(body))
	}

	var decoded chatResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(decoded.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return decoded.Choices[0].Message.Content, nil
}
