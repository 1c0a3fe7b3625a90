// Package speech implements the audio synthesis stage: a Google Cloud
// Text-to-Speech REST client and the synthesizer that persists the produced
// audio under the output directory.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiSynthesize = "/v1/text:synthesize"

// Static errors.
var (
	ErrAPIKeyMissing = errors.New("speech service API key is not configured")
	ErrTTSStatus     = errors.New("speech service returned non-OK status")
	ErrNoAudio       = errors.New("speech service returned no audio content")
)

// synthesizeRequest mirrors the Google TTS REST request body.
type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// GoogleClient calls the Google Cloud Text-to-Speech REST API and returns
// decoded MP3 bytes.
type GoogleClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewGoogleClient creates a speech synthesis client. The baseURL carries no
// trailing path (e.g. "https://texttospeech.googleapis.com").
func NewGoogleClient(baseURL, apiKey string, timeout time.Duration) *GoogleClient {
	return &GoogleClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Synthesize converts text to MP3 audio with the given language and voice.
func (c *GoogleClient) Synthesize(ctx context.Context, text, languageCode, voice string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	var payload synthesizeRequest

	payload.Input.Text = text
	payload.Voice.LanguageCode = languageCode
	payload.Voice.Name = voice
	payload.AudioConfig.AudioEncoding = "MP3"

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	url := c.baseURL + apiSynthesize + "?key=" + c.apiKey

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to speech service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("%w: %s: %s", ErrTTSStatus, resp.Status, string(body))
	}

	var decoded synthesizeResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesis response: %w", err)
	}

	if decoded.AudioContent == "" {
		return nil, ErrNoAudio
	}

	audioData, err := base64.StdEncoding.DecodeString(decoded.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}

	return audioData, nil
}
