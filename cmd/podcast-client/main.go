// Command podcast-client drives a running podcast-service over HTTP: it
// submits a generation request and polls the status endpoint until the job
// reaches a terminal state.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Flag descriptions.
const (
	flagServiceDesc  = "Base URL of the podcast service"
	flagKeywordDesc  = "Keyword or topic to generate a podcast for"
	flagLanguageDesc = "BCP 47 language code for the script and audio"
	flagLengthDesc   = "Maximum script length in words"
	flagFallbackDesc = "Generate from general knowledge when no news is found"
	flagPollDesc     = "Seconds between status polls"
	flagOutputDesc   = "Path to save the produced audio (.mp3); empty skips the download"
	flagHealthDesc   = "Check service health and exit"
)

// Flag names.
const (
	flagService  = "service"
	flagKeyword  = "keyword"
	flagLanguage = "language"
	flagLength   = "max-length"
	flagFallback = "fallback"
	flagPoll     = "poll"
	flagOutput   = "output"
	flagHealth   = "health"
)

// Defaults.
const (
	defaultServiceURL   = "http://localhost:8088"
	defaultLanguageCode = "en-GB"
	defaultMaxLength    = 500
	defaultPollSeconds  = 2
	requestTimeout      = 30 * time.Second
	overallTimeout      = 10 * time.Minute
	statusProcessing    = "processing"
)

var (
	errKeywordRequired  = errors.New("--keyword is required")
	errServiceUnhealthy = errors.New("podcast service is not healthy")
	errGenerateRejected = errors.New("generate request rejected")
	errStatusRejected   = errors.New("status request rejected")
	errJobFailed        = errors.New("podcast generation failed")
	errJobTimedOut      = errors.New("podcast generation did not finish in time")
	errDownloadRejected = errors.New("audio download rejected")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	service  string
	keyword  string
	language string
	length   int
	fallback bool
	poll     int
	output   string
	health   bool
}

// generatePayload is the body of POST /api/podcast/generate.
type generatePayload struct {
	Keyword        string `json:"keyword"`
	LanguageCode   string `json:"language_code"`
	MaxLength      int    `json:"max_length"`
	UseLLMFallback bool   `json:"use_llm_fallback"`
}

// podcastRecord mirrors the service's job projection.
type podcastRecord struct {
	Keyword   string   `json:"keyword"`
	Content   string   `json:"content"`
	AudioURL  *string  `json:"audio_url"`
	Duration  *float64 `json:"duration"`
	Status    string   `json:"status"`
	RequestID string   `json:"request_id"`
	Error     *string  `json:"error"`
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	httpClient := &http.Client{Timeout: requestTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), overallTimeout)
	defer cancel()

	if flags.health {
		return checkHealth(ctx, httpClient, flags.service)
	}

	if flags.keyword == "" {
		flag.Usage()

		return errKeywordRequired
	}

	record, err := submit(ctx, httpClient, flags)
	if err != nil {
		return err
	}

	fmt.Printf("Accepted: request_id=%s\n", record.RequestID)

	final, err := awaitTerminal(ctx, httpClient, flags, record.RequestID)
	if err != nil {
		return err
	}

	err = report(final)
	if err != nil {
		return err
	}

	if flags.output != "" && final.AudioURL != nil {
		return downloadAudio(ctx, httpClient, flags.service+*final.AudioURL, flags.output)
	}

	return nil
}

func parseFlags() appFlags {
	var flags appFlags
	flag.StringVar(&flags.service, flagService, defaultServiceURL, flagServiceDesc)
	flag.StringVar(&flags.keyword, flagKeyword, "", flagKeywordDesc)
	flag.StringVar(&flags.language, flagLanguage, defaultLanguageCode, flagLanguageDesc)
	flag.IntVar(&flags.length, flagLength, defaultMaxLength, flagLengthDesc)
	flag.BoolVar(&flags.fallback, flagFallback, true, flagFallbackDesc)
	flag.IntVar(&flags.poll, flagPoll, defaultPollSeconds, flagPollDesc)
	flag.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.Parse()

	return flags
}

func checkHealth(ctx context.Context, httpClient *http.Client, serviceURL string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", errServiceUnhealthy, response.StatusCode)
	}

	fmt.Println("Podcast service is healthy")

	return nil
}

// submit posts the generation request and returns the acknowledged record.
func submit(ctx context.Context, httpClient *http.Client, flags appFlags) (*podcastRecord, error) {
	payload := generatePayload{
		Keyword:        flags.keyword,
		LanguageCode:   flags.language,
		MaxLength:      flags.length,
		UseLLMFallback: flags.fallback,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate payload: %w", err)
	}

	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		flags.service+"/api/podcast/generate",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build generate request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("%w: status %d", errGenerateRejected, response.StatusCode)
	}

	var record podcastRecord

	err = json.NewDecoder(response.Body).Decode(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to decode generate response: %w", err)
	}

	return &record, nil
}

// awaitTerminal polls the status endpoint until the job leaves processing.
func awaitTerminal(
	ctx context.Context,
	httpClient *http.Client,
	flags appFlags,
	requestID string,
) (*podcastRecord, error) {
	ticker := time.NewTicker(time.Duration(flags.poll) * time.Second)
	defer ticker.Stop()

	for {
		record, err := fetchStatus(ctx, httpClient, flags.service, requestID)
		if err != nil {
			return nil, err
		}

		if record.Status != statusProcessing {
			return record, nil
		}

		fmt.Println("Still processing...")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", errJobTimedOut, requestID)
		case <-ticker.C:
		}
	}
}

func fetchStatus(
	ctx context.Context,
	httpClient *http.Client,
	serviceURL, requestID string,
) (*podcastRecord, error) {
	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		serviceURL+"/api/podcast/status/"+requestID,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errStatusRejected, response.StatusCode)
	}

	var record podcastRecord

	err = json.NewDecoder(response.Body).Decode(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &record, nil
}

// report prints the terminal record and maps a failed job to a non-zero exit.
func report(record *podcastRecord) error {
	if record.Status != "success" {
		reason := "unknown"
		if record.Error != nil {
			reason = *record.Error
		}

		return fmt.Errorf("%w: %s", errJobFailed, reason)
	}

	fmt.Printf("Generated podcast for %q\n", record.Keyword)

	if record.AudioURL != nil {
		fmt.Printf("Audio: %s\n", *record.AudioURL)
	}

	if record.Duration != nil {
		fmt.Printf("Estimated duration: %.1fs\n", *record.Duration)
	}

	return nil
}

// downloadAudio fetches the produced audio file and writes it to outputPath.
func downloadAudio(
	ctx context.Context,
	httpClient *http.Client,
	audioURL, outputPath string,
) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build audio request: %w", err)
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("audio download failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", errDownloadRejected, response.StatusCode)
	}

	audioData, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio body: %w", err)
	}

	err = os.WriteFile(outputPath, audioData, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	fmt.Printf("Saved audio to %s\n", outputPath)

	return nil
}
