// Package config provides the configuration structure for the podcast-service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// NewsConfig holds the configuration for the news retrieval stage.
type NewsConfig struct {
	GDELTBaseURL    string `toml:"gdelt_base_url"`
	GDELTVersion    int    `toml:"gdelt_version"`
	GDELTMaxRecords int    `toml:"gdelt_max_records"`
	ScraperBaseURL  string `toml:"scraper_base_url"`
	MaxURLsToScrape int    `toml:"max_urls_to_scrape"`
	MinSnippets     int    `toml:"min_snippets"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// LLMConfig holds the configuration for the generative text service.
type LLMConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// TTSConfig holds the configuration for the speech synthesis service.
type TTSConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	SpeakingRate   float64 `toml:"speaking_rate"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// JobsConfig bounds the in-memory job history and pipeline concurrency.
type JobsConfig struct {
	MaxConcurrent       int `toml:"max_concurrent"`
	HistoryLimit        int `toml:"history_limit"`
	TTLMinutes          int `toml:"ttl_minutes"`
	StageTimeoutSeconds int `toml:"stage_timeout_seconds"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// NATSConfig holds the optional NATS ingress and object store settings.
// An empty URL disables the NATS worker entirely.
type NATSConfig struct {
	URL                     string `toml:"url"`
	PodcastRequestedSubject string `toml:"podcast_requested_subject"`
	PodcastGeneratedSubject string `toml:"podcast_generated_subject"`
	AudioObjectStoreBucket  string `toml:"audio_object_store_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	OutputDir   string `toml:"output_dir"`
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	News   NewsConfig   `toml:"news"`
	LLM    LLMConfig    `toml:"llm"`
	TTS    TTSConfig    `toml:"tts"`
	Jobs   JobsConfig   `toml:"jobs"`
	Server ServerConfig `toml:"server"`
	NATS   NATSConfig   `toml:"nats"`
	Paths  PathsConfig  `toml:"paths"`
}

// Load loads the configuration for the podcast-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
