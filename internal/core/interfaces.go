// Package core defines the collaborator interfaces and shared types for the
// podcast service. Each external HTTP API the pipeline talks to is represented
// by a narrow interface so stages can be exercised with mock collaborators.
package core

import "context"

// Article is a single news item returned by an events source.
type Article struct {
	Title     string
	URL       string
	Source    string
	Published string
}

// Snippet is one attributed piece of retrieved text.
type Snippet struct {
	Source string
	Text   string
}

// Corpus is the ordered set of retrieved snippets for a keyword, assembled
// before script generation.
type Corpus []Snippet

// EventsSource queries a global-events database for news articles about a keyword.
type EventsSource interface {
	Search(ctx context.Context, keyword string) ([]Article, error)
}

// ContentScraper extracts the readable text of a web page.
type ContentScraper interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ScriptGenerator produces text from a prompt using a generative language model.
type ScriptGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// SpeechSynthesizer converts text to encoded audio for a language and voice.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, languageCode, voice string) ([]byte, error)
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}
