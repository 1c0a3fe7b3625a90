package worker

import "github.com/book-expert/events"

// PodcastRequestedEvent asks the service to generate a podcast for a keyword.
// It mirrors the HTTP generate payload for callers that live on the bus.
type PodcastRequestedEvent struct {
	Header         events.EventHeader `json:"header"`
	Keyword        string             `json:"keyword"`
	LanguageCode   string             `json:"language_code"`
	MaxLength      int                `json:"max_length"`
	UseLLMFallback bool               `json:"use_llm_fallback"`
}

// PodcastGeneratedEvent is the reply once the job reaches a terminal status.
// AudioKey names the produced audio in the object store bucket; it is empty
// when the job failed or no object store is configured.
type PodcastGeneratedEvent struct {
	Header    events.EventHeader `json:"header"`
	RequestID string             `json:"request_id"`
	Status    string             `json:"status"`
	AudioKey  string             `json:"audio_key,omitempty"`
	Duration  float64            `json:"duration,omitempty"`
	Error     string             `json:"error,omitempty"`
}
