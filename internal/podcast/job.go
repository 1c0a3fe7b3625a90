// Package podcast implements the job orchestrator: it accepts generation
// requests, runs the aggregate-compose-synthesize pipeline in the background
// and tracks each job through an in-memory status record keyed by request id.
package podcast

import "time"

// Status is the lifecycle state of a generation job.
type Status string

// Job statuses. A job starts processing and moves forward exactly once, to
// success or failed; terminal records are never mutated again.
const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Request is the immutable input of one generation job.
type Request struct {
	Keyword        string
	LanguageCode   string
	MaxLength      int
	UseLLMFallback bool
}

// Job is the mutable status record of one generation request. Content and
// AudioURL are populated monotonically as stages complete and are never
// cleared; in particular a job that fails at synthesis keeps its script.
type Job struct {
	RequestID    string
	Keyword      string
	LanguageCode string
	Status       Status
	Content      string
	AudioURL     string
	Duration     float64
	Error        string
	CreatedAt    time.Time
}
