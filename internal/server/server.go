// Package server exposes the orchestration boundary over HTTP: a generate
// endpoint that acknowledges with a processing record, a status endpoint for
// polling, and static serving of the produced audio files.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/podcast-service/internal/podcast"
)

// Defaults for request payload fields the caller may omit.
const (
	defaultMaxLength    = 500
	defaultLanguageCode = "en-GB"
)

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// generateRequest is the JSON body of POST /api/podcast/generate.
type generateRequest struct {
	Keyword        string `json:"keyword"`
	LanguageCode   string `json:"language_code"`
	MaxLength      int    `json:"max_length"`
	UseLLMFallback *bool  `json:"use_llm_fallback"`
}

// podcastResponse is the JSON projection of a job record, shared by both
// endpoints. Audio fields stay null until the audio exists.
type podcastResponse struct {
	Keyword   string   `json:"keyword"`
	Content   string   `json:"content"`
	AudioURL  *string  `json:"audio_url"`
	Duration  *float64 `json:"duration"`
	Status    string   `json:"status"`
	RequestID string   `json:"request_id"`
	Error     *string  `json:"error"`
}

// errorResponse is the JSON error payload.
type errorResponse struct {
	Detail string `json:"detail"`
}

// Server is the HTTP front of the orchestrator.
type Server struct {
	orchestrator *podcast.Orchestrator
	log          *logger.Logger
	httpServer   *http.Server
	outputDir    string
}

// New creates the HTTP server for the given orchestrator. Audio files under
// outputDir are served at /output/.
func New(orchestrator *podcast.Orchestrator, addr, outputDir string, log *logger.Logger) *Server {
	srv := &Server{
		orchestrator: orchestrator,
		log:          log,
		httpServer:   nil,
		outputDir:    outputDir,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/podcast/generate", srv.handleGenerate)
	mux.HandleFunc("GET /api/podcast/status/{id}", srv.handleStatus)
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.Handle(
		"GET /output/",
		http.StripPrefix("/output/", http.FileServer(http.Dir(outputDir))),
	)

	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe runs the server until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.System("HTTP server listening on %s", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

// handleGenerate accepts a generation request and acknowledges immediately
// with the new job's processing record.
func (s *Server) handleGenerate(responseWriter http.ResponseWriter, request *http.Request) {
	var payload generateRequest

	err := json.NewDecoder(request.Body).Decode(&payload)
	if err != nil {
		s.writeError(responseWriter, http.StatusBadRequest, "invalid JSON body")

		return
	}

	if payload.MaxLength <= 0 {
		payload.MaxLength = defaultMaxLength
	}

	if payload.LanguageCode == "" {
		payload.LanguageCode = defaultLanguageCode
	}

	useFallback := true
	if payload.UseLLMFallback != nil {
		useFallback = *payload.UseLLMFallback
	}

	requestID, err := s.orchestrator.Start(request.Context(), podcast.Request{
		Keyword:        payload.Keyword,
		LanguageCode:   payload.LanguageCode,
		MaxLength:      payload.MaxLength,
		UseLLMFallback: useFallback,
	})
	if err != nil {
		s.writeError(responseWriter, http.StatusBadRequest, err.Error())

		return
	}

	// The acknowledgment is always the initial processing projection, even
	// when the pipeline races ahead; callers learn the outcome by polling.
	s.writeJSON(responseWriter, http.StatusAccepted, podcastResponse{
		Keyword:   payload.Keyword,
		Content:   "",
		AudioURL:  nil,
		Duration:  nil,
		Status:    string(podcast.StatusProcessing),
		RequestID: requestID,
		Error:     nil,
	})
}

// handleStatus returns the current job record for a request id.
func (s *Server) handleStatus(responseWriter http.ResponseWriter, request *http.Request) {
	requestID := request.PathValue("id")

	job, err := s.orchestrator.Status(requestID)
	if err != nil {
		if errors.Is(err, podcast.ErrJobNotFound) {
			s.writeError(responseWriter, http.StatusNotFound, "podcast request not found")

			return
		}

		s.writeError(responseWriter, http.StatusInternalServerError, err.Error())

		return
	}

	s.writeJSON(responseWriter, http.StatusOK, projectJob(job))
}

func (s *Server) handleHealth(responseWriter http.ResponseWriter, _ *http.Request) {
	s.writeJSON(responseWriter, http.StatusOK, map[string]string{"status": "ok"})
}

// projectJob maps a job record onto the wire shape, nulling unset fields.
func projectJob(job podcast.Job) podcastResponse {
	response := podcastResponse{
		Keyword:   job.Keyword,
		Content:   job.Content,
		AudioURL:  nil,
		Duration:  nil,
		Status:    string(job.Status),
		RequestID: job.RequestID,
		Error:     nil,
	}

	if job.AudioURL != "" {
		audioURL := job.AudioURL
		duration := job.Duration
		response.AudioURL = &audioURL
		response.Duration = &duration
	}

	if job.Error != "" {
		errMsg := job.Error
		response.Error = &errMsg
	}

	return response
}

func (s *Server) writeJSON(responseWriter http.ResponseWriter, status int, payload any) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(status)

	err := json.NewEncoder(responseWriter).Encode(payload)
	if err != nil {
		s.log.Error("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(responseWriter http.ResponseWriter, status int, detail string) {
	s.writeJSON(responseWriter, status, errorResponse{Detail: detail})
}
