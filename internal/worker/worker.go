// Package worker provides a NATS worker that processes podcast generation jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/podcast-service/internal/core"
	"github.com/book-expert/podcast-service/internal/podcast"
)

const (
	handleMessageTimeout = 10 * time.Minute
	statusPollInterval   = 250 * time.Millisecond
)

// ErrJobTimedOut indicates a job did not reach a terminal status within the
// message handling window.
var ErrJobTimedOut = errors.New("podcast job did not finish in time")

// NatsWorker listens for podcast generation requests on a NATS subject,
// drives the orchestrator and replies with the outcome. Produced audio is
// mirrored into the object store so bus consumers need no filesystem access.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	orchestrator   *podcast.Orchestrator
	store          core.ObjectStore
	outputDir      string
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker. The store may be nil
// when no object store bucket is configured; replies then carry no audio key.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	orchestrator *podcast.Orchestrator,
	store core.ObjectStore,
	outputDir string,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		orchestrator:   orchestrator,
		store:          store,
		outputDir:      outputDir,
		log:            log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	var event PodcastRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal podcast request event: %v", err)

		return
	}

	reply := w.processJob(ctx, &event)

	publishErr := w.publishReply(msg, reply)
	if publishErr != nil {
		w.log.Error("Failed to publish reply for workflow %s: %v", event.Header.WorkflowID, publishErr)
	}
}

// processJob starts the pipeline for the event and waits for its terminal
// record. All failures are reported through the reply event, never as a
// dropped message.
func (w *NatsWorker) processJob(ctx context.Context, event *PodcastRequestedEvent) *PodcastGeneratedEvent {
	reply := &PodcastGeneratedEvent{
		Header:    event.Header,
		RequestID: "",
		Status:    string(podcast.StatusFailed),
		AudioKey:  "",
		Duration:  0,
		Error:     "",
	}

	requestID, err := w.orchestrator.Start(ctx, podcast.Request{
		Keyword:        event.Keyword,
		LanguageCode:   event.LanguageCode,
		MaxLength:      event.MaxLength,
		UseLLMFallback: event.UseLLMFallback,
	})
	if err != nil {
		reply.Error = err.Error()

		return reply
	}

	reply.RequestID = requestID

	job, err := w.awaitTerminal(ctx, requestID)
	if err != nil {
		reply.Error = err.Error()

		return reply
	}

	reply.Status = string(job.Status)
	reply.Error = job.Error
	reply.Duration = job.Duration

	if job.Status == podcast.StatusSuccess {
		reply.AudioKey = w.mirrorAudio(ctx, requestID)
	}

	return reply
}

// awaitTerminal polls the job record until it stops processing.
func (w *NatsWorker) awaitTerminal(ctx context.Context, requestID string) (podcast.Job, error) {
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		job, err := w.orchestrator.Status(requestID)
		if err != nil {
			return podcast.Job{}, fmt.Errorf("failed to look up job %s: %w", requestID, err)
		}

		if job.Status.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return podcast.Job{}, fmt.Errorf("%w: %s", ErrJobTimedOut, requestID)
		case <-ticker.C:
		}
	}
}

// mirrorAudio uploads the produced audio file into the object store under the
// request id. A mirror failure is logged but does not fail the job; the file
// still exists under the output directory.
func (w *NatsWorker) mirrorAudio(ctx context.Context, requestID string) string {
	if w.store == nil {
		return ""
	}

	audioPath := filepath.Join(w.outputDir, requestID+".mp3")

	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		w.log.Error("Failed to read audio file for %s: %v", requestID, err)

		return ""
	}

	audioKey := requestID + ".mp3"

	err = w.store.Upload(ctx, audioKey, audioData)
	if err != nil {
		w.log.Error("Failed to upload audio for %s: %v", requestID, err)

		return ""
	}

	return audioKey
}

// publishReply marshals and responds with the PodcastGeneratedEvent.
func (w *NatsWorker) publishReply(msg *nats.Msg, reply *PodcastGeneratedEvent) error {
	replyData, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}
