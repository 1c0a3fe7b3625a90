package podcast

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/podcast-service/internal/core"
)

// Stage error messages written into failed job records.
const (
	errMsgNoContent        = "no content retrieved"
	errMsgGenerationFailed = "script generation failed"
	errMsgSynthesisFailed  = "audio synthesis failed"
)

// Defaults applied when the corresponding option is zero.
const (
	defaultMaxConcurrent = 4
	defaultHistoryLimit  = 1000
	defaultStageTimeout  = 2 * time.Minute
	requestIDTimeFormat  = "20060102_150405"
)

// Static errors.
var (
	ErrKeywordEmpty  = errors.New("keyword cannot be empty")
	ErrInvalidLocale = errors.New("unrecognized language code")
	ErrJobNotFound   = errors.New("podcast request not found")
)

var (
	localePattern  = regexp.MustCompile(`^[a-z]{2,3}(-[A-Z]{2})?$`)
	keywordCleaner = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// Aggregator is the news retrieval stage.
type Aggregator interface {
	Collect(ctx context.Context, keyword string) (core.Corpus, error)
}

// Composer is the script generation stage.
type Composer interface {
	Compose(ctx context.Context, keyword string, corpus core.Corpus, maxLength int, languageCode string) (string, error)
	ComposeFallback(ctx context.Context, keyword string, maxLength int, languageCode string) (string, error)
}

// AudioSynthesizer is the speech synthesis stage. It returns the path of the
// written audio file and its estimated duration in seconds.
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, requestID, scriptText, languageCode, voice string) (string, float64, error)
}

// Options bound the orchestrator's resource usage.
type Options struct {
	// MaxConcurrent caps how many pipelines run at once; excess jobs queue
	// on the semaphore instead of firing immediately.
	MaxConcurrent int
	// HistoryLimit caps how many terminal records are retained.
	HistoryLimit int
	// TTL evicts terminal records older than this at insertion time.
	// Zero disables age-based eviction.
	TTL time.Duration
	// StageTimeout bounds each external call so a stalled service cannot
	// hold a pipeline indefinitely.
	StageTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = defaultMaxConcurrent
	}

	if o.HistoryLimit <= 0 {
		o.HistoryLimit = defaultHistoryLimit
	}

	if o.StageTimeout <= 0 {
		o.StageTimeout = defaultStageTimeout
	}

	return o
}

// Orchestrator owns the job map and drives the three-stage pipeline for each
// accepted request.
type Orchestrator struct {
	aggregator  Aggregator
	composer    Composer
	synthesizer AudioSynthesizer
	log         *logger.Logger
	opts        Options

	mu        sync.RWMutex
	jobs      map[string]Job
	order     []string
	semaphore chan struct{}
	done      sync.WaitGroup

	now func() time.Time
}

// NewOrchestrator wires the three pipeline stages together.
func NewOrchestrator(
	aggregator Aggregator,
	composer Composer,
	synthesizer AudioSynthesizer,
	opts Options,
	log *logger.Logger,
) *Orchestrator {
	opts = opts.withDefaults()

	return &Orchestrator{
		aggregator:  aggregator,
		composer:    composer,
		synthesizer: synthesizer,
		log:         log,
		opts:        opts,
		jobs:        make(map[string]Job),
		order:       nil,
		semaphore:   make(chan struct{}, opts.MaxConcurrent),
		now:         time.Now,
	}
}

// Start validates the request, inserts a processing record and schedules the
// pipeline as a background unit of work, returning the request id immediately.
func (o *Orchestrator) Start(ctx context.Context, req Request) (string, error) {
	err := validate(req)
	if err != nil {
		return "", err
	}

	requestID := o.insertJob(req)

	// The pipeline outlives the caller: an HTTP request context is canceled
	// as soon as the acknowledgement is written, which must not abort the
	// job it just scheduled.
	pipelineCtx := context.WithoutCancel(ctx)

	o.done.Add(1)

	go func() {
		defer o.done.Done()

		// Acquire a pipeline slot; excess requests queue here rather
		// than all firing at once.
		o.semaphore <- struct{}{}
		defer func() { <-o.semaphore }()

		o.runPipeline(pipelineCtx, requestID, req)
	}()

	return requestID, nil
}

// Status returns a snapshot of the job record for the given request id.
func (o *Orchestrator) Status(requestID string) (Job, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	job, ok := o.jobs[requestID]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, requestID)
	}

	return job, nil
}

// Wait blocks until all scheduled pipelines have finished. It exists for
// orderly shutdown and tests; callers normally poll Status instead.
func (o *Orchestrator) Wait() {
	o.done.Wait()
}

// runPipeline executes the three stages in strict order, recording each
// stage's outcome in the job record. Stage failures never propagate out of
// the pipeline; they terminate the job with a failed status.
func (o *Orchestrator) runPipeline(ctx context.Context, requestID string, req Request) {
	corpus, collectErr := o.collect(ctx, req.Keyword)

	var (
		scriptText string
		composeErr error
	)

	switch {
	case collectErr == nil:
		scriptText, composeErr = o.compose(ctx, req, corpus)
	case req.UseLLMFallback:
		scriptText, composeErr = o.composeFallback(ctx, req)
	default:
		o.log.Warn("Job %s: retrieval failed and fallback disabled: %v", requestID, collectErr)
		o.fail(requestID, errMsgNoContent)

		return
	}

	if composeErr != nil {
		o.log.Error("Job %s: %v", requestID, composeErr)
		o.fail(requestID, errMsgGenerationFailed)

		return
	}

	o.setContent(requestID, scriptText)

	audioPath, duration, synthErr := o.synthesize(ctx, requestID, req, scriptText)
	if synthErr != nil {
		// The script is preserved in the record even though the job
		// failed at synthesis.
		o.log.Error("Job %s: %v", requestID, synthErr)
		o.fail(requestID, errMsgSynthesisFailed)

		return
	}

	o.succeed(requestID, "/output/"+filepath.Base(audioPath), duration)
	o.log.Info("Job %s completed: %s (%.1fs)", requestID, audioPath, duration)
}

func (o *Orchestrator) collect(ctx context.Context, keyword string) (core.Corpus, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
	defer cancel()

	return o.aggregator.Collect(stageCtx, keyword)
}

func (o *Orchestrator) compose(ctx context.Context, req Request, corpus core.Corpus) (string, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
	defer cancel()

	return o.composer.Compose(stageCtx, req.Keyword, corpus, req.MaxLength, req.LanguageCode)
}

func (o *Orchestrator) composeFallback(ctx context.Context, req Request) (string, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
	defer cancel()

	return o.composer.ComposeFallback(stageCtx, req.Keyword, req.MaxLength, req.LanguageCode)
}

func (o *Orchestrator) synthesize(
	ctx context.Context,
	requestID string,
	req Request,
	scriptText string,
) (string, float64, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
	defer cancel()

	return o.synthesizer.Synthesize(stageCtx, requestID, scriptText, req.LanguageCode, "")
}

// insertJob allocates a request id, stores the initial processing record and
// prunes expired or excess terminal records.
func (o *Orchestrator) insertJob(req Request) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	createdAt := o.now()
	requestID := newRequestID(req.Keyword, createdAt)

	// A second job for the same keyword within the same second gets a
	// uuid-derived suffix so ids stay unique for the process lifetime.
	if _, exists := o.jobs[requestID]; exists {
		requestID = requestID + "_" + uuid.NewString()[:8]
	}

	o.jobs[requestID] = Job{
		RequestID:    requestID,
		Keyword:      req.Keyword,
		LanguageCode: req.LanguageCode,
		Status:       StatusProcessing,
		Content:      "",
		AudioURL:     "",
		Duration:     0,
		Error:        "",
		CreatedAt:    createdAt,
	}
	o.order = append(o.order, requestID)

	o.pruneLocked(createdAt)

	return requestID
}

// pruneLocked evicts terminal records past their TTL, then the oldest
// terminal records beyond the history limit. Records still processing are
// never evicted. Callers must hold the write lock.
func (o *Orchestrator) pruneLocked(now time.Time) {
	kept := o.order[:0]

	for _, id := range o.order {
		job, ok := o.jobs[id]
		if !ok {
			continue
		}

		expired := o.opts.TTL > 0 &&
			job.Status.Terminal() &&
			now.Sub(job.CreatedAt) > o.opts.TTL
		if expired {
			delete(o.jobs, id)

			continue
		}

		kept = append(kept, id)
	}

	o.order = kept

	excess := len(o.order) - o.opts.HistoryLimit
	if excess <= 0 {
		return
	}

	kept = o.order[:0]

	for _, id := range o.order {
		job, ok := o.jobs[id]
		if !ok {
			continue
		}

		if excess > 0 && job.Status.Terminal() {
			delete(o.jobs, id)

			excess--

			continue
		}

		kept = append(kept, id)
	}

	o.order = kept
}

// update applies fn to the job's record as a whole-record replacement.
// Terminal records are left untouched.
func (o *Orchestrator) update(requestID string, fn func(*Job)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[requestID]
	if !ok || job.Status.Terminal() {
		return
	}

	fn(&job)
	o.jobs[requestID] = job
}

func (o *Orchestrator) setContent(requestID, content string) {
	o.update(requestID, func(job *Job) {
		job.Content = content
	})
}

func (o *Orchestrator) fail(requestID, message string) {
	o.update(requestID, func(job *Job) {
		job.Status = StatusFailed
		job.Error = message
	})
}

func (o *Orchestrator) succeed(requestID, audioURL string, duration float64) {
	o.update(requestID, func(job *Job) {
		job.Status = StatusSuccess
		job.AudioURL = audioURL
		job.Duration = duration
	})
}

// validate rejects malformed requests synchronously, before a job exists.
func validate(req Request) error {
	if strings.TrimSpace(req.Keyword) == "" {
		return ErrKeywordEmpty
	}

	if !localePattern.MatchString(req.LanguageCode) {
		return fmt.Errorf("%w: %q", ErrInvalidLocale, req.LanguageCode)
	}

	return nil
}

// newRequestID derives the job id from the sanitized keyword and the creation
// timestamp, matching the audio file naming under the output directory.
func newRequestID(keyword string, createdAt time.Time) string {
	safe := keywordCleaner.ReplaceAllString(strings.ToLower(keyword), "_")
	safe = strings.Trim(safe, "_")

	return safe + "_" + createdAt.Format(requestIDTimeFormat)
}
