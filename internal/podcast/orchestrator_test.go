package podcast_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/podcast-service/internal/core"
	"github.com/book-expert/podcast-service/internal/podcast"
)

var (
	errMockCollect = errors.New("mock collect error")
	errMockCompose = errors.New("mock compose error")
	errMockSynth   = errors.New("mock synthesis error")
)

type mockAggregator struct {
	mu      sync.Mutex
	corpus  core.Corpus
	err     error
	calls   int
	release chan struct{}
}

func (m *mockAggregator) Collect(_ context.Context, _ string) (core.Corpus, error) {
	if m.release != nil {
		<-m.release
	}

	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	return m.corpus, m.err
}

func (m *mockAggregator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

type mockComposer struct {
	mu            sync.Mutex
	script        string
	err           error
	calls         int
	fallbackCalls int
}

func (m *mockComposer) Compose(
	_ context.Context, _ string, _ core.Corpus, _ int, _ string,
) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	return m.script, m.err
}

func (m *mockComposer) ComposeFallback(_ context.Context, _ string, _ int, _ string) (string, error) {
	m.mu.Lock()
	m.fallbackCalls++
	m.mu.Unlock()

	return m.script, m.err
}

func (m *mockComposer) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls, m.fallbackCalls
}

type mockSynthesizer struct {
	mu       sync.Mutex
	path     string
	duration float64
	err      error
	calls    int
}

func (m *mockSynthesizer) Synthesize(
	_ context.Context, requestID, _, _, _ string,
) (string, float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.err != nil {
		return "", 0, m.err
	}

	if m.path != "" {
		return m.path, m.duration, nil
	}

	return "output/" + requestID + ".mp3", m.duration, nil
}

func (m *mockSynthesizer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "orchestrator-test.log")
	require.NoError(t, err)

	return log
}

func newTestOrchestrator(
	t *testing.T,
	aggregator *mockAggregator,
	composer *mockComposer,
	synthesizer *mockSynthesizer,
	opts podcast.Options,
) *podcast.Orchestrator {
	t.Helper()

	return podcast.NewOrchestrator(aggregator, composer, synthesizer, opts, testLogger(t))
}

func awaitTerminal(t *testing.T, orchestrator *podcast.Orchestrator, requestID string) podcast.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		job, err := orchestrator.Status(requestID)
		require.NoError(t, err)

		if job.Status.Terminal() {
			return job
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("job %s did not reach a terminal status", requestID)

	return podcast.Job{}
}

func validRequest() podcast.Request {
	return podcast.Request{
		Keyword:        "climate change",
		LanguageCode:   "en-GB",
		MaxLength:      500,
		UseLLMFallback: true,
	}
}

func TestStart_RejectsEmptyKeyword(t *testing.T) {
	t.Parallel()

	orchestrator := newTestOrchestrator(
		t, &mockAggregator{}, &mockComposer{}, &mockSynthesizer{}, podcast.Options{},
	)

	req := validRequest()
	req.Keyword = "   "

	_, err := orchestrator.Start(context.Background(), req)
	require.ErrorIs(t, err, podcast.ErrKeywordEmpty)
}

func TestStart_RejectsUnrecognizedLocale(t *testing.T) {
	t.Parallel()

	orchestrator := newTestOrchestrator(
		t, &mockAggregator{}, &mockComposer{}, &mockSynthesizer{}, podcast.Options{},
	)

	for _, code := range []string{"", "english", "EN-gb", "e", "en_GB"} {
		req := validRequest()
		req.LanguageCode = code

		_, err := orchestrator.Start(context.Background(), req)
		require.ErrorIs(t, err, podcast.ErrInvalidLocale, "language code %q", code)
	}
}

func TestStart_ReturnsProcessingRecordImmediately(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	aggregator := &mockAggregator{
		corpus:  core.Corpus{{Source: "UK", Text: "snippet"}},
		release: release,
	}
	composer := &mockComposer{script: "a script"}
	synthesizer := &mockSynthesizer{duration: 12.5}

	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, podcast.Options{})

	requestID, err := orchestrator.Start(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Contains(t, requestID, "climate_change_")

	job, err := orchestrator.Status(requestID)
	require.NoError(t, err)
	assert.Equal(t, podcast.StatusProcessing, job.Status)
	assert.Empty(t, job.Content)
	assert.Empty(t, job.AudioURL)

	close(release)

	job = awaitTerminal(t, orchestrator, requestID)
	assert.Equal(t, podcast.StatusSuccess, job.Status)
}

func TestStatus_UnknownRequestID(t *testing.T) {
	t.Parallel()

	orchestrator := newTestOrchestrator(
		t, &mockAggregator{}, &mockComposer{}, &mockSynthesizer{}, podcast.Options{},
	)

	_, err := orchestrator.Status("never_created")
	require.ErrorIs(t, err, podcast.ErrJobNotFound)
}

func TestPipeline_FullSuccess(t *testing.T) {
	t.Parallel()

	aggregator := &mockAggregator{corpus: core.Corpus{{Source: "UK", Text: "snippet"}}}
	composer := &mockComposer{script: "a generated script"}
	synthesizer := &mockSynthesizer{duration: 12.5}

	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, podcast.Options{})

	requestID, err := orchestrator.Start(context.Background(), validRequest())
	require.NoError(t, err)

	job := awaitTerminal(t, orchestrator, requestID)

	assert.Equal(t, podcast.StatusSuccess, job.Status)
	assert.Equal(t, "a generated script", job.Content)
	assert.Equal(t, "/output/"+requestID+".mp3", job.AudioURL)
	assert.InEpsilon(t, 12.5, job.Duration, 0.001)
	assert.Empty(t, job.Error)

	composeCalls, fallbackCalls := composer.counts()
	assert.Equal(t, 1, composeCalls)
	assert.Zero(t, fallbackCalls)
}

func TestPipeline_RetrievalFailureWithoutFallback(t *testing.T) {
	t.Parallel()

	aggregator := &mockAggregator{err: errMockCollect}
	composer := &mockComposer{script: "should never be used"}
	synthesizer := &mockSynthesizer{}

	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, podcast.Options{})

	req := validRequest()
	req.UseLLMFallback = false

	requestID, err := orchestrator.Start(context.Background(), req)
	require.NoError(t, err)

	job := awaitTerminal(t, orchestrator, requestID)

	assert.Equal(t, podcast.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "no content retrieved")
	assert.Empty(t, job.Content)
	assert.Empty(t, job.AudioURL)

	composeCalls, fallbackCalls := composer.counts()
	assert.Zero(t, composeCalls, "composer must not run")
	assert.Zero(t, fallbackCalls)
	assert.Zero(t, synthesizer.callCount(), "synthesizer must not run")
}

func TestPipeline_RetrievalFailureWithFallback(t *testing.T) {
	t.Parallel()

	aggregator := &mockAggregator{err: errMockCollect}
	composer := &mockComposer{script: "a keyword-only script"}
	synthesizer := &mockSynthesizer{duration: 3}

	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, podcast.Options{})

	requestID, err := orchestrator.Start(context.Background(), validRequest())
	require.NoError(t, err)

	job := awaitTerminal(t, orchestrator, requestID)

	assert.Equal(t, podcast.StatusSuccess, job.Status)
	assert.Equal(t, "a keyword-only script", job.Content)

	composeCalls, fallbackCalls := composer.counts()
	assert.Zero(t, composeCalls)
	assert.Equal(t, 1, fallbackCalls, "fallback composer must run")
}

func TestPipeline_ComposerFailure(t *testing.T) {
	t.Parallel()

	aggregator := &mockAggregator{corpus: core.Corpus{{Text: "snippet"}}}
	composer := &mockComposer{err: errMockCompose}
	synthesizer := &mockSynthesizer{}

	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, podcast.Options{})

	requestID, err := orchestrator.Start(context.Background(), validRequest())
	require.NoError(t, err)

	job := awaitTerminal(t, orchestrator, requestID)

	assert.Equal(t, podcast.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "script generation failed")
	assert.Empty(t, job.Content)
	assert.Empty(t, job.AudioURL)
	assert.Zero(t, synthesizer.callCount(), "synthesizer must not run")
}

func TestPipeline_SynthesizerFailurePreservesContent(t *testing.T) {
	t.Parallel()

	aggregator := &mockAggregator{corpus: core.Corpus{{Text: "snippet"}}}
	composer := &mockComposer{script: "a script worth keeping"}
	synthesizer := &mockSynthesizer{err: errMockSynth}

	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, podcast.Options{})

	requestID, err := orchestrator.Start(context.Background(), validRequest())
	require.NoError(t, err)

	job := awaitTerminal(t, orchestrator, requestID)

	assert.Equal(t, podcast.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "audio synthesis failed")
	assert.Equal(t, "a script worth keeping", job.Content, "partial success is preserved")
	assert.Empty(t, job.AudioURL)
	assert.Zero(t, job.Duration)
}

func TestStatus_TerminalRecordsAreStable(t *testing.T) {
	t.Parallel()

	aggregator := &mockAggregator{corpus: core.Corpus{{Text: "snippet"}}}
	composer := &mockComposer{script: "a script"}
	synthesizer := &mockSynthesizer{duration: 5}

	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, podcast.Options{})

	requestID, err := orchestrator.Start(context.Background(), validRequest())
	require.NoError(t, err)

	first := awaitTerminal(t, orchestrator, requestID)

	for range 10 {
		again, statusErr := orchestrator.Status(requestID)
		require.NoError(t, statusErr)
		assert.Equal(t, first, again)
	}
}

func TestStart_ConcurrentJobsAreIndependent(t *testing.T) {
	t.Parallel()

	aggregator := &mockAggregator{corpus: core.Corpus{{Text: "snippet"}}}
	composer := &mockComposer{script: "a script"}
	synthesizer := &mockSynthesizer{duration: 5}

	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, podcast.Options{})

	reqA := validRequest()
	reqB := validRequest()
	reqB.Keyword = "space exploration"
	reqB.LanguageCode = "fr-FR"

	idA, err := orchestrator.Start(context.Background(), reqA)
	require.NoError(t, err)

	idB, err := orchestrator.Start(context.Background(), reqB)
	require.NoError(t, err)

	require.NotEqual(t, idA, idB)

	jobA := awaitTerminal(t, orchestrator, idA)
	jobB := awaitTerminal(t, orchestrator, idB)

	assert.Equal(t, "climate change", jobA.Keyword)
	assert.Equal(t, "en-GB", jobA.LanguageCode)
	assert.Equal(t, "space exploration", jobB.Keyword)
	assert.Equal(t, "fr-FR", jobB.LanguageCode)
	assert.Equal(t, "/output/"+idA+".mp3", jobA.AudioURL)
	assert.Equal(t, "/output/"+idB+".mp3", jobB.AudioURL)
}

func TestStart_SameKeywordSameSecondGetsDistinctIDs(t *testing.T) {
	t.Parallel()

	aggregator := &mockAggregator{corpus: core.Corpus{{Text: "snippet"}}}
	composer := &mockComposer{script: "a script"}
	synthesizer := &mockSynthesizer{duration: 5}

	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, podcast.Options{})

	idA, err := orchestrator.Start(context.Background(), validRequest())
	require.NoError(t, err)

	idB, err := orchestrator.Start(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEqual(t, idA, idB)
}

func TestOrchestrator_EvictsTerminalRecordsBeyondHistoryLimit(t *testing.T) {
	t.Parallel()

	aggregator := &mockAggregator{corpus: core.Corpus{{Text: "snippet"}}}
	composer := &mockComposer{script: "a script"}
	synthesizer := &mockSynthesizer{duration: 5}

	opts := podcast.Options{HistoryLimit: 2}
	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, opts)

	keywords := []string{"first topic", "second topic", "third topic"}
	ids := make([]string, 0, len(keywords))

	for _, keyword := range keywords {
		req := validRequest()
		req.Keyword = keyword

		requestID, err := orchestrator.Start(context.Background(), req)
		require.NoError(t, err)

		awaitTerminal(t, orchestrator, requestID)
		ids = append(ids, requestID)
	}

	// The next insertion prunes terminal records beyond the limit.
	req := validRequest()
	req.Keyword = "fourth topic"

	lastID, err := orchestrator.Start(context.Background(), req)
	require.NoError(t, err)
	awaitTerminal(t, orchestrator, lastID)

	_, err = orchestrator.Status(ids[0])
	require.ErrorIs(t, err, podcast.ErrJobNotFound, "oldest terminal record should be evicted")

	_, err = orchestrator.Status(lastID)
	require.NoError(t, err)
}

func TestOrchestrator_BoundsConcurrentPipelines(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	aggregator := &mockAggregator{
		corpus:  core.Corpus{{Text: "snippet"}},
		release: release,
	}
	composer := &mockComposer{script: "a script"}
	synthesizer := &mockSynthesizer{duration: 5}

	opts := podcast.Options{MaxConcurrent: 1}
	orchestrator := newTestOrchestrator(t, aggregator, composer, synthesizer, opts)

	keywords := []string{"alpha topic", "beta topic", "gamma topic"}
	ids := make([]string, 0, len(keywords))

	for _, keyword := range keywords {
		req := validRequest()
		req.Keyword = keyword

		requestID, err := orchestrator.Start(context.Background(), req)
		require.NoError(t, err)
		ids = append(ids, requestID)
	}

	// Only one pipeline may pass the aggregator gate at a time.
	assert.Zero(t, aggregator.callCount())

	for range keywords {
		release <- struct{}{}
	}

	for _, requestID := range ids {
		awaitTerminal(t, orchestrator, requestID)
	}

	assert.Equal(t, 3, aggregator.callCount())
}
