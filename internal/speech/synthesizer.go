package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/podcast-service/internal/core"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// secondsPerWord approximates spoken-word pacing for the duration estimate.
const secondsPerWord = 0.4

// defaultVoices maps language-code prefixes to the default synthesis voice.
var defaultVoices = map[string]string{
	"en": "en-GB-Journey-D",
	"es": "es-ES-Neural2-F",
	"fr": "fr-FR-Neural2-D",
	"de": "de-DE-Neural2-D",
	"it": "it-IT-Neural2-A",
	"ja": "ja-JP-Neural2-D",
	"ko": "ko-KR-Neural2-C",
	"zh": "cmn-CN-Neural2-C",
}

// Synthesizer converts a script to an audio file under the output directory.
type Synthesizer struct {
	client       core.SpeechSynthesizer
	log          *logger.Logger
	outputDir    string
	speakingRate float64
}

// NewSynthesizer creates a synthesizer writing into outputDir. speakingRate
// scales the word-count duration estimate; values at or below zero fall back
// to 1.0.
func NewSynthesizer(
	client core.SpeechSynthesizer,
	outputDir string,
	speakingRate float64,
	log *logger.Logger,
) *Synthesizer {
	if speakingRate <= 0 {
		speakingRate = 1.0
	}

	return &Synthesizer{
		client:       client,
		log:          log,
		outputDir:    outputDir,
		speakingRate: speakingRate,
	}
}

// Synthesize converts the script to MP3 audio, writes it to
// {outputDir}/{requestID}.mp3 and returns the file path together with the
// estimated duration in seconds. The duration comes from the word count and
// the configured speaking rate; the audio stream itself carries no length
// metadata the service exposes.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	requestID, scriptText, languageCode, voice string,
) (string, float64, error) {
	if voice == "" {
		voice = DefaultVoice(languageCode)
	}

	audioData, err := s.client.Synthesize(ctx, scriptText, languageCode, voice)
	if err != nil {
		return "", 0, fmt.Errorf("audio synthesis failed: %w", err)
	}

	dirErr := os.MkdirAll(s.outputDir, dirPermissions)
	if dirErr != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	outputPath := filepath.Join(s.outputDir, requestID+".mp3")

	writeErr := os.WriteFile(outputPath, audioData, filePermissions)
	if writeErr != nil {
		return "", 0, fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	duration := EstimateDuration(scriptText, s.speakingRate)

	s.log.Info("Generated audio: %s (%d bytes, ~%.1fs)", outputPath, len(audioData), duration)

	return outputPath, duration, nil
}

// DefaultVoice resolves the default voice for a language code, falling back
// to the English voice for unknown prefixes.
func DefaultVoice(languageCode string) string {
	prefix, _, _ := strings.Cut(languageCode, "-")

	voice, ok := defaultVoices[prefix]
	if !ok {
		return defaultVoices["en"]
	}

	return voice
}

// EstimateDuration approximates the spoken length of a script in seconds.
func EstimateDuration(scriptText string, speakingRate float64) float64 {
	words := len(strings.Fields(scriptText))

	return float64(words) * secondsPerWord * speakingRate
}
