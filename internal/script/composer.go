package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/podcast-service/internal/core"
)

// Rough words-per-token ratio used to translate the word budget into a token
// cap for the generative service.
const tokensPerWord = 2

// ErrScriptEmpty indicates the generative service returned text that was
// empty after cleanup.
var ErrScriptEmpty = errors.New("generated script is empty")

// languageNames maps language-code prefixes to the names used in prompts.
var languageNames = map[string]string{
	"en": "English",
	"fr": "French",
	"es": "Spanish",
	"de": "German",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
}

// Composer turns a retrieved corpus (or a bare keyword, in fallback mode)
// into a cleaned podcast script via the generative text service.
type Composer struct {
	generator core.ScriptGenerator
	log       *logger.Logger
}

// NewComposer creates a composer over the given generator.
func NewComposer(generator core.ScriptGenerator, log *logger.Logger) *Composer {
	return &Composer{
		generator: generator,
		log:       log,
	}
}

// Compose builds a corpus-grounded prompt and returns the cleaned script.
func (c *Composer) Compose(
	ctx context.Context,
	keyword string,
	corpus core.Corpus,
	maxLength int,
	languageCode string,
) (string, error) {
	prompt := buildCorpusPrompt(keyword, corpus, maxLength, languageCode)

	return c.generate(ctx, prompt, maxLength)
}

// ComposeFallback builds a keyword-only prompt for jobs where retrieval
// produced nothing usable and the caller opted into the fallback.
func (c *Composer) ComposeFallback(
	ctx context.Context,
	keyword string,
	maxLength int,
	languageCode string,
) (string, error) {
	prompt := buildFallbackPrompt(keyword, maxLength, languageCode)

	c.log.Info("Composing fallback script for %q without retrieved news", keyword)

	return c.generate(ctx, prompt, maxLength)
}

func (c *Composer) generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	raw, err := c.generator.Generate(ctx, prompt, maxLength*tokensPerWord)
	if err != nil {
		return "", fmt.Errorf("script generation failed: %w", err)
	}

	cleaned := Sanitize(raw)
	if cleaned == "" {
		return "", ErrScriptEmpty
	}

	return cleaned, nil
}

// buildCorpusPrompt embeds each snippet with its source attribution and the
// calibration instructions shared by both prompt shapes.
func buildCorpusPrompt(keyword string, corpus core.Corpus, maxLength int, languageCode string) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "Create a podcast script about %s based on these news items:\n\n", keyword)

	for _, snippet := range corpus {
		source := snippet.Source
		if source == "" {
			source = "Unknown Source"
		}

		fmt.Fprintf(&builder, "Item from %s:\n%s\n\n", source, snippet.Text)
	}

	appendCalibration(&builder, maxLength, languageCode)

	return builder.String()
}

// buildFallbackPrompt asks for a script from general knowledge of the topic.
func buildFallbackPrompt(keyword string, maxLength int, languageCode string) string {
	var builder strings.Builder

	fmt.Fprintf(
		&builder,
		"Create a podcast script about %s drawing on your general knowledge of the topic.\n\n",
		keyword,
	)

	appendCalibration(&builder, maxLength, languageCode)

	return builder.String()
}

// appendCalibration writes the shared instructions: target language, the i+1
// difficulty framing, and the length cap.
func appendCalibration(builder *strings.Builder, maxLength int, languageCode string) {
	fmt.Fprintf(builder, "Write the script in %s.\n", LanguageName(languageCode))
	builder.WriteString(
		"Calibrate the vocabulary and sentence complexity slightly above the " +
			"listener's current proficiency, so the content remains comprehensible " +
			"while stretching their level.\n",
	)
	fmt.Fprintf(builder, "Keep the script under %d words.\n", maxLength)
	builder.WriteString(
		"Use a conversational tone with an engaging introduction and a conclusion " +
			"that ties the items together. Output plain spoken text only, with no " +
			"stage directions or formatting markers.",
	)
}

// LanguageName resolves a language code such as "en-GB" to the natural name
// used in prompts, defaulting to English for unknown prefixes.
func LanguageName(languageCode string) string {
	prefix, _, _ := strings.Cut(languageCode, "-")

	name, ok := languageNames[prefix]
	if !ok {
		return "English"
	}

	return name
}
