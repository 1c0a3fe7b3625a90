package script

import "strings"

// markerReplacer strips the formatting the generative service tends to emit
// despite being told not to: markdown emphasis, speaker labels, and section
// headers that read badly when spoken aloud.
var markerReplacer = strings.NewReplacer(
	"**", "",
	"*", "",
	"[", "",
	"]", "",
	"Host:", "",
	"Intro:", "",
	"Outro:", "",
	"---", "",
)

// Sanitize cleans a raw generated script for speech synthesis. Lines that are
// pure stage directions, i.e. fully wrapped in parentheses, are dropped.
func Sanitize(raw string) string {
	cleaned := markerReplacer.Replace(raw)

	lines := strings.Split(cleaned, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") && trimmed != "" {
			continue
		}

		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}
