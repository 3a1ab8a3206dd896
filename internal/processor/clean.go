package processor

import (
	"regexp"
	"strings"
)

var (
	reHeading  = regexp.MustCompile(`#+\s+`)
	reEmphasis = regexp.MustCompile(`[*_~]{1,3}(.*?)[*_~]{1,3}`)
	reFence    = regexp.MustCompile("(?s)```.*?```")
	reLink     = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	reNumbered = regexp.MustCompile(`\n\d+\.\s+`)
	reSpaces   = regexp.MustCompile(`\s{2,}`)
)

var leadIns = []string{
	"Après avoir analysé la transcription de l'appel, ",
	"Voici ",
	"D'après l'analyse de la transcription, ",
	"Basé sur la transcription fournie, ",
	"Based on the transcript, ",
	"Here is ",
}

// cleanAnswer flattens a free-text model answer to one line: lead-in phrases
// and markdown are dropped, bullets become " • " and numbered items " | ".
// HTML list tags are kept.
func cleanAnswer(text string) string {
	if text == "" {
		return text
	}
	for _, p := range leadIns {
		if strings.HasPrefix(text, p) {
			text = text[len(p):]
			break
		}
	}

	text = reFence.ReplaceAllString(text, "")
	text = reHeading.ReplaceAllString(text, "")
	text = reEmphasis.ReplaceAllString(text, "$1")
	text = reLink.ReplaceAllString(text, "$1")

	text = strings.ReplaceAll(text, `\n`, "\n")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n- ", " • ")
	text = strings.ReplaceAll(text, "\n* ", " • ")
	text = reNumbered.ReplaceAllString(text, " | ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = reSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
