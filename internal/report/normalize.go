package report

import (
	"strings"
	"unicode"
)

// Normalized yes/no answers.
const (
	Yes             = "Oui"
	No              = "Non"
	NotAvailable    = "N/A"
	Unknown         = "Unknown"
	TranscriptError = "Transcript Error"
)

// Normalized politeness answers.
const (
	Professional   = "Professional"
	Unprofessional = "Unprofessional"
	AnalysisError  = "Analysis Error"
)

// transcriptErrorLen is the answer length past which a yes/no answer is
// taken to be the model complaining about the transcript.
const transcriptErrorLen = 110

var (
	yesWords = map[string]bool{"oui": true, "yes": true, "y": true, "true": true, "1": true, "resolu": true, "résolu": true}
	noWords  = map[string]bool{"non": true, "no": true, "n": true, "false": true, "0": true}
)

// NormalizeYesNo maps a free-text model answer to Oui, Non, N/A, Unknown or
// Transcript Error. An answer opening with a negation is Non even when it
// goes on to mention a positive word ("Non résolu").
func NormalizeYesNo(answer string) string {
	clean := strings.ToLower(strings.TrimSpace(answer))
	if clean == "" {
		return NotAvailable
	}
	ws := words(clean)
	if len(ws) > 0 && noWords[ws[0]] {
		return No
	}
	for _, w := range ws {
		if yesWords[w] {
			return Yes
		}
	}
	if len([]rune(clean)) > transcriptErrorLen {
		return TranscriptError
	}
	return Unknown
}

var (
	impoliteMarkers = []string{"impoli", "unprofessional", "non professionnel", "pas professionnel", "not professional", "manque de"}
	politeMarkers   = []string{"oui", "yes", "poli", "courtois", "professionnel", "professional"}
	errorMarkers    = []string{"transcript", "manquant", "incomplet"}
)

// NormalizePoliteness maps a politeness answer to Professional,
// Unprofessional, Analysis Error, Unknown or N/A.
func NormalizePoliteness(answer string) string {
	clean := strings.ToLower(strings.TrimSpace(answer))
	if clean == "" {
		return NotAvailable
	}
	if ws := words(clean); containsAny(clean, impoliteMarkers) || (len(ws) > 0 && noWords[ws[0]]) {
		return Unprofessional
	}
	if containsAny(clean, politeMarkers) {
		return Professional
	}
	if containsAny(clean, errorMarkers) || len([]rune(clean)) > 50 {
		return AnalysisError
	}
	return Unknown
}

// IsPolite reports whether a politeness answer normalizes to Professional.
func IsPolite(answer string) bool {
	return NormalizePoliteness(answer) == Professional
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// flag renders a boolean the way the yes/no columns do.
func flag(b bool) string {
	if b {
		return Yes
	}
	return No
}
