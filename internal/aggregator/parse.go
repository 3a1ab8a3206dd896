package aggregator

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+([.,]\d*)?|[.,]\d+)`)
	listItem     = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	bulletLine   = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	htmlTag      = regexp.MustCompile(`<[^>]*>`)
)

// parseLeadingInt reads the integer a free-text answer starts with, so
// "9/10" is 9 and "n/a" is invalid.
func parseLeadingInt(s string) (int, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseLeadingFloat is parseLeadingInt for decimals; a comma separator is
// accepted.
func parseLeadingFloat(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func containsAny(s string, tokens []string) bool {
	s = strings.ToLower(s)
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

type resolution int

const (
	unresolved resolution = iota
	resolved
	partiallyResolved
)

// classifyResolution checks yes tokens before partial tokens.
func classifyResolution(answer string, yes, partial []string) resolution {
	switch {
	case containsAny(answer, yes):
		return resolved
	case containsAny(answer, partial):
		return partiallyResolved
	}
	return unresolved
}

// listItems pulls the entries of an HTML or markdown list. Plain text with
// no list markup yields nothing.
func listItems(text string) []string {
	var out []string
	if matches := listItem.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		for _, m := range matches {
			if item := cleanItem(m[1]); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	for _, line := range strings.Split(text, "\n") {
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			if item := cleanItem(m[1]); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func cleanItem(s string) string {
	return strings.Join(strings.Fields(htmlTag.ReplaceAllString(s, " ")), " ")
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(n) / float64(total) * 100)
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

func round2(f float64) float64 { return math.Round(f*100) / 100 }
