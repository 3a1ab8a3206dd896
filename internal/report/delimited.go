package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Separator is the field separator of delimited exports. Spreadsheet
// locales that use a decimal comma expect a semicolon.
const Separator = ';'

var bom = []byte("\uFEFF")

// FoldDiacritics strips accents so "Réclamation" becomes "Reclamation".
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// WriteDelimited writes t as UTF-8 with a byte order mark, semicolon
// separated, with diacritics folded.
func WriteDelimited(w io.Writer, t Table) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.Comma = Separator

	write := func(cells []string) error {
		folded := make([]string, len(cells))
		for i, c := range cells {
			folded[i] = FoldDiacritics(c)
		}
		return cw.Write(folded)
	}
	if err := write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
