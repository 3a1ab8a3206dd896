package dataset

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Entry is one audio file listed in an import manifest.
type Entry struct {
	Row             int     `json:"row"`
	FileName        string  `json:"fileName"`
	AudioURL        string  `json:"audioUrl"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

// Skipped is a manifest row that could not be imported.
type Skipped struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type Manifest struct {
	Entries []Entry
	Skipped []Skipped
}

// Load reads the first sheet of an xlsx manifest. Columns are found by
// header heuristics.
func Load(p string) (*Manifest, error) {
	f, err := excelize.OpenFile(p)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return read(f)
}

// LoadReader is Load for an already opened workbook stream.
func LoadReader(r io.Reader) (*Manifest, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return read(f)
}

type columns struct {
	audio, name, duration int
}

// detect finds the audio URL, file name and duration columns.
func detect(header []string) columns {
	c := columns{audio: -1, name: -1, duration: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "url") || strings.Contains(l, "link") || strings.Contains(l, "lien") || strings.Contains(l, "record"):
			if c.audio == -1 {
				c.audio = i
			}
		case strings.Contains(l, "file") || strings.Contains(l, "fichier") || strings.Contains(l, "name") || strings.Contains(l, "nom"):
			if c.name == -1 {
				c.name = i
			}
		case strings.Contains(l, "duration") || strings.Contains(l, "durée") || strings.Contains(l, "duree"):
			if c.duration == -1 {
				c.duration = i
			}
		case strings.Contains(l, "audio"):
			if c.audio == -1 {
				c.audio = i
			}
		}
	}
	return c
}

func read(f *excelize.File) (*Manifest, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}
	cols := detect(rows[0])
	if cols.audio == -1 {
		return nil, fmt.Errorf("no audio url column in header %v", rows[0])
	}

	m := &Manifest{}
	for i, r := range rows[1:] {
		rowNum := i + 2
		cell := func(idx int) string {
			if idx < 0 || idx >= len(r) {
				return ""
			}
			return strings.TrimSpace(r[idx])
		}
		if strings.Join(r, "") == "" {
			continue
		}

		e := Entry{Row: rowNum, AudioURL: cell(cols.audio), FileName: cell(cols.name)}
		u, err := url.Parse(e.AudioURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			m.Skipped = append(m.Skipped, Skipped{Row: rowNum, Reason: "audio url is not http(s)"})
			continue
		}
		if e.FileName == "" {
			e.FileName = path.Base(u.Path)
		}
		if e.FileName == "" || e.FileName == "/" || e.FileName == "." {
			m.Skipped = append(m.Skipped, Skipped{Row: rowNum, Reason: "no file name"})
			continue
		}
		if d := cell(cols.duration); d != "" {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(d, ",", "."), 64); err == nil {
				e.DurationSeconds = v
			}
		}
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}
