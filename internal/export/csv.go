// Package export writes the marked-camera report as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"

	"camdash/internal/model"
)

// ErrNothingMarked is returned when there is no marked camera to export.
var ErrNothingMarked = errors.New("no marked cameras to export")

// Header is the first CSV record.
var Header = []string{"Store", "Position", "Filename", "Marked at", "Note"}

const fallbackLayout = "2006-01-02 15:04:05"

var supported = []language.Tag{
	language.BrazilianPortuguese,
	language.AmericanEnglish,
	language.BritishEnglish,
}

var layouts = map[language.Tag]string{
	language.BrazilianPortuguese: "02/01/2006 15:04:05",
	language.AmericanEnglish:     "1/2/2006 3:04:05 PM",
	language.BritishEnglish:      "02/01/2006 15:04:05",
}

var matcher = language.NewMatcher(supported)

// Exporter renders marked cameras for one locale.
type Exporter struct {
	layout string
}

// New returns an exporter for a BCP 47 locale such as "pt-BR". Unknown or
// unparsable locales fall back to an ISO-like layout.
func New(locale string) *Exporter {
	tag, err := language.Parse(locale)
	if err != nil {
		return &Exporter{layout: fallbackLayout}
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return &Exporter{layout: fallbackLayout}
	}
	return &Exporter{layout: layouts[supported[idx]]}
}

// FileName is the download name of the report generated at now.
func FileName(now time.Time) string {
	return "cameras_ruins_" + now.Format("2006-01-02") + ".csv"
}

// Sanitize makes free text safe for an unquoted CSV field: commas become
// semicolons and line breaks become spaces.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, ",", ";")
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

// FormatMarkedAt renders a backend timestamp in the exporter's locale. Values
// that do not parse are sanitized and kept as-is.
func (e *Exporter) FormatMarkedAt(raw string) string {
	t, ok := model.ParseTimestamp(raw)
	if !ok {
		return Sanitize(raw)
	}
	return t.Format(e.layout)
}

// Record converts one marked camera to a CSV record.
func (e *Exporter) Record(row model.MarkedExport) []string {
	return []string{
		Sanitize(row.Loja),
		Sanitize(string(row.Position)),
		Sanitize(row.Filename),
		e.FormatMarkedAt(row.MarkedAt),
		Sanitize(row.Note),
	}
}

// Write emits the header and one record per row. It returns ErrNothingMarked
// without writing anything when rows is empty.
func (e *Exporter) Write(w io.Writer, rows []model.MarkedExport) error {
	if len(rows) == 0 {
		return ErrNothingMarked
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(e.Record(row)); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
