package shipping

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// LabelFilePrefix starts the file name of downloaded label PDFs.
	LabelFilePrefix = "myparcel-label-"

	// DefaultA4Position is the first label position used on A4 paper.
	DefaultA4Position = 1

	paperA4 = "A4"
	paperA6 = "A6"

	labelTimeLayout = "2006-Jan-02 15-04-05"
	expiresInPast   = "Sat, 26 Jul 1997 05:00:00 GMT"
)

// LabelFormat selects the paper size of a label PDF and, for A4, the
// positions on the first sheet (1 top-left, 2 top-right, 3 bottom-left,
// 4 bottom-right). Later sheets always use all four positions.
type LabelFormat struct {
	Paper     string
	Positions []int
}

// A6 prints one label per sheet.
func A6() LabelFormat {
	return LabelFormat{Paper: paperA6}
}

// A4 prints up to four labels per sheet. A single position fills the
// ascending positions after it (2 gives 2;3;4); several positions are
// used as given. Without positions the whole sheet is used.
func A4(positions ...int) (LabelFormat, error) {
	if len(positions) == 0 {
		positions = []int{DefaultA4Position}
	}
	for _, p := range positions {
		if p < 1 || p > 4 {
			return LabelFormat{}, ErrInvalidLabelPosition
		}
	}

	if len(positions) == 1 {
		start := positions[0]
		positions = positions[:0:0]
		for p := start; p <= 4; p++ {
			positions = append(positions, p)
		}
	}

	return LabelFormat{Paper: paperA4, Positions: positions}, nil
}

// ParseLabelFormat reads a format name and a ';' or ',' separated list of
// positions as they appear in query strings and flags. Positions without a
// format select A4.
func ParseLabelFormat(paper, positions string) (LabelFormat, error) {
	paper = strings.ToUpper(strings.TrimSpace(paper))
	positions = strings.TrimSpace(positions)

	switch paper {
	case "":
		if positions == "" {
			return A6(), nil
		}
	case paperA6:
		if positions != "" {
			return LabelFormat{}, ErrInvalidLabelPosition
		}
		return A6(), nil
	case paperA4:
	default:
		return LabelFormat{}, ErrInvalidLabelFormat
	}

	var ps []int
	for _, field := range strings.FieldsFunc(positions, func(r rune) bool { return r == ';' || r == ',' || r == ' ' }) {
		p, err := strconv.Atoi(field)
		if err != nil {
			return LabelFormat{}, ErrInvalidLabelPosition
		}
		ps = append(ps, p)
	}
	return A4(ps...)
}

func (f LabelFormat) String() string {
	if f.Paper != paperA4 {
		return paperA6
	}
	return paperA4
}

// Query returns the query string appended to label requests.
func (f LabelFormat) Query() string {
	if f.Paper != paperA4 {
		return "?format=" + paperA6
	}
	parts := make([]string, len(f.Positions))
	for i, p := range f.Positions {
		parts[i] = strconv.Itoa(p)
	}
	return "?format=" + paperA4 + "&positions=" + strings.Join(parts, ";")
}

// LabelFilename returns the download name of a label PDF created at now.
func LabelFilename(now time.Time) string {
	return LabelFilePrefix + now.UTC().Format(labelTimeLayout) + ".pdf"
}

// WriteLabelPDF sends pdf as a download, or for inline display in the
// browser when inline is set.
func WriteLabelPDF(w http.ResponseWriter, pdf []byte, inline bool, now time.Time) error {
	if len(pdf) == 0 {
		return ErrEmptyLabel
	}

	disposition := "attachment"
	if inline {
		disposition = "inline"
	}

	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Length", strconv.Itoa(len(pdf)))
	h.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, LabelFilename(now)))
	h.Set("Cache-Control", "public, must-revalidate, max-age=0")
	h.Set("Pragma", "public")
	h.Set("Expires", expiresInPast)
	h.Set("Last-Modified", now.UTC().Format(http.TimeFormat))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		return fmt.Errorf("failed to write label: %w", err)
	}
	return nil
}
