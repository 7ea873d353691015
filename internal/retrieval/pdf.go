package retrieval

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageText is the extracted plain text of one PDF page.
type PageText struct {
	Page int
	Text string
}

// ExtractPDF pulls per-page plain text out of a PDF file. Pages that
// fail to decode are skipped; an error is returned only when the file
// itself cannot be opened.
func ExtractPDF(path string) ([]PageText, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var out []PageText
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, PageText{Page: i, Text: text})
	}
	return out, nil
}
