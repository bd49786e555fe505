package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts the text layer of PDF documents. Page texts are joined with
// blank lines so page breaks survive as paragraph breaks.
type PDF struct{}

// NewPDF creates a PDF extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// Extensions returns the PDF extension.
func (*PDF) Extensions() []string {
	return []string{".pdf"}
}

// Extract returns the concatenated plain text of every page.
func (*PDF) Extract(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer file.Close()

	pages := make([]string, 0, reader.NumPage())
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract pdf page %d of %s: %w", pageNum, path, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n\n"), nil
}
