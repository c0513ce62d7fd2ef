package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const unicodeFontFamily = "ScheduleUnicode"

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter. fontPath optionally points at a TTF
// font with Cyrillic glyphs; without it the core Arial font is used and
// characters outside cp1252 cannot be rendered.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath}
}

// ContentType returns the MIME type of rendered documents.
func (e *PDFExporter) ContentType() string {
	return "application/pdf"
}

// Render creates a landscape PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	family := "Arial"
	translate := func(s string) string { return s }
	if e.fontPath != "" {
		pdf.AddUTF8Font(unicodeFontFamily, "", e.fontPath)
		pdf.AddUTF8Font(unicodeFontFamily, "B", e.fontPath)
		family = unicodeFontFamily
	} else {
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load pdf font: %w", err)
	}

	pdf.AddPage()

	if title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, translate(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont(family, "B", 10)
	colWidth := 277.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, translate(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, translate(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
