package services

import (
	"fmt"
	"os"
	"time"

	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/models"

	"github.com/ledongthuc/pdf"
)

// maxExtractSize caps in-memory extraction to avoid OOM on hostile files.
const maxExtractSize = 200 << 20

// PDFExtractor pulls per-page text out of PDF files.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractPages returns one PageText per physical page, numbered from 1.
// Pages whose text cannot be read yield an empty Text rather than failing
// the whole document, so page numbering stays contiguous. A file that
// cannot be opened or parsed at all returns ErrExtraction.
func (e *PDFExtractor) ExtractPages(filePath string) ([]models.PageText, error) {
	start := time.Now()

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", models.ErrExtraction, filePath, err)
	}
	if stat.Size() > maxExtractSize {
		return nil, fmt.Errorf("%w: file too large for extraction (%d bytes)", models.ErrExtraction, stat.Size())
	}

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening pdf: %v", models.ErrExtraction, err)
	}
	defer f.Close()

	total := reader.NumPage()
	if total <= 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", models.ErrExtraction)
	}

	pages := make([]models.PageText, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.PageText{Number: i})
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract page text", "page", i, "file", filePath, "error", err)
			pages = append(pages, models.PageText{Number: i})
			continue
		}
		pages = append(pages, models.PageText{Number: i, Text: text})
	}

	logger.Debug("PDF extraction complete",
		"file", filePath,
		"pages", total,
		"duration_ms", time.Since(start).Milliseconds())
	return pages, nil
}
