package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"askpdf/internal/models"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the header looks like the start of a PDF file.
func IsPDF(header []byte) bool {
	return bytes.HasPrefix(header, pdfMagic)
}

// ExtractFile opens the PDF at filePath and returns its text.
func ExtractFile(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	return ExtractText(f, stat.Size())
}

// ExtractText concatenates the plain text of every page in reading order.
// A page that fails to extract or holds no text contributes nothing; a PDF
// without any text yields "" so the empty index error surfaces downstream.
func ExtractText(r io.ReaderAt, size int64) (text string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: %v", models.ErrUnreadablePDF, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUnreadablePDF, err)
	}

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	numPages := reader.NumPage()
	skipped := 0
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			skipped++
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}

		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("Skipping page without extractable text")
			skipped++
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			log.Warn().Int("page", i).Msg("Page has no text (scanned image?)")
			skipped++
			continue
		}
		sb.WriteString(pageText)
	}

	log.Debug().Int("pages", numPages).Int("skipped", skipped).Int("chars", sb.Len()).Msg("Extracted PDF text")
	return sb.String(), nil
}
