// Package extractor turns receipt PDFs into plain text.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"mercagasto/domain"

	"github.com/ledongthuc/pdf"
)

const (
	minTextLength  = 20
	minTextQuality = 0.6
)

type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the text of every page, one printed row per line. Failures
// and unreadable output are reported as domain.ErrExtraction.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrEmptyAttachment
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pages, err := extractPages(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	if !IsReadableText(pages) {
		return "", fmt.Errorf("%w: no readable text, the file may be scanned", domain.ErrExtraction)
	}
	return strings.Join(pages, "\n"), nil
}

func extractPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages = extractByRow(r, numPages)
	if IsReadableText(pages) {
		return pages, nil
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return pages, nil
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return pages, nil
	}
	if text := strings.TrimSpace(buf.String()); text != "" {
		return []string{text}, nil
	}
	return pages, nil
}

func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				if s := strings.TrimSpace(word.S); s != "" {
					parts = append(parts, s)
				}
			}
			if line := strings.Join(parts, " "); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// IsReadableText reports whether pages hold enough printable text to be a
// real receipt rather than glyph garbage.
func IsReadableText(pages []string) bool {
	length := 0
	for _, p := range pages {
		length += len(strings.TrimSpace(p))
	}
	if length < minTextLength {
		return false
	}
	return textQuality(pages) >= minTextQuality
}

// textQuality is the share of letters, digits, spaces and common receipt
// punctuation among all runes.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(".,-/:;()%€*+'\"&#", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}
