package parsing

import (
	"bytes"
	"regexp"
	"strings"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// PDFReader extracts per-page text from a PDF by scanning each page's
// content stream for literal-string show-text operators. No PDF library
// exists in the example corpus (see DESIGN.md): this covers the common
// case of simple, uncompressed text content streams. A page whose content
// stream yields no extractable text is assumed image-only and returned
// with OCRProcessed set and ocr_pending metadata. No OCR runs on it, and
// Window emits no chunk for a text page without text.
type PDFReader struct{}

var (
	pdfPageMarker = regexp.MustCompile(`/Type\s*/Page\b`)
	pdfShowText   = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	pdfEncrypted  = regexp.MustCompile(`/Encrypt\s+\d+\s+\d+\s+R`)
)

func (PDFReader) Read(data []byte) ([]PageText, error) {
	if pdfEncrypted.Match(data) {
		return nil, apperrors.New(apperrors.ParseError, "parsing", "encrypted")
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, apperrors.New(apperrors.ParseError, "parsing", "corrupted: missing PDF header")
	}

	pageBoundaries := pdfPageMarker.FindAllIndex(data, -1)
	if len(pageBoundaries) == 0 {
		return nil, apperrors.New(apperrors.ParseError, "parsing", "corrupted: no page objects found")
	}

	var pages []PageText
	for i, bound := range pageBoundaries {
		start := bound[0]
		end := len(data)
		if i+1 < len(pageBoundaries) {
			end = pageBoundaries[i+1][0]
		}
		pageNum := i + 1
		text := extractPageText(data[start:end])

		if strings.TrimSpace(text) == "" {
			pages = append(pages, PageText{
				Text:         "",
				ChunkType:    ChunkTypeText,
				PageNumber:   &pageNum,
				OCRProcessed: true,
				Metadata:     map[string]any{"ocr_pending": true},
			})
			continue
		}

		pages = append(pages, PageText{
			Text:       text,
			ChunkType:  ChunkTypeText,
			PageNumber: &pageNum,
		})
	}

	return pages, nil
}

func extractPageText(segment []byte) string {
	matches := pdfShowText.FindAllSubmatch(segment, -1)
	var b strings.Builder
	for _, m := range matches {
		b.Write(unescapePDFString(m[1]))
		b.WriteByte(' ')
	}
	return b.String()
}

func unescapePDFString(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, s[i])
			}
			continue
		}
		out = append(out, s[i])
	}
	return out
}
