// Package parsing turns an uploaded document's byte stream into an ordered
// sequence of token-bounded chunks with provenance (C5). No library in the
// retrieved example corpus parses PDF/XLSX/DOCX binary formats, so format
// readers here extract text via the narrowest stdlib-adjacent means
// available per format (see DESIGN.md) while windowing, table-chunk
// boundary detection, and provenance tagging — the actual chunking
// algorithm — are hand-written against the spec, not delegated to a
// library.
package parsing

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// Format is a detected document format.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatXLSX    Format = "xlsx"
	FormatDOCX    Format = "docx"
	FormatUnknown Format = "unknown"
)

// ChunkType mirrors ent/schema/documentchunk.go's chunk_type enum.
type ChunkType string

const (
	ChunkTypeText    ChunkType = "text"
	ChunkTypeTable   ChunkType = "table"
	ChunkTypeFormula ChunkType = "formula"
	ChunkTypeImage   ChunkType = "image"
)

// Chunk is one windowed, provenance-carrying slice of a parsed document,
// the in-memory shape persisted as a DocumentChunk row.
type Chunk struct {
	ChunkIndex    int
	Content       string
	ChunkType     ChunkType
	PageNumber    *int
	SheetName     *string
	CellReference *string
	TokenCount    int
	Metadata      map[string]any
}

const (
	minWindowTokens = 512
	maxWindowTokens = 1024
	windowOverlap   = 64
)

// DetectFormat identifies a document's format from its declared mime type,
// falling back to magic-byte sniffing when the mime type is generic or
// absent (spec §4.3: "mime type then magic bytes").
func DetectFormat(mimeType string, head []byte) (Format, error) {
	switch mimeType {
	case "application/pdf":
		return FormatPDF, nil
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX, nil
	}

	sniffed := http.DetectContentType(head)
	switch {
	case strings.Contains(sniffed, "pdf"):
		return FormatPDF, nil
	case bytes.HasPrefix(head, []byte("PK\x03\x04")):
		// OOXML (xlsx/docx) is a zip; without unzipping we can't tell
		// spreadsheet from document apart from magic bytes alone.
		return FormatUnknown, apperrors.New(apperrors.ParseError, "parsing", "ambiguous OOXML container, mime type required")
	default:
		return FormatUnknown, apperrors.New(apperrors.ParseError, "parsing", fmt.Sprintf("unsupported format (mime=%q)", mimeType))
	}
}

// PageText is one page/sheet/paragraph-group of extracted text, the
// common currency every per-format reader produces before windowing.
type PageText struct {
	Text          string
	ChunkType     ChunkType
	PageNumber    *int
	SheetName     *string
	CellReference *string
	OCRProcessed  bool
	Oversize      bool
	Metadata      map[string]any
}

// Reader extracts PageText units from raw document bytes. Concrete PDF/
// XLSX/DOCX implementations live in pdf.go, xlsx.go, docx.go.
type Reader interface {
	Read(data []byte) ([]PageText, error)
}

// ReaderFor returns the Reader for a detected Format.
func ReaderFor(format Format) (Reader, error) {
	switch format {
	case FormatPDF:
		return PDFReader{}, nil
	case FormatXLSX:
		return XLSXReader{}, nil
	case FormatDOCX:
		return DOCXReader{}, nil
	default:
		return nil, apperrors.New(apperrors.ParseError, "parsing", "unsupported format")
	}
}

// Parse detects the format, reads pages, and windows them into Chunks.
func Parse(mimeType string, data []byte) ([]Chunk, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	format, err := DetectFormat(mimeType, head)
	if err != nil {
		return nil, err
	}

	reader, err := ReaderFor(format)
	if err != nil {
		return nil, err
	}

	pages, err := reader.Read(data)
	if err != nil {
		return nil, err
	}

	return Window(pages), nil
}

// Window applies the spec's 512-1024 token windowing with overlap to a
// sequence of extracted pages. Table/formula chunks are never split: a
// table that alone exceeds the window is emitted as a single oversized
// chunk flagged via metadata, never merged with neighboring text.
func Window(pages []PageText) []Chunk {
	var chunks []Chunk
	var buf strings.Builder
	var bufTokens int
	var bufPage *int
	var bufSheet *string
	var bufCell *string

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			ChunkIndex:    len(chunks),
			Content:       buf.String(),
			ChunkType:     ChunkTypeText,
			PageNumber:    bufPage,
			SheetName:     bufSheet,
			CellReference: bufCell,
			TokenCount:    bufTokens,
		})
		buf.Reset()
		bufTokens = 0
	}

	for _, p := range pages {
		if p.ChunkType == ChunkTypeTable || p.ChunkType == ChunkTypeFormula || p.ChunkType == ChunkTypeImage {
			flush()
			tokens := EstimateTokens(p.Text)
			meta := p.Metadata
			if tokens > maxWindowTokens {
				if meta == nil {
					meta = map[string]any{}
				}
				meta["oversize"] = true
			}
			if p.OCRProcessed {
				if meta == nil {
					meta = map[string]any{}
				}
				meta["ocr_processed"] = true
			}
			chunks = append(chunks, Chunk{
				ChunkIndex:    len(chunks),
				Content:       p.Text,
				ChunkType:     p.ChunkType,
				PageNumber:    p.PageNumber,
				SheetName:     p.SheetName,
				CellReference: p.CellReference,
				TokenCount:    tokens,
				Metadata:      meta,
			})
			continue
		}

		bufPage, bufSheet, bufCell = p.PageNumber, p.SheetName, p.CellReference
		words := strings.Fields(p.Text)
		for i := 0; i < len(words); i++ {
			word := words[i]
			wordTokens := EstimateTokens(word) + 1
			if bufTokens+wordTokens > maxWindowTokens && bufTokens >= minWindowTokens {
				flush()
				overlapStart := i - windowOverlap
				if overlapStart < 0 {
					overlapStart = 0
				}
				for j := overlapStart; j < i; j++ {
					buf.WriteString(words[j])
					buf.WriteByte(' ')
					bufTokens += EstimateTokens(words[j]) + 1
				}
			}
			buf.WriteString(word)
			buf.WriteByte(' ')
			bufTokens += wordTokens
		}
	}
	flush()

	return chunks
}

// EstimateTokens approximates token count as one token per four bytes. It
// drives windowing and is also the token_count persisted on each
// DocumentChunk row; no provider tokenizer is consulted.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}
