package parsing

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// DOCXReader extracts paragraphs and tables from a .docx file. OOXML is a
// zip of XML parts, so archive/zip + encoding/xml (both stdlib) parse it
// directly — no third-party OOXML library is needed for this format.
type DOCXReader struct{}

type docxBody struct {
	XMLName xml.Name   `xml:"body"`
	Items   []docxItem `xml:",any"`
}

type docxItem struct {
	XMLName xml.Name
	Rows    []docxRow  `xml:"tr"`
	Runs    []docxRun  `xml:"r"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paragraphs []struct {
		Runs []docxRun `xml:"r"`
	} `xml:"p"`
}

type docxRun struct {
	Text string `xml:"t"`
}

func (DOCXReader) Read(data []byte) ([]PageText, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ParseError, "parsing", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ParseError, "parsing", err)
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ParseError, "parsing", err)
			}
			break
		}
	}
	if docXML == nil {
		return nil, apperrors.New(apperrors.ParseError, "parsing", "corrupted: word/document.xml missing")
	}

	var body docxBody
	if err := xml.Unmarshal(docXML, &body); err != nil {
		return nil, apperrors.Wrap(apperrors.ParseError, "parsing", err)
	}

	var pages []PageText
	var paragraphBuf strings.Builder
	flushParagraphs := func() {
		text := strings.TrimSpace(paragraphBuf.String())
		if text != "" {
			pages = append(pages, PageText{Text: text, ChunkType: ChunkTypeText})
		}
		paragraphBuf.Reset()
	}

	for _, item := range body.Items {
		switch item.XMLName.Local {
		case "p":
			for _, r := range item.Runs {
				paragraphBuf.WriteString(r.Text)
				paragraphBuf.WriteByte(' ')
			}
		case "tbl":
			flushParagraphs()
			pages = append(pages, PageText{Text: renderDocxTable(item), ChunkType: ChunkTypeTable})
		}
	}
	flushParagraphs()

	return pages, nil
}

func renderDocxTable(tbl docxItem) string {
	var b strings.Builder
	for _, row := range tbl.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			var cellText strings.Builder
			for _, p := range c.Paragraphs {
				for _, r := range p.Runs {
					cellText.WriteString(r.Text)
				}
			}
			cells[i] = cellText.String()
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}
