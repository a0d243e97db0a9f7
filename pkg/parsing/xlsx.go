package parsing

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// XLSXReader extracts per-sheet table blocks from a .xlsx workbook, again
// relying on stdlib archive/zip + encoding/xml since OOXML spreadsheets
// are just zipped XML parts.
type XLSXReader struct{}

type xlsxWorkbook struct {
	Sheets struct {
		Sheet []struct {
			Name    string `xml:"name,attr"`
			SheetID string `xml:"sheetId,attr"`
			State   string `xml:"state,attr"`
			RID     string `xml:"id,attr"`
		} `xml:"sheet"`
	} `xml:"sheets"`
}

type xlsxSheetData struct {
	SheetData struct {
		Row []struct {
			R  string `xml:"r,attr"`
			C  []struct {
				R string `xml:"r,attr"`
				T string `xml:"t,attr"`
				F string `xml:"f"`
				V string `xml:"v"`
			} `xml:"c"`
		} `xml:"row"`
	} `xml:"sheetData"`
}

func (XLSXReader) Read(data []byte) ([]PageText, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ParseError, "parsing", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	wbFile, ok := files["xl/workbook.xml"]
	if !ok {
		return nil, apperrors.New(apperrors.ParseError, "parsing", "corrupted: xl/workbook.xml missing")
	}
	wbBytes, err := readZipFile(wbFile)
	if err != nil {
		return nil, err
	}
	var wb xlsxWorkbook
	if err := xml.Unmarshal(wbBytes, &wb); err != nil {
		return nil, apperrors.Wrap(apperrors.ParseError, "parsing", err)
	}

	var pages []PageText
	for i, sheet := range wb.Sheets.Sheet {
		sheetPath := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		sheetFile, ok := files[sheetPath]
		if !ok {
			continue
		}
		if sheet.State == "hidden" || sheet.State == "veryHidden" {
			pages = append(pages, PageText{
				Text:      "",
				ChunkType: ChunkTypeTable,
				SheetName: &sheet.Name,
				Metadata:  map[string]any{"hidden_sheet": true},
			})
			continue
		}

		sheetBytes, err := readZipFile(sheetFile)
		if err != nil {
			return nil, err
		}
		var sheetData xlsxSheetData
		if err := xml.Unmarshal(sheetBytes, &sheetData); err != nil {
			return nil, apperrors.Wrap(apperrors.ParseError, "parsing", err)
		}

		sheetName := sheet.Name
		for _, row := range sheetData.SheetData.Row {
			var cells []string
			var anchor string
			for _, c := range row.C {
				if anchor == "" {
					anchor = c.R
				}
				if c.F != "" {
					cells = append(cells, fmt.Sprintf("%s=%s (%s)", c.R, c.F, c.V))
				} else {
					cells = append(cells, c.V)
				}
			}
			if len(cells) == 0 {
				continue
			}
			anchorCopy := anchor
			chunkType := ChunkTypeTable
			hasFormula := rowHasFormula(row.C)
			if hasFormula {
				chunkType = ChunkTypeFormula
			}
			pages = append(pages, PageText{
				Text:          strings.Join(cells, " | "),
				ChunkType:     chunkType,
				SheetName:     &sheetName,
				CellReference: &anchorCopy,
			})
		}
	}

	return pages, nil
}

func rowHasFormula(cells []struct {
	R string `xml:"r,attr"`
	T string `xml:"t,attr"`
	F string `xml:"f"`
	V string `xml:"v"`
}) bool {
	for _, c := range cells {
		if c.F != "" {
			return true
		}
	}
	return false
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ParseError, "parsing", err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ParseError, "parsing", err)
	}
	return b, nil
}
