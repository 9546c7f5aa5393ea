package parser

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ooxmlMagic = []byte("PK\x03\x04")
	biffMagic  = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// Sheet is one worksheet materialized as a grid of cell text. Err is set when
// the sheet itself could not be read; other sheets may still be usable.
type Sheet struct {
	Name string
	Rows [][]string
	Err  error
}

// Workbook is a spreadsheet read fully into memory.
type Workbook struct {
	Sheets []Sheet
}

// OpenWorkbook reads an .xls (BIFF) or .xlsx (OOXML) workbook. The format is
// sniffed from the content first and from the name's extension second.
func OpenWorkbook(name string, data []byte) (*Workbook, error) {
	switch {
	case bytes.HasPrefix(data, ooxmlMagic):
		return openXLSX(name, data)
	case bytes.HasPrefix(data, biffMagic):
		return openXLS(name, data)
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx":
		return openXLSX(name, data)
	case ".xls":
		return openXLS(name, data)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnreadableWorkbook)
}

func openXLSX(name string, data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
		wb.Sheets = append(wb.Sheets, Sheet{Name: sheetName, Rows: rows, Err: err})
	}
	return wb, nil
}

func openXLS(name string, data []byte) (wb *Workbook, err error) {
	// The BIFF reader panics on some truncated streams.
	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = fmt.Errorf("%s: %w: %v", name, ErrUnreadableWorkbook, r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrUnreadableWorkbook, err)
	}

	wb = &Workbook{}
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			wb.Sheets = append(wb.Sheets, Sheet{
				Name: fmt.Sprintf("sheet%d", i+1),
				Err:  fmt.Errorf("sheet %d: not readable", i),
			})
			continue
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: sheet.Name, Rows: xlsRows(sheet)})
	}
	return wb, nil
}

func xlsRows(sheet *xls.WorkSheet) [][]string {
	if sheet.MaxRow == 0 && sheet.Row(0) == nil {
		return nil
	}
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for c := 0; c <= row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		rows = append(rows, cells)
	}
	return rows
}
