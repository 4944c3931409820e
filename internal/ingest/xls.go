package ingest

import (
	"bytes"

	"github.com/extrame/xls"
	"github.com/rotisserie/eris"
)

// readXLS reads the selected sheet of a legacy BIFF (.xls) workbook.
func readXLS(data []byte, opts Options) (records [][]string, err error) {
	// The BIFF decoder panics on some truncated or corrupt files.
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, eris.Errorf("xls: corrupt workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, eris.Wrap(err, "xls: open workbook")
	}

	var sheet *xls.WorkSheet
	if opts.Sheet != "" {
		for i := 0; i < wb.NumSheets(); i++ {
			if s := wb.GetSheet(i); s != nil && s.Name == opts.Sheet {
				sheet = s
				break
			}
		}
		if sheet == nil {
			return nil, eris.Errorf("xls: sheet %q not found", opts.Sheet)
		}
	} else {
		if opts.SheetIndex < 0 || opts.SheetIndex >= wb.NumSheets() {
			return nil, eris.Errorf("xls: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, wb.NumSheets())
		}
		sheet = wb.GetSheet(opts.SheetIndex)
		if sheet == nil {
			return nil, eris.Errorf("xls: sheet %d unreadable", opts.SheetIndex)
		}
	}

	records = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		records = append(records, cells)
	}
	return records, nil
}

// sheetRow returns row i, or nil when the sheet stores no record for it.
// The decoder dereferences a missing row instead of returning nil.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
