package spreadsheet

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/user/titledate-verifier/internal/entity"
)

// XLSXReader reads workbooks with excelize.
type XLSXReader struct {
	cols Columns
}

func NewXLSXReader(cols Columns) *XLSXReader {
	return &XLSXReader{cols: cols.withDefaults()}
}

// ReadRows returns one RawRow per non-blank data row. Numbers are sheet row
// numbers, so the header is row 1. Numeric date cells are converted with
// the workbook's date system.
func (r *XLSXReader) ReadRows(ctx context.Context, path string) ([]entity.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := r.cols.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("workbook has no sheet %q", sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, errNoHeader)
	}
	h, err := findHeader(rows[0], r.cols)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	out := make([]entity.RawRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, entity.RawRow{
			Number: i + 2,
			Date:   dateCell(f, sheet, h.date, i+2, cell(row, h.date), date1904),
			Title:  cell(row, h.title),
		})
	}
	return out, nil
}

// maxSerial is the serial of 10000-01-01.
const maxSerial = 2958466

// dateCell keeps text cells as text even when they hold digits; only
// numeric cells carry serials.
func dateCell(f *excelize.File, sheet string, col, rowNum int, raw string, date1904 bool) any {
	ref, err := excelize.CoordinatesToCellName(col+1, rowNum)
	if err != nil {
		return dateValue(raw, date1904)
	}
	switch typ, err := f.GetCellType(sheet, ref); {
	case err != nil:
		return dateValue(raw, date1904)
	case typ == excelize.CellTypeSharedString, typ == excelize.CellTypeInlineString:
		if s := strings.TrimSpace(raw); s != "" {
			return s
		}
		return nil
	}
	return dateValue(raw, date1904)
}

// dateValue turns a raw serial into a time; anything else stays text for
// the row parser.
func dateValue(raw string, date1904 bool) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	serial, err := strconv.ParseFloat(s, 64)
	// Eight-digit numbers such as 20200501 are past the last serial and
	// stay text.
	if err != nil || serial < 1 || serial >= maxSerial {
		return s
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return s
	}
	return t
}
