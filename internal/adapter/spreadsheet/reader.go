// Package spreadsheet reads verification rows from .xlsx/.xlsm workbooks and
// .csv files.
package spreadsheet

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/pkg/textnorm"
)

// Default header names of the required columns.
const (
	DefaultDateColumn  = "发布时间"
	DefaultTitleColumn = "标题"
)

// Columns names the required headers and, for workbooks, the sheet to read.
type Columns struct {
	Date  string
	Title string
	// Sheet is the worksheet name; empty means the first sheet.
	Sheet string
}

func (c Columns) withDefaults() Columns {
	if c.Date == "" {
		c.Date = DefaultDateColumn
	}
	if c.Title == "" {
		c.Title = DefaultTitleColumn
	}
	return c
}

// Reader dispatches on the file extension.
type Reader struct {
	xlsx *XLSXReader
	csv  *CSVReader
}

// NewReader returns a reader for every supported format.
func NewReader(cols Columns) *Reader {
	return &Reader{xlsx: NewXLSXReader(cols), csv: NewCSVReader(cols)}
}

func (r *Reader) ReadRows(ctx context.Context, path string) ([]entity.RawRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return r.xlsx.ReadRows(ctx, path)
	case ".csv":
		return r.csv.ReadRows(ctx, path)
	}
	return nil, fmt.Errorf("%w: %s", repository.ErrUnsupportedFormat, filepath.Base(path))
}

// header locates the required columns in the header row.
type header struct {
	date, title int
}

func findHeader(row []string, cols Columns) (header, error) {
	h := header{date: -1, title: -1}
	for i, name := range row {
		switch textnorm.Normalize(name) {
		case textnorm.Normalize(cols.Date):
			if h.date < 0 {
				h.date = i
			}
		case textnorm.Normalize(cols.Title):
			if h.title < 0 {
				h.title = i
			}
		}
	}
	var missing []string
	if h.date < 0 {
		missing = append(missing, cols.Date)
	}
	if h.title < 0 {
		missing = append(missing, cols.Title)
	}
	if len(missing) > 0 {
		return h, fmt.Errorf("%w: %s", repository.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return h, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var (
	_ repository.DatasetReader = (*Reader)(nil)
	_ repository.DatasetReader = (*XLSXReader)(nil)
	_ repository.DatasetReader = (*CSVReader)(nil)
)
