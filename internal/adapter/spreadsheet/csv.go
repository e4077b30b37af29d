package spreadsheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/user/titledate-verifier/internal/entity"
)

var errNoHeader = errors.New("no header row")

// CSVReader reads comma-separated files with a header line.
type CSVReader struct {
	cols Columns
}

func NewCSVReader(cols Columns) *CSVReader {
	return &CSVReader{cols: cols.withDefaults()}
}

// ReadRows returns one RawRow per non-blank record, numbered by the line
// the record starts on.
func (r *CSVReader) ReadRows(ctx context.Context, path string) ([]entity.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(head) > 0 {
		head[0] = strings.TrimPrefix(head[0], "\ufeff")
	}
	h, err := findHeader(head, r.cols)
	if err != nil {
		return nil, err
	}

	var out []entity.RawRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		var date any
		if d := strings.TrimSpace(cell(rec, h.date)); d != "" {
			date = d
		}
		out = append(out, entity.RawRow{Number: line, Date: date, Title: cell(rec, h.title)})
	}
	return out, nil
}
