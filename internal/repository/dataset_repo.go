package repository

import (
	"context"

	"github.com/user/titledate-verifier/internal/entity"
)

// DatasetReader loads the data rows of a spreadsheet. Missing required
// columns are reported with ErrMissingColumn.
type DatasetReader interface {
	ReadRows(ctx context.Context, path string) ([]entity.RawRow, error)
}
