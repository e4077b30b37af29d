package usecase

import "errors"

var (
	ErrDateSelection = errors.New("date selection failed")
	ErrPagination    = errors.New("pagination failed")
	ErrTitleSearch   = errors.New("title search failed")

	ErrEmptyUpload = errors.New("uploaded dataset is empty")
)
