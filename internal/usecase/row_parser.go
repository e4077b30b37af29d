package usecase

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/user/titledate-verifier/internal/entity"
)

var errEmptyDate = errors.New("publication date is empty")

// serialDigits is the width of serials written as text; they cover
// 1927-05-18 through 2173-10-14. Other numbers in text cells are not dates.
const serialDigits = 5

// serialEpoch is day zero of spreadsheet serial dates (1900 date system).
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseRow validates a raw spreadsheet row. Rows that cannot be verified
// return a *entity.MalformedRowError.
func ParseRow(raw entity.RawRow) (entity.VerificationRequest, error) {
	date, err := ParseDateCell(raw.Date)
	if errors.Is(err, errEmptyDate) {
		return entity.VerificationRequest{}, &entity.MalformedRowError{Row: raw.Number, Reason: err.Error()}
	}
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return entity.VerificationRequest{}, &entity.MalformedRowError{Row: raw.Number, Reason: "title is empty"}
	}
	if err != nil {
		return entity.VerificationRequest{}, &entity.MalformedRowError{Row: raw.Number, Reason: err.Error()}
	}
	return entity.VerificationRequest{RowNumber: raw.Number, PublicationDate: date, Title: title}, nil
}

// ParseDateCell converts a date cell to a calendar date at UTC midnight.
// Accepted: time.Time, spreadsheet serial numbers (numeric, or five-digit
// strings), YYYYMMDD, and YYYY-MM-DD or YYYY/MM/DD with an optional time
// suffix and unpadded month or day.
func ParseDateCell(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, errEmptyDate
	case time.Time:
		if d.IsZero() {
			return time.Time{}, errEmptyDate
		}
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case float64:
		return fromSerial(d)
	case float32:
		return fromSerial(float64(d))
	case int:
		return fromSerial(float64(d))
	case int64:
		return fromSerial(float64(d))
	case string:
		return parseDateString(d)
	}
	return time.Time{}, fmt.Errorf("unsupported date cell type %T", v)
}

func parseDateString(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errEmptyDate
	}
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	if len(s) == 8 && isDigits(s) {
		if t, err := time.Parse("20060102", s); err == nil {
			return t, nil
		}
	}
	if len(s) == serialDigits && isDigits(s) {
		n, _ := strconv.Atoi(s)
		return fromSerial(float64(n))
	}
	if isDigits(s) || strings.ContainsAny(s, "eE.+") {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}

	parts := strings.Split(strings.ReplaceAll(s, "/", "-"), "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || p == "" {
			return time.Time{}, fmt.Errorf("invalid date %q", raw)
		}
		nums[i] = n
	}
	if len(parts[0]) != 4 {
		return time.Time{}, fmt.Errorf("invalid date %q: year must have four digits", raw)
	}
	return calendarDate(nums[0], nums[1], nums[2], raw)
}

func calendarDate(y, m, d int, raw string) (time.Time, error) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, fmt.Errorf("invalid date %q: no day %d in month %d", raw, d, m)
	}
	return t, nil
}

// fromSerial converts a spreadsheet serial; the time of day is dropped.
func fromSerial(f float64) (time.Time, error) {
	if math.IsNaN(f) || f < 1 || f >= 2958466 {
		return time.Time{}, fmt.Errorf("date serial %v out of range", f)
	}
	return serialEpoch.AddDate(0, 0, int(f)), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
