package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"taxfolio/internal/errs"
)

// TaxYear is a UK tax year running 6 April to the following 5 April, London time.
type TaxYear struct {
	// Start is the calendar year the tax year begins in, e.g. 2024 for "2024-25".
	Start int
}

// TaxYearOfMillis returns the tax year containing the UTC millisecond instant.
func TaxYearOfMillis(ms int64) TaxYear {
	d := CivilDateOfMillis(ms)
	boundary := NewCivilDate(d.Year, time.April, 6)
	if d.Before(boundary) {
		return TaxYear{Start: d.Year - 1}
	}
	return TaxYear{Start: d.Year}
}

// ParseTaxYear parses a label of the form "2024-25".
func ParseTaxYear(label string) (TaxYear, error) {
	parts := strings.Split(label, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return TaxYear{}, errs.Validation("invalid tax year %q, want YYYY-YY", label)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return TaxYear{}, errs.Validation("invalid tax year %q, want YYYY-YY", label)
	}
	suffix, err := strconv.Atoi(parts[1])
	if err != nil || (start+1)%100 != suffix {
		return TaxYear{}, errs.Validation("invalid tax year %q: second year must follow the first", label)
	}
	return TaxYear{Start: start}, nil
}

// Label formats the tax year as "YYYY-YY".
func (y TaxYear) Label() string {
	return fmt.Sprintf("%04d-%02d", y.Start, (y.Start+1)%100)
}

// WindowMillis returns the inclusive UTC millisecond bounds of the tax year.
func (y TaxYear) WindowMillis() (from, to int64) {
	from = time.Date(y.Start, time.April, 6, 0, 0, 0, 0, london).UnixMilli()
	to = time.Date(y.Start+1, time.April, 6, 0, 0, 0, 0, london).UnixMilli() - 1
	return from, to
}
