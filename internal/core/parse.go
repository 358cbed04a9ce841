// Package core provides the canonical domain model for budget line items,
// allocation rows, and the parsing rules shared by the import pipeline and
// the reporting layer.
package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a spreadsheet cell to a number. Thousands separators
// and surrounding whitespace are tolerated; the empty string is the caller's
// concern (blank numeric cells normalize to zero, not an error).
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// dateLayouts covers the formats seen in uploaded budget sheets.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"2006-01-02T15:04:05Z07:00",
}

// excelEpoch is day zero of the 1900 date system (with the Lotus leap-year
// quirk already folded in, hence Dec 30 rather than Dec 31).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseCalendarDate parses a non-blank date cell. Numeric values are treated
// as Excel serial day numbers, which is how unformatted xlsx date cells
// arrive from the reader.
func ParseCalendarDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, errors.New("blank date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t.UTC().Truncate(24 * time.Hour)}, nil
		}
	}
	if serial, err := decimal.NewFromString(s); err == nil {
		days := serial.IntPart()
		if days > 0 && days < 200000 {
			return Date{Time: excelEpoch.AddDate(0, 0, int(days))}, nil
		}
	}
	return Date{}, errors.New("unrecognized date: " + s)
}
