package view

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount with two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatDate formats a date as YYYY-MM-DD, or "" when unset.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.DateOnly)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
