package importer

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errInvalidAmount = errors.New("invalid amount")

// ParseAmount reads a signed decimal amount from a raw cell. Currency
// symbols, spaces and other decorations are dropped; a minus sign counts
// only before the first digit.
func ParseAmount(raw string, conv DecimalConvention) (decimal.Decimal, error) {
	var (
		sb        strings.Builder
		negative  bool
		hasDigits bool
	)

	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)

			hasDigits = true
		case r == ',' || r == '.':
			sb.WriteRune(r)
		case r == '-' && !hasDigits && sb.Len() == 0:
			negative = true
		}
	}

	if !hasDigits {
		return decimal.Zero, errInvalidAmount
	}

	clean := separators(sb.String(), conv)

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, errInvalidAmount
	}

	if negative {
		d = d.Neg()
	}

	return d, nil
}

// separators rewrites clean so that '.' is the only remaining separator
// and marks the decimal point.
func separators(clean string, conv DecimalConvention) string {
	switch conv {
	case DecimalComma:
		clean = strings.ReplaceAll(clean, ".", "")
		return strings.ReplaceAll(clean, ",", ".")
	case DecimalPoint:
		return strings.ReplaceAll(clean, ",", "")
	}

	i := strings.LastIndex(clean, ",")
	if i < 0 {
		return clean
	}

	if frac := clean[i+1:]; len(frac) == 2 && !strings.ContainsAny(frac, ".,") {
		clean = strings.ReplaceAll(clean, ".", "")
		return strings.ReplaceAll(clean, ",", ".")
	}

	return strings.ReplaceAll(clean, ",", "")
}
