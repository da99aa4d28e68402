package engine

import (
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/units"
)

// formatDecimal renders a decimal with locale-agnostic thousands separators
// and no trailing fraction zeros.
func formatDecimal(v decimal.Decimal) string {
	s := v.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if hasFrac {
		fracPart = strings.TrimRight(fracPart, "0")
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

// displayUnit renders a canonical unit token for output. Currency codes
// display uppercase.
func displayUnit(unit string) string {
	if units.IsCurrency(unit) {
		return strings.ToUpper(unit)
	}
	return unit
}
