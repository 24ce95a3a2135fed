package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatCurrency renders an amount with thousands separators and two
// decimals, e.g. 15000.5 -> "$15,000.50".
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	formatted := fmt.Sprintf("%.2f", math.Round(amount*100)/100)
	integerPart, decimalPart, _ := strings.Cut(formatted, ".")

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	return sign + "$" + strings.Join(groups, ",") + "." + decimalPart
}
