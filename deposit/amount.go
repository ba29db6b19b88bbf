package deposit

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxAmount is the fixed ceiling for a single deposit, in account currency
// units.
const MaxAmount = 10000

// SanitizeInput is the edit-time amount filter, called on every keystroke.
// It strips negative signs and rejects inputs with more than two fractional
// digits or a magnitude above the ceiling by returning the previous value
// unchanged.
func SanitizeInput(prev, next string) string {
	next = strings.ReplaceAll(next, "-", "")
	if next == "" {
		return ""
	}

	if !wellFormed(next) {
		return prev
	}

	if frac, ok := fractionalPart(next); ok && len(frac) > 2 {
		return prev
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(next, "."), 64)
	if err != nil || value > MaxAmount {
		return prev
	}

	return next
}

// ValidateSubmit is the submit-time gate. It re-checks everything the edit
// filter enforces plus the method minimum, and produces the parsed amount.
func ValidateSubmit(raw string, m *Method) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("enter an amount to deposit")
	}

	if !wellFormed(raw) || strings.Contains(raw, "-") {
		return 0, fmt.Errorf("the amount entered is not a valid number")
	}

	// Multi-digit integers with a leading zero ("010") parse numerically
	// but are treated as malformed input.
	intPart := raw
	if dot := strings.IndexByte(raw, '.'); dot >= 0 {
		intPart = raw[:dot]
	}
	if len(intPart) > 1 && intPart[0] == '0' && !strings.Contains(raw, ".") {
		return 0, fmt.Errorf("the amount entered is not a valid number")
	}

	if frac, ok := fractionalPart(raw); ok && len(frac) > 2 {
		return 0, fmt.Errorf("the amount may have at most two decimal places")
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(raw, "."), 64)
	if err != nil {
		return 0, fmt.Errorf("the amount entered is not a valid number")
	}
	if value > MaxAmount {
		return 0, fmt.Errorf("the maximum deposit is %d", MaxAmount)
	}

	if value < m.MinAmount {
		return 0, fmt.Errorf("%s requires a minimum deposit of %.2f", m.Name, m.MinAmount)
	}

	return value, nil
}

// wellFormed reports whether s consists of digits with at most one decimal
// point.
func wellFormed(s string) bool {
	dots := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
		case s[i] == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return len(s) > dots
}

func fractionalPart(s string) (string, bool) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return "", false
	}
	return s[dot+1:], true
}
