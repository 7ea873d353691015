package retrieval

import "regexp"

// Patterns for sensitive values that must never leave the service
// unmasked. Longer patterns run first so a card number is not partially
// consumed by the shorter aadhar match.
var sensitivePatterns = []struct {
	name string
	re   *regexp.Regexp
	mask func(string) string
}{
	{"credit_card", regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`), keepLast4("XXXX-XXXX-XXXX-")},
	{"aadhar", regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`), keepLast4("XXXX-XXXX-")},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), keepLast4("XXX-XX-")},
	{"phone", regexp.MustCompile(`\b\d{10}\b`), keepLast4("XXXXXX")},
}

func keepLast4(prefix string) func(string) string {
	return func(match string) string {
		digits := make([]byte, 0, len(match))
		for i := 0; i < len(match); i++ {
			if match[i] >= '0' && match[i] <= '9' {
				digits = append(digits, match[i])
			}
		}
		if len(digits) < 4 {
			return prefix + "XXXX"
		}
		return prefix + string(digits[len(digits)-4:])
	}
}

// MaskSensitive replaces identifiers like aadhar, SSN and card numbers
// with a masked form that keeps only the last four digits.
func MaskSensitive(text string) string {
	for _, p := range sensitivePatterns {
		text = p.re.ReplaceAllStringFunc(text, p.mask)
	}
	return text
}
