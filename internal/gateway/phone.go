package gateway

import "strings"

// NormalizePhone rewrites a raw phone number into the international format
// the provider expects. countryCode is the 3-digit dialing prefix (e.g.
// "260"). Rules, in order:
//
//   - strip all non-digit characters
//   - already starts with the country code: keep as-is
//   - leading '0': replace the zero with the country code
//   - exactly 9 digits, no leading zero: prepend the country code
//   - anything else: pass through unchanged
func NormalizePhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, countryCode):
		return digits
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:]
	case len(digits) == 9:
		return countryCode + digits
	default:
		return digits
	}
}

// RedactPhone masks a phone number for logging: only the first 6 and last 3
// digits remain visible.
func RedactPhone(phone string) string {
	if len(phone) < 10 {
		return "***"
	}
	return phone[:6] + "***" + phone[len(phone)-3:]
}
