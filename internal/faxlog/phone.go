package faxlog

import "strings"

const (
	phoneLength = 11
	countryCode = "33"
)

// NormalizePhone reduces an arbitrary raw number to its canonical
// country-code-prefixed digit string:
//
//	"+33 1 45 22 11 34" -> "33145221134"
//	"01 45 22 11 34"    -> "33145221134"
//	"0033145221134"     -> "33145221134"
//
// The empty string is the canonical representation of "no number
// provided" and is returned as-is, never as a placeholder.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "00"+countryCode):
		return countryCode + digits[4:]
	case strings.HasPrefix(digits, "0") && !strings.HasPrefix(digits, "00"):
		return countryCode + digits[1:]
	default:
		return digits
	}
}

// PhoneRule is an optional extra validation rule applied after the fixed
// rule set. It returns the failure reason and true when the number is
// rejected.
type PhoneRule func(normalized string) (ErrorReason, bool)

// RejectVoiceRange rejects numbers whose third digit is 6 or 7. Some
// deployments route those ranges to voice lines and treat a fax sent
// there as an error; the rule is opt-in because the ranges are carrier
// specific.
func RejectVoiceRange(normalized string) (ErrorReason, bool) {
	if len(normalized) >= 3 && (normalized[2] == '6' || normalized[2] == '7') {
		return ReasonRestrictedRange, true
	}
	return "", false
}

// ValidatePhone checks a normalized digit string against the fixed rule
// set, short-circuiting on the first failure, then applies any extra
// rules in order. On success it returns (true, "").
func ValidatePhone(normalized string, extra ...PhoneRule) (bool, ErrorReason) {
	if normalized == "" {
		return false, ReasonEmpty
	}
	for _, r := range normalized {
		if r < '0' || r > '9' {
			// Unreachable for NormalizePhone output.
			return false, ReasonNonNumeric
		}
	}
	if len(normalized) != phoneLength {
		return false, ReasonBadLength
	}
	if !strings.HasPrefix(normalized, countryCode) {
		return false, ReasonBadCountryCode
	}
	for _, rule := range extra {
		if reason, rejected := rule(normalized); rejected {
			return false, reason
		}
	}
	return true, ""
}
