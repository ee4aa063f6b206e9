package notify

import (
	"regexp"
	"strings"
)

var phoneCleaner = strings.NewReplacer(" ", "", "\t", "", "-", "", "(", "", ")", "")

// Sri Lankan shapes: general nine digits, landline, mobile. Each may carry a country prefix.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\+94|0094|94)?[0-9]{9}$`),
	regexp.MustCompile(`^(\+94|0094|94)?[1-9][0-9]{8}$`),
	regexp.MustCompile(`^(\+94|0094|94)?7[0-9]{8}$`),
}

func cleanPhone(phone string) string {
	return phoneCleaner.Replace(strings.TrimSpace(phone))
}

// stripTrunk drops a local trunk 0. 094771234567 is a trunk 0 written in
// front of the 94 country code, so it loses the 0 and keeps the 94.
func stripTrunk(clean string) string {
	if !strings.HasPrefix(clean, "0") || strings.HasPrefix(clean, "0094") {
		return clean
	}
	return clean[1:]
}

// hasCountryCode reports whether a + free number already starts with 94
// followed by a full nine digit subscriber number
func hasCountryCode(clean string) bool {
	return strings.HasPrefix(clean, "94") && len(clean) == 11
}

// ValidateSriLankanPhone is a format check only. Leading 0 trunk prefixes are
// accepted, so 0771234567 and +94771234567 are both valid.
func ValidateSriLankanPhone(phone string) bool {
	clean := stripTrunk(cleanPhone(phone))
	for _, p := range phonePatterns {
		if p.MatchString(clean) {
			return true
		}
	}
	return false
}

// FormatSriLankanPhone normalizes a number to +94 form. Numbers that already
// carry a + country prefix are returned cleaned but otherwise untouched.
func FormatSriLankanPhone(phone string) string {
	clean := cleanPhone(phone)

	switch {
	case clean == "":
		return ""
	case strings.HasPrefix(clean, "+"):
		return clean
	case strings.HasPrefix(clean, "0094"):
		return "+94" + clean[4:]
	case strings.HasPrefix(clean, "0"):
		rest := stripTrunk(clean)
		if hasCountryCode(rest) {
			return "+" + rest
		}
		return "+94" + rest
	case hasCountryCode(clean):
		return "+" + clean
	default:
		return "+94" + clean
	}
}
