package sap

import (
	"fmt"
	"strings"
)

// NormalizePhone canonicalizes a phone number to the 12-digit national
// form: 998 followed by a 9-digit subscriber number. Formatting
// characters are stripped; a bare 9-digit number gets the country code
// prefixed. Any other digit count is rejected.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	switch s := digits.String(); len(s) {
	case 9:
		return "998" + s, nil
	case 12:
		if strings.HasPrefix(s, "998") {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
}
