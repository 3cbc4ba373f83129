// Package validate holds the pure input validators applied to operator
// entries before anything reaches the helpdesk API.
package validate

import (
	"regexp"
	"strings"
)

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern  = regexp.MustCompile(`^0[1-9](\d{2}){4}$`)
	serialPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Email reports whether s is an acceptable email address. The field is
// optional, so an empty string is valid.
func Email(s string) bool {
	if s == "" {
		return true
	}
	return emailPattern.MatchString(s)
}

// Phone reports whether s is a valid French national phone number: ten
// digits starting with 0 then a non-zero digit. Spaces between digit pairs
// are tolerated.
func Phone(s string) bool {
	return phonePattern.MatchString(strings.ReplaceAll(s, " ", ""))
}

// Serial reports whether s is an acceptable copier serial number: letters,
// digits, hyphens and underscores only. Empty is valid, the field is
// optional.
func Serial(s string) bool {
	if s == "" {
		return true
	}
	return serialPattern.MatchString(s)
}
