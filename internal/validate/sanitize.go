package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// stripPolicy allows no tags at all: markup is removed, text content kept.
var stripPolicy = bluemonday.StrictPolicy()

// StripTags removes all HTML markup from s, keeping the text content.
func StripTags(s string) string {
	return strings.TrimSpace(stripPolicy.Sanitize(s))
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// EscapeHTML escapes the six characters that matter for HTML injection.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var (
	sqlChars    = regexp.MustCompile(`['";\\]|--`)
	sqlKeywords = regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter)\b`)
)

// SanitizeForDatabase scrubs quote/comment characters and common SQL
// keywords from s. Defense in depth only; queries still go through
// parameterized statements.
func SanitizeForDatabase(s string) string {
	s = sqlChars.ReplaceAllString(s, "")
	return sqlKeywords.ReplaceAllString(s, "")
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail reports whether s looks like an email address. Meant for
// UX-facing checks; the schema pipeline does its own email validation.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidatePassword checks the password strength rules and returns the
// list of rules the password does not meet.
func ValidatePassword(s string) (bool, []string) {
	var unmet []string

	if len(s) < 8 {
		unmet = append(unmet, "must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		unmet = append(unmet, "must contain an uppercase letter")
	}
	if !hasLower {
		unmet = append(unmet, "must contain a lowercase letter")
	}
	if !hasDigit {
		unmet = append(unmet, "must contain a digit")
	}
	if !hasSymbol {
		unmet = append(unmet, "must contain a symbol")
	}

	return len(unmet) == 0, unmet
}
