package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRe = regexp.MustCompile(`^[\w.@+\-]+$`)
	currencyRe = regexp.MustCompile(`^[A-Z]{3,5}$`)
	lowerRe    = regexp.MustCompile("[a-z]")
	upperRe    = regexp.MustCompile("[A-Z]")
	digitRe    = regexp.MustCompile("[0-9]")
	specialRe  = regexp.MustCompile(`[^A-Za-z0-9]`)
)

func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidateUsername accepts 3 to 150 letters, digits and @.+-_ characters.
func ValidateUsername(username string) bool {
	n := utf8.RuneCountInString(username)
	return n >= 3 && n <= 150 && usernameRe.MatchString(username)
}

func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	return lowerRe.MatchString(password) &&
		upperRe.MatchString(password) &&
		digitRe.MatchString(password) &&
		specialRe.MatchString(password)
}

func ValidateCurrency(code string) bool {
	return currencyRe.MatchString(code)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
