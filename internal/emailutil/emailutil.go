// Package emailutil normalizes and validates email addresses for account
// registration and login.
package emailutil

import (
	"net/mail"
	"strings"
)

// Normalize trims surrounding whitespace and lowercases the address.
// Emails are stored and compared in this form only.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Valid reports whether the address parses as a bare RFC 5322 address
// with a domain part.
func Valid(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	if addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
