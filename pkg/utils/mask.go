package utils

import (
	"fmt"
	"regexp"
)

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)

// MaskDSN hides the password component of a connection string.
func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskSecret reports only whether a secret is set and how long it is.
// No prefix or suffix of the value is ever revealed.
func MaskSecret(secret string) string {
	if secret == "" {
		return "not set"
	}
	return fmt.Sprintf("***(%d chars)", len(secret))
}

// MaskPhone keeps the last four digits of a phone number.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
