// Package contact normalizes phone numbers and chat handles into comparable keys.
package contact

import (
	"strings"
	"unicode"
)

const (
	minPhoneDigits = 7
	nationalDigits = 10
)

// Normalize reduces a phone number or chat handle to a lookup key.
//
// A leading "@" marks a handle and is stripped before lowercasing. Otherwise,
// when the value carries at least seven digits it is treated as a phone number
// and reduced to its digits, keeping only the last ten so that country codes
// and trunk prefixes do not break equality. Anything else is lowercased.
// An empty result means the value cannot match anything.
func Normalize(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return ""
	}

	if strings.HasPrefix(text, "@") {
		return strings.ToLower(strings.TrimSpace(text[1:]))
	}

	digits := Digits(text)
	if len(digits) >= minPhoneDigits {
		if len(digits) > nationalDigits {
			return digits[len(digits)-nationalDigits:]
		}
		return digits
	}

	return strings.ToLower(text)
}

// NormalizeHandle normalizes a value known to be a chat username, with or
// without its leading "@", so digit-heavy usernames stay handles.
func NormalizeHandle(value string) string {
	text := strings.TrimPrefix(strings.TrimSpace(value), "@")
	if text == "" {
		return ""
	}
	return Normalize("@" + text)
}

// Digits returns only the ASCII digits of value.
func Digits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Alphanumeric counts the letters and digits in value.
func Alphanumeric(value string) int {
	count := 0
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			count++
		}
	}
	return count
}

// IsNumericChatID reports whether value looks like a Telegram chat id
// (an optionally negative integer of at least seven digits).
func IsNumericChatID(value string) bool {
	text := strings.TrimSpace(value)
	text = strings.TrimPrefix(text, "-")
	if len(text) < minPhoneDigits {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
