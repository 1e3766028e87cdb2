package utils

import "strings"

// SanitizeISBN removes any non-digit characters, keeping a trailing X check digit.
func SanitizeISBN(isbn string) string {
	var cleaned strings.Builder
	isbn = strings.TrimSpace(isbn)
	for i, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			cleaned.WriteRune(r)
		case (r == 'X' || r == 'x') && i == len(isbn)-1:
			cleaned.WriteRune('X')
		}
	}
	return cleaned.String()
}

// IsValidISBN reports whether a sanitized value has ISBN-10 or ISBN-13 length.
func IsValidISBN(cleaned string) bool {
	return len(cleaned) == 10 || len(cleaned) == 13
}

// PreferredISBN picks the ISBN-13 when present, else the ISBN-10, else "".
func PreferredISBN(isbn13, isbn10 string) string {
	if c := SanitizeISBN(isbn13); len(c) == 13 {
		return c
	}
	if c := SanitizeISBN(isbn10); len(c) == 10 {
		return c
	}
	return ""
}
