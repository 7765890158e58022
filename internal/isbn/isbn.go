// Package isbn computes ISBN check digits and converts between the 10 and
// 13 digit forms. Functions report failure with ok=false instead of an
// error: an unusable value simply yields no identifier.
package isbn

import (
	"regexp"
	"strings"
)

var (
	leadingToken = regexp.MustCompile(`^\S*`)
	nonISBNChars = regexp.MustCompile(`[^X0-9]`)
)

// CheckDigit10 returns the ISBN-10 check character for the first nine digits.
func CheckDigit10(digits string) (byte, bool) {
	if len(digits) != 9 || !allDigits(digits) {
		return 0, false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		sum += (i + 1) * int(digits[i]-'0')
	}
	r := sum % 11
	if r == 10 {
		return 'X', true
	}
	return byte('0' + r), true
}

// CheckDigit13 returns the ISBN-13 check digit for the first twelve digits.
func CheckDigit13(digits string) (byte, bool) {
	if len(digits) != 12 || !allDigits(digits) {
		return 0, false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		w := 1
		if i%2 == 1 {
			w = 3
		}
		sum += w * int(digits[i]-'0')
	}
	return byte('0' + (10-sum%10)%10), true
}

// To13 converts an ISBN-10 to its 978-prefixed ISBN-13 form. The input's
// own check character is not verified; use Valid10 for that.
func To13(isbn10 string) (string, bool) {
	if len(isbn10) != 10 {
		return "", false
	}
	prefix := "978" + isbn10[:9]
	check, ok := CheckDigit13(prefix)
	if !ok {
		return "", false
	}
	return prefix + string(check), true
}

// To10 converts a 978-prefixed ISBN-13 to ISBN-10. 979 numbers have no
// ISBN-10 equivalent.
func To10(isbn13 string) (string, bool) {
	if len(isbn13) != 13 || !allDigits(isbn13) || !strings.HasPrefix(isbn13, "978") {
		return "", false
	}
	body := isbn13[3:12]
	check, ok := CheckDigit10(body)
	if !ok {
		return "", false
	}
	return body + string(check), true
}

// Valid10 reports whether s is a ten character ISBN with a matching check.
func Valid10(s string) bool {
	if len(s) != 10 {
		return false
	}
	check, ok := CheckDigit10(s[:9])
	return ok && check == s[9]
}

// Valid13 reports whether s is a thirteen digit ISBN with a matching check.
func Valid13(s string) bool {
	if len(s) != 13 {
		return false
	}
	check, ok := CheckDigit13(s[:12])
	return ok && check == s[12]
}

// Normalize extracts an ISBN from raw catalog text (for example
// "0-13-609181-4 (pbk.)") and returns it in validated 13 digit form.
func Normalize(raw string) (string, bool) {
	token := leadingToken.FindString(strings.TrimLeft(raw, " \t"))
	s := nonISBNChars.ReplaceAllString(token, "")

	if Valid10(s) {
		s, _ = To13(s)
	}
	if Valid13(s) {
		return s, true
	}
	return "", false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
