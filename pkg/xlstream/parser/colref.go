package parser

import "strings"

// maxColumn is the last addressable column, XFD.
const maxColumn = 16384

// ColumnNumber decodes column letters to a 1-based column number. The
// encoding is base-26 with no zero digit: A=1 .. Z=26, AA=27. It reports
// false for empty, non-alphabetic or out-of-range input.
func ColumnNumber(letters string) (int, bool) {
	if letters == "" {
		return 0, false
	}
	n := 0
	for _, c := range strings.ToUpper(letters) {
		if c < 'A' || c > 'Z' {
			return 0, false
		}
		n = n*26 + int(c-'A') + 1
	}
	if n > maxColumn {
		return 0, false
	}
	return n, true
}

// ColumnLetters encodes a 1-based column number to letters, the inverse of
// ColumnNumber. It reports false for numbers outside 1..16384.
func ColumnLetters(n int) (string, bool) {
	if n < 1 || n > maxColumn {
		return "", false
	}
	var b [3]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('A' + (n-1)%26)
		n = (n - 1) / 26
	}
	return string(b[i:]), true
}

// SplitRef splits a cell reference like "BC23" into its column letters and
// row digits. Either part may be empty on irregular input.
func SplitRef(ref string) (letters, digits string) {
	i := 0
	for i < len(ref) && !isDigit(ref[i]) {
		i++
	}
	return ref[:i], ref[i:]
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
