package address

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxSuffixLen is the longest number suffix accepted after a house number,
// counted in runes after separators are collapsed to single spaces.
const maxSuffixLen = 5

// SplitAddress is a street line decomposed into its label fields.
// Values are computed once by Split and only read afterwards.
type SplitAddress struct {
	Street       string `json:"street"`
	Number       int    `json:"number,omitempty"`
	NumberSuffix string `json:"number_suffix,omitempty"`
	FullStreet   string `json:"full_street"`
}

// SplitsStreet reports whether street lines for the country are decomposed
// into street, number and suffix. Other countries keep the line as-is.
func SplitsStreet(countryCode string) bool {
	switch strings.ToUpper(strings.TrimSpace(countryCode)) {
	case "NL", "BE":
		return true
	}
	return false
}

// Split decomposes a Dutch or Belgian street line such as "Plein 1940-45 3b"
// into street ("Plein 1940-45"), number (3) and suffix ("b").
//
// Split never fails. Input it cannot decompose ends up entirely in Street
// with a zero Number. For countries other than NL and BE the raw line is
// returned untouched.
func Split(raw, countryCode string) SplitAddress {
	if !SplitsStreet(countryCode) {
		return SplitAddress{Street: raw, FullStreet: raw}
	}

	s := strings.TrimRightFunc(raw, isSeparator)

	start, end, rest, ok := findNumber(s)
	if !ok {
		street := strings.TrimSpace(raw)
		return SplitAddress{Street: street, FullStreet: collapse(street)}
	}

	// findNumber only accepts runs that fit in an int
	number, _ := strconv.Atoi(s[start:end])

	out := SplitAddress{
		Street:       strings.TrimSpace(s[:start]),
		Number:       number,
		NumberSuffix: normalizeSuffix(rest),
	}
	out.FullStreet = JoinStreet(out.Street, out.Number, out.NumberSuffix)
	return out
}

// JoinStreet renders street, number and suffix as a single display line.
// A zero number is left out.
func JoinStreet(street string, number int, suffix string) string {
	parts := make([]string, 0, 3)
	parts = append(parts, street)
	if number > 0 {
		parts = append(parts, strconv.Itoa(number))
	}
	parts = append(parts, suffix)
	return collapse(strings.Join(parts, " "))
}

// findNumber scans s from the right for the leftmost digit run that is
// followed only by suffix material. It returns the byte offsets of the run
// and the suffix text after the separators.
func findNumber(s string) (start, end int, rest string, ok bool) {
	i := len(s)
	for i > 0 {
		if !isDigit(s[i-1]) {
			i--
			continue
		}

		runEnd := i
		for i > 0 && isDigit(s[i-1]) {
			i--
		}
		runStart := i

		sep, tail := cutSeparators(s[runEnd:])

		// Runs further left only see a longer tail.
		if utf8.RuneCountInString(normalizeSuffix(tail)) > maxSuffixLen {
			break
		}

		if isHouseNumber(s[runStart:runEnd]) &&
			strings.TrimSpace(s[:runStart]) != "" &&
			isSuffix(sep, tail) {
			start, end, rest, ok = runStart, runEnd, tail, true
		}
	}
	return start, end, rest, ok
}

// isHouseNumber rejects zero and zero-padded runs as well as runs too long
// to be an int.
func isHouseNumber(digits string) bool {
	if digits[0] == '0' {
		return false
	}
	_, err := strconv.Atoi(digits)
	return err == nil
}

// isSuffix reports whether rest, reached from the house number through the
// separator run sep, is acceptable as a number suffix.
func isSuffix(sep, rest string) bool {
	if rest == "" {
		return true
	}

	switch {
	case isLetterSuffix(rest):
		return true
	case isDigits(rest):
		// "269-133" and "34/302" attach through the mark, "10 142" needs
		// three digits or the run is read as the house number itself.
		if sep != "" && isMark(sep[len(sep)-1]) {
			return true
		}
		return sep != "" && strings.TrimSpace(sep) == "" && len(rest) >= 3
	case sep == "":
		return false
	}

	return isLetterDigits(rest) || isDigitsLetters(rest)
}

// isLetterSuffix matches "b", "ZW" or "A BS".
func isLetterSuffix(s string) bool {
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsSpace(r), r == '-', r == '/':
		default:
			return false
		}
	}
	return letters > 0
}

// isLetterDigits matches a single letter followed by one to three digits, e.g. "F008".
func isLetterDigits(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(r) {
		return false
	}
	digits := s[size:]
	return len(digits) >= 1 && len(digits) <= 3 && isDigits(digits)
}

// isDigitsLetters matches two digits followed by one to three letters, e.g. "11e".
func isDigitsLetters(s string) bool {
	if len(s) < 3 || !isDigit(s[0]) || !isDigit(s[1]) {
		return false
	}
	n := 0
	for _, r := range s[2:] {
		if !unicode.IsLetter(r) {
			return false
		}
		n++
	}
	return n >= 1 && n <= 3
}

func cutSeparators(s string) (sep, rest string) {
	i := strings.IndexFunc(s, func(r rune) bool { return !isSeparator(r) })
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

func normalizeSuffix(s string) string {
	return collapse(strings.Map(func(r rune) rune {
		if r == '-' || r == '/' {
			return ' '
		}
		return r
	}, s))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '-' || r == '/'
}

func isMark(b byte) bool {
	return b == '-' || b == '/'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
