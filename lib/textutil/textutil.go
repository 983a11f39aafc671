package textutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a full name, collapses runs of whitespace
// into single spaces and folds ё into е so registry keys built from
// differently typed spellings still collide.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	name = strings.ReplaceAll(name, "ё", "е")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, NormalizeName(m)) {
			return true
		}
	}
	return false
}

var dateDigitsRegex = regexp.MustCompile(`(\d{1,2})\D+(\d{1,2})\D+(\d{4})`)

// CleanDate normalizes a free-text date to DD.MM.YYYY. Inputs already
// in canonical form pass through unchanged, so the function is
// idempotent. Years outside [1900, current year] and impossible
// day/month pairs return "".
func CleanDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	groups := dateDigitsRegex.FindStringSubmatch(raw)
	if groups == nil {
		return ""
	}
	day, _ := strconv.Atoi(groups[1])
	month, _ := strconv.Atoi(groups[2])
	year, _ := strconv.Atoi(groups[3])

	if year < 1900 || year > time.Now().Year() {
		return ""
	}
	if month < 1 || month > 12 {
		return ""
	}
	if day < 1 || day > daysIn(month, year) {
		return ""
	}

	return fmt.Sprintf("%02d.%02d.%04d", day, month, year)
}

func daysIn(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CleanPhone normalizes a phone string to the 11-digit 7XXXXXXXXXX
// form. Accepted shapes: exactly 10 digits starting with 9, or 11
// digits starting with 8 or 7. Anything else returns "".
func CleanPhone(raw string) string {
	var digits []rune
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}

	switch {
	case len(digits) == 10 && digits[0] == '9':
		return "7" + string(digits)
	case len(digits) == 11 && (digits[0] == '8' || digits[0] == '7'):
		return "7" + string(digits[1:])
	}
	return ""
}

var filenameUnsafeRegex = regexp.MustCompile(`[^0-9A-Za-zА-Яа-яЁё _.-]+`)

// SanitizeFilename strips characters that are unsafe in screenshot
// file names and collapses the remainder's whitespace to underscores.
func SanitizeFilename(name string) string {
	name = filenameUnsafeRegex.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	name = whitespaceRegex.ReplaceAllString(name, "_")
	return name
}

// TruncateRunes shortens s to at most n runes, appending an ellipsis
// when anything was cut.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
