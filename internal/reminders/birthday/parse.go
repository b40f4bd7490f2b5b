package birthday

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	dErrors "kinship/pkg/domain-errors"
)

var (
	numericPattern   = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})$`)
	monthNamePattern = regexp.MustCompile(`^([a-zA-Z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?$`)
)

var monthsByName = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// ParseInput normalizes free-form birthday input to "MM-DD".
// Accepted forms: "MM-DD", "MM/DD", and "<month name or 3-letter
// abbreviation> <day>", case-insensitive. Returns an invalid_input error
// when the text does not match or names an impossible calendar date.
func ParseInput(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "birthday input cannot be empty")
	}

	var month, day int
	switch {
	case numericPattern.MatchString(trimmed):
		m := numericPattern.FindStringSubmatch(trimmed)
		month, _ = strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
	case monthNamePattern.MatchString(strings.ToLower(trimmed)):
		m := monthNamePattern.FindStringSubmatch(strings.ToLower(trimmed))
		month = monthByName(m[1])
		day, _ = strconv.Atoi(m[2])
		if month == 0 {
			return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown month %q", m[1]))
		}
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unrecognized birthday format %q", text))
	}

	normalized := fmt.Sprintf("%02d-%02d", month, day)
	if !IsValidBirthday(normalized) {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%q is not a valid calendar date", normalized))
	}
	return normalized, nil
}

// monthByName resolves a full month name or its 3-letter abbreviation.
func monthByName(name string) int {
	if m, ok := monthsByName[name]; ok {
		return m
	}
	if len(name) == 3 {
		for full, m := range monthsByName {
			if strings.HasPrefix(full, name) {
				return m
			}
		}
	}
	return 0
}
