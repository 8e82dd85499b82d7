package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"garagesale/internal/domain"
)

const (
	maxQLen    = 100
	maxNameLen = 60
)

var (
	reQ     = regexp.MustCompile(`^[\p{L}\p{N} _'".,/&()+-]+$`)
	rePrice = regexp.MustCompile(`^[0-9]{1,12}(\.[0-9]{1,2})?$`)
)

// Q validates a search term: trims, clamps length, allows letters (accents
// included), digits and light punctuation.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if utf8.RuneCountInString(s) > maxQLen {
		s = string([]rune(s)[:maxQLen])
	}
	return s, reQ.MatchString(s)
}

// ID validates a positive numeric resource id.
func ID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n, err == nil && n > 0
}

// OptionalID is ID for optional query params: "" is zero and valid.
func OptionalID(s string) (int64, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, true
	}
	return ID(s)
}

// Name validates a category, province or locality name.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxNameLen {
		return "", false
	}
	for _, r := range s {
		if unicode.IsControl(r) || r == '<' || r == '>' {
			return "", false
		}
	}
	return s, true
}

// OptionalName is Name for optional query params.
func OptionalName(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", true
	}
	return Name(s)
}

// Price parses an optional non-negative price bound. "" yields nil.
func Price(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if !rePrice.MatchString(s) {
		return nil, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// Condition validates the condition enum; "" means any.
func Condition(s string) (domain.Condition, bool) {
	if strings.TrimSpace(s) == "" {
		return "", true
	}
	return domain.ParseCondition(s)
}

// EndsIn validates the expiry bucket; "" means any.
func EndsIn(s string) (domain.EndsIn, bool) {
	if strings.TrimSpace(s) == "" {
		return "", true
	}
	return domain.ParseEndsIn(s)
}

// Page parses a page or page-size param, falling back to def when empty.
func Page(s string, def int) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil && n > 0
}

// Bool parses an optional flag, falling back to def when empty.
func Bool(s string, def bool) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, true
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return def, false
}
