package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// Accepts evaluates the validation descriptor against a value. A nil
// rule accepts any non-empty value. A pattern that fails to compile is
// skipped rather than failing the step: configuration problems degrade,
// they do not raise.
func (r *Rule) Accepts(value string) bool {
	if value == "" {
		return false
	}
	if r == nil {
		return true
	}
	if r.MinLength > 0 && len([]rune(value)) < r.MinLength {
		return false
	}
	if r.MinDigits > 0 {
		digits := 0
		for _, c := range value {
			if unicode.IsDigit(c) {
				digits++
			}
		}
		if digits < r.MinDigits {
			return false
		}
	}
	if len(r.OneOf) > 0 {
		ok := false
		for _, want := range r.OneOf {
			if strings.EqualFold(value, want) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err == nil && !re.MatchString(value) {
			return false
		}
	}
	return true
}
