package pattern

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/aretw0/intake/pkg/domain"
)

// Structural guards used by every extractor to reject contamination at
// the source, and by the sanitizer to detect it after the fact.

var (
	emailRe       = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	nameTokenRe   = regexp.MustCompile(`^[A-Za-z][A-Za-z'.-]*$`)
	timeKeywordRe = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|today|tomorrow|tonight|morning|afternoon|evening|noon|midday|weekend|asap|\d{1,2}(:\d{2})?\s*(am|pm|o'?clock))\b`)
)

// Street suffixes that distinguish an address fragment from a person
// name. Kept lowercase; matched against whole tokens.
var streetSuffixes = map[string]bool{
	"street": true, "st": true, "avenue": true, "ave": true,
	"road": true, "rd": true, "drive": true, "dr": true,
	"lane": true, "ln": true, "boulevard": true, "blvd": true,
	"parkway": true, "pkwy": true, "court": true, "ct": true,
	"circle": true, "cir": true, "way": true, "place": true, "pl": true,
	"highway": true, "hwy": true, "terrace": true, "trail": true,
	"suite": true, "apt": true, "unit": true,
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// LooksLikePhone reports whether the text is phone-shaped: enough
// digits, and digits dominating whatever letters are present.
func LooksLikePhone(s string) bool {
	d := digitCount(s)
	if d < 7 {
		return false
	}
	return d > letterCount(s)
}

// ValidName accepts one to four alphabetic tokens, rejecting
// phone-shaped text, street fragments, and stop words.
func ValidName(s string, stop *Stopwords) bool {
	s = strings.TrimSpace(s)
	if s == "" || LooksLikePhone(s) || stop.Contains(s) {
		return false
	}
	tokens := strings.Fields(s)
	if len(tokens) == 0 || len(tokens) > 4 {
		return false
	}
	for _, tok := range tokens {
		if !nameTokenRe.MatchString(tok) {
			return false
		}
		if streetSuffixes[strings.ToLower(strings.Trim(tok, ".,"))] {
			return false
		}
	}
	return true
}

// ValidPhone requires at least ten digits and rejects text that is
// mostly letters.
func ValidPhone(s string) bool {
	d := digitCount(s)
	return d >= 10 && d <= 15 && d >= letterCount(s)
}

// ValidAddress requires a leading house number or a street suffix,
// and rejects bare phone numbers.
func ValidAddress(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 5 {
		return false
	}
	if LooksLikePhone(s) && letterCount(s) == 0 {
		return false
	}
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return false
	}
	hasNumber := digitCount(tokens[0]) > 0
	hasSuffix := false
	for _, tok := range tokens {
		if streetSuffixes[strings.ToLower(strings.Trim(tok, ".,"))] {
			hasSuffix = true
			break
		}
	}
	return hasNumber || hasSuffix
}

// ValidTime requires at least one scheduling keyword or clock time.
func ValidTime(s string) bool {
	return timeKeywordRe.MatchString(s)
}

// ValidEmail matches a single well-formed address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// ValidReason accepts any free text with a minimum of substance.
func ValidReason(s string, stop *Stopwords) bool {
	s = strings.TrimSpace(s)
	if len(s) < 3 || stop.Contains(s) {
		return false
	}
	return letterCount(s) >= 3 && !LooksLikePhone(s)
}

// ValidForKey dispatches structural validation by slot key. Keys
// introduced by flow configuration (propertyType, gateCode, ...) have
// no structural rules beyond a non-empty value.
func ValidForKey(key, value string, stop *Stopwords) bool {
	switch key {
	case domain.KeyName:
		return ValidName(value, stop)
	case domain.KeyPhone:
		return ValidPhone(value)
	case domain.KeyAddress:
		return ValidAddress(value)
	case domain.KeyTime:
		return ValidTime(value)
	case domain.KeyEmail:
		return ValidEmail(value)
	case domain.KeyCallReason:
		return ValidReason(value, stop)
	default:
		return strings.TrimSpace(value) != ""
	}
}
