package pattern

import (
	"regexp"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
)

// Matcher is one prioritized extraction rule. Matchers for a slot type
// are evaluated top-to-bottom; the first match wins. Order is part of
// the contract, not an accident of array position.
type Matcher struct {
	Tier       domain.PatternTier
	Confidence float64
	Explicit   bool
	Correction bool
	re         *regexp.Regexp
}

// Match runs the matcher against an utterance and returns the captured
// value. The first capture group is the value; trailing punctuation is
// stripped.
func (m *Matcher) Match(utterance string) (string, bool) {
	groups := m.re.FindStringSubmatch(utterance)
	if groups == nil {
		return "", false
	}
	value := groups[0]
	if len(groups) > 1 {
		value = groups[1]
	}
	value = strings.Trim(strings.TrimSpace(value), ".,!? ")
	if value == "" {
		return "", false
	}
	return value, true
}

// Library holds the ordered matcher definitions per slot type plus the
// shared stop-word set. Pure data; safe for concurrent reads.
type Library struct {
	matchers map[string][]Matcher
	stop     *Stopwords
}

// NewLibrary builds the default matcher set against the given
// stop-word table. A nil table falls back to the built-in defaults.
func NewLibrary(stop *Stopwords) *Library {
	if stop == nil {
		stop = DefaultStopwords()
	}
	return &Library{
		stop:     stop,
		matchers: defaultMatchers(),
	}
}

// Matchers returns the ordered rules for a slot key. Unknown keys have
// no matchers; only the step-gated fallback path can fill them.
func (l *Library) Matchers(key string) []Matcher {
	return l.matchers[key]
}

// Stopwords exposes the exclusion set for validators.
func (l *Library) Stopwords() *Stopwords {
	return l.stop
}

func correction(expr string) Matcher {
	return Matcher{
		Tier:       domain.TierCorrection,
		Confidence: domain.ConfidenceCorrection,
		Explicit:   true,
		Correction: true,
		re:         regexp.MustCompile(expr),
	}
}

func primary(expr string) Matcher {
	return Matcher{
		Tier:       domain.TierPrimary,
		Confidence: domain.ConfidencePrimary,
		Explicit:   true,
		re:         regexp.MustCompile(expr),
	}
}

func secondary(expr string) Matcher {
	return Matcher{
		Tier:       domain.TierSecondary,
		Confidence: domain.ConfidenceSecondary,
		Explicit:   true,
		re:         regexp.MustCompile(expr),
	}
}

func contextual(expr string) Matcher {
	return Matcher{
		Tier:       domain.TierContextual,
		Confidence: domain.ConfidenceContextual,
		re:         regexp.MustCompile(expr),
	}
}

const phoneChars = `[\d\s().+-]{7,}`

func defaultMatchers() map[string][]Matcher {
	return map[string][]Matcher{
		domain.KeyName: {
			correction(`(?i)^(?:no[,.!]?\s+)?actually[,.!]?\s+(?:it'?s|it is|my name is|the name is)\s+(.+)$`),
			correction(`(?i)^that'?s\s+(.+)$`),
			primary(`(?i)\bmy name(?:'s| is)\s+(.+)$`),
			primary(`(?i)\bthe name is\s+(.+)$`),
			secondary(`(?i)^this is\s+(.+)$`),
			secondary(`(?i)\bcall me\s+(.+)$`),
			secondary(`(?i)^i'?m\s+(.+)$`),
			contextual(`(?i)^(?:hi|hello|hey)[,.!]?\s+([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*)?)$`),
			contextual(`(?i)^it'?s\s+(.+)$`),
		},
		domain.KeyPhone: {
			correction(`(?i)^(?:no[,.!]?\s+)?actually[,.!]?\s+(?:it'?s|it is|the number is|my number is)\s+(` + phoneChars + `)$`),
			primary(`(?i)\b(?:my|the)\s+(?:phone(?:\s+number)?|number|cell(?:\s+phone)?|mobile)\s+is\s+(` + phoneChars + `)`),
			primary(`(?i)\byou can reach me at\s+(` + phoneChars + `)`),
			secondary(`(?i)\bcall me (?:at|on)\s+(` + phoneChars + `)`),
		},
		domain.KeyAddress: {
			correction(`(?i)^(?:no[,.!]?\s+)?actually[,.!]?\s+(?:it'?s|it is|the address is)\s+(.+)$`),
			primary(`(?i)\b(?:my|the)\s+(?:street\s+|service\s+)?address is\s+(.+)$`),
			primary(`(?i)\bi live at\s+(.+)$`),
			primary(`(?i)\bwe(?:'re| are) (?:at|located at)\s+(.+)$`),
			secondary(`(?i)\bit'?s at\s+(.+)$`),
			secondary(`(?i)\bcome (?:to|out to)\s+(.+)$`),
		},
		domain.KeyTime: {
			correction(`(?i)^(?:no[,.!]?\s+)?actually[,.!]?\s+(?:let'?s do|make it|it'?s)?\s*(.+)$`),
			primary(`(?i)\b(?:how about|let'?s do|schedule (?:it|me) for|i'?d like|works? for me is)\s+(.+)$`),
			secondary(`(?i)\b(?:any ?time|sometime)\s+(.+)$`),
		},
		domain.KeyEmail: {
			correction(`(?i)^(?:no[,.!]?\s+)?actually[,.!]?\s+(?:it'?s|it is|my email is)\s+(\S+@\S+)$`),
			primary(`(?i)\b(?:my|the)\s+e-?mail(?:\s+address)?(?:'s| is)\s+(\S+@\S+)`),
			secondary(`([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})`),
		},
		domain.KeyCallReason: {
			primary(`(?i)\b(?:the (?:problem|issue) is|i'?m calling (?:about|because)|having (?:a problem|an issue|trouble) with)\s+(.+)$`),
		},
	}
}
