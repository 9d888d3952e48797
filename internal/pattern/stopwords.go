package pattern

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stopwords is a versioned exclusion set. Words on the list are never
// accepted as slot values on their own. The set is data-driven so
// additions are auditable rather than buried in code.
type Stopwords struct {
	Version string
	Locale  string
	words   map[string]bool
}

// stopwordsFile is the YAML shape of an exclusion set.
type stopwordsFile struct {
	Version string   `yaml:"version"`
	Locale  string   `yaml:"locale"`
	Words   []string `yaml:"words"`
}

// defaultStopwords covers fillers, confirmations, and greetings that
// callers produce constantly but that are never valid slot values.
var defaultStopwords = []string{
	"yes", "yeah", "yep", "no", "nope", "ok", "okay", "sure", "fine",
	"right", "correct", "wrong", "maybe", "please", "thanks", "thank you",
	"hello", "hi", "hey", "bye", "goodbye", "um", "uh", "hmm", "hm",
	"what", "sorry", "pardon", "hold on", "wait", "stop", "help",
	"nothing", "none", "nobody", "anyone", "someone", "something",
	"today", "tomorrow", "tonight", "now", "later", "soon",
	"here", "there", "it", "that", "this", "me", "you", "sir", "ma'am",
}

// DefaultStopwords returns the built-in en-US exclusion set.
func DefaultStopwords() *Stopwords {
	return newStopwords("builtin", "en-US", defaultStopwords)
}

// LoadStopwords reads a YAML exclusion set. An empty word list falls
// back to the built-in defaults.
func LoadStopwords(r io.Reader) (*Stopwords, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stopwords: %w", err)
	}
	var f stopwordsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stopwords: %w", err)
	}
	if len(f.Words) == 0 {
		return DefaultStopwords(), nil
	}
	return newStopwords(f.Version, f.Locale, f.Words), nil
}

func newStopwords(version, locale string, words []string) *Stopwords {
	s := &Stopwords{
		Version: version,
		Locale:  locale,
		words:   make(map[string]bool, len(words)),
	}
	for _, w := range words {
		s.words[strings.ToLower(strings.TrimSpace(w))] = true
	}
	return s
}

// Contains reports whether the (whole) value is on the exclusion list.
func (s *Stopwords) Contains(value string) bool {
	if s == nil {
		return false
	}
	return s.words[strings.ToLower(strings.TrimSpace(value))]
}
