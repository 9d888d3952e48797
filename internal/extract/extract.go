// Package extract turns free-form caller utterances into slot
// candidates. Extraction is pure: no I/O, no mutation of the inputs,
// zero or one candidate per slot type per turn.
package extract

import (
	"regexp"
	"strings"

	"github.com/aretw0/intake/internal/pattern"
	"github.com/aretw0/intake/pkg/domain"
)

// extractionOrder fixes the deterministic evaluation order of the
// built-in slot types.
var extractionOrder = []string{
	domain.KeyName,
	domain.KeyPhone,
	domain.KeyAddress,
	domain.KeyTime,
	domain.KeyEmail,
	domain.KeyCallReason,
}

var confirmPhoneRe = regexp.MustCompile(`(?i)\b(?:use|keep)?\s*(?:this|that|my)\s+(?:number|phone)\b`)

// Extractor evaluates the pattern library against utterances under
// step gating.
type Extractor struct {
	lib *pattern.Library
}

// New creates an extractor over a matcher library.
func New(lib *pattern.Library) *Extractor {
	if lib == nil {
		lib = pattern.NewLibrary(nil)
	}
	return &Extractor{lib: lib}
}

// ShouldExtract reports whether extraction for a slot type is permitted
// under the active step. Disabling an extractor entirely while another
// field is being asked prevents cross-type contamination by
// construction, not by post-hoc filtering.
func (e *Extractor) ShouldExtract(key string, step *domain.FlowStep) bool {
	return step.Permits(key)
}

// All is the turn-level entry point. It returns candidates only for
// slots with a new value this turn.
func (e *Extractor) All(utterance string, ctx domain.TurnContext) map[string]domain.Candidate {
	out := make(map[string]domain.Candidate)

	keys := extractionOrder
	if ctx.Step != nil && !contains(keys, ctx.Step.FieldKey) {
		keys = append(append([]string(nil), keys...), ctx.Step.FieldKey)
	}

	for _, key := range keys {
		if c := e.Extract(key, utterance, ctx); c != nil {
			out[key] = *c
		}
	}

	// Caller-ID seeding: the transport's caller metadata fills the phone
	// slot at low confidence when nothing better is known.
	if _, present := out[domain.KeyPhone]; !present && ctx.CallerPhone != "" {
		if existing, ok := ctx.Existing[domain.KeyPhone]; !ok || existing.Value == "" {
			out[domain.KeyPhone] = domain.Candidate{
				Key:        domain.KeyPhone,
				Value:      normalizePhone(ctx.CallerPhone),
				Confidence: domain.ConfidenceMetadata,
				Source:     domain.SourceCallerMetadata,
				Tier:       domain.TierContextual,
				Turn:       ctx.Turn,
			}
		}
	}

	return out
}

// Extract runs one slot type's tiers against an utterance. Returns nil
// when gating forbids the type, nothing matches, or the matched value
// fails structural validation.
func (e *Extractor) Extract(key, utterance string, ctx domain.TurnContext) *domain.Candidate {
	if !e.ShouldExtract(key, ctx.Step) {
		return nil
	}
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil
	}

	if key == domain.KeyPhone {
		if c := e.confirmPhone(utterance, ctx); c != nil {
			return c
		}
	}

	stop := e.lib.Stopwords()
	matchers := e.lib.Matchers(key)
	for i := range matchers {
		m := &matchers[i]
		value, ok := m.Match(utterance)
		if !ok {
			continue
		}
		value = normalizeValue(key, value)
		if !pattern.ValidForKey(key, value, stop) {
			continue
		}
		return &domain.Candidate{
			Key:          key,
			Value:        value,
			Confidence:   m.Confidence,
			Source:       domain.SourceUtterance,
			Tier:         m.Tier,
			IsCorrection: m.Correction,
			Explicit:     m.Explicit,
			Turn:         ctx.Turn,
		}
	}

	return e.fallback(key, utterance, ctx)
}

// confirmPhone handles "use this number": the caller endorses the
// number we already hold, promoting it to externally confirmed.
func (e *Extractor) confirmPhone(utterance string, ctx domain.TurnContext) *domain.Candidate {
	if !confirmPhoneRe.MatchString(utterance) {
		return nil
	}
	value := ctx.Existing[domain.KeyPhone].Value
	if value == "" {
		value = normalizePhone(ctx.CallerPhone)
	}
	if value == "" {
		return nil
	}
	return &domain.Candidate{
		Key:        domain.KeyPhone,
		Value:      value,
		Confidence: domain.ConfidenceConfirmed,
		Source:     domain.SourceExternalLookup,
		Tier:       domain.TierPrimary,
		Explicit:   true,
		Turn:       ctx.Turn,
	}
}

// fallback is the step-gated permissive tier: only active when the
// current step explicitly expects this slot type, and still subject to
// structural validation.
func (e *Extractor) fallback(key, utterance string, ctx domain.TurnContext) *domain.Candidate {
	if ctx.Step == nil || ctx.Step.FieldKey != key {
		return nil
	}

	value := strings.Trim(utterance, ".,!? ")
	stop := e.lib.Stopwords()

	switch key {
	case domain.KeyName:
		// Bare-token or two-token acceptance only.
		if len(strings.Fields(value)) > 2 {
			return nil
		}
	case domain.KeyPhone:
		value = normalizePhone(value)
	}

	if stop.Contains(value) || !pattern.ValidForKey(key, value, stop) {
		return nil
	}
	return &domain.Candidate{
		Key:        key,
		Value:      value,
		Confidence: domain.ConfidenceFallback,
		Source:     domain.SourceUtterance,
		Tier:       domain.TierFallback,
		Turn:       ctx.Turn,
	}
}

func normalizeValue(key, value string) string {
	if key == domain.KeyPhone {
		return normalizePhone(value)
	}
	return value
}

// normalizePhone strips separators down to bare digits, dropping a
// leading country "1" from eleven-digit numbers.
func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
