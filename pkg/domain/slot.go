package domain

// Source identifies where a slot value came from.
type Source string

const (
	SourceUtterance      Source = "utterance"
	SourceCallerMetadata Source = "caller-metadata"
	SourceManual         Source = "manual"
	SourceExternalLookup Source = "external-lookup"
)

// PatternTier identifies which extraction tier produced a candidate.
// Tiers are evaluated top-to-bottom; the tier that matched is recorded
// on the candidate so the merge engine can weigh its strength.
type PatternTier string

const (
	TierCorrection PatternTier = "correction"
	TierPrimary    PatternTier = "primary"
	TierSecondary  PatternTier = "secondary"
	TierContextual PatternTier = "contextual"
	TierFallback   PatternTier = "fallback"
)

// LockTier is the protection level of an identity slot.
type LockTier string

const (
	LockNone      LockTier = ""
	LockPrimary   LockTier = "primary"
	LockSecondary LockTier = "secondary"
)

// Well-known slot keys. The set is open: a flow configuration may
// introduce additional keys (propertyType, unitNumber, gateCode, ...).
const (
	KeyName       = "name"
	KeyPhone      = "phone"
	KeyAddress    = "address"
	KeyTime       = "time"
	KeyEmail      = "email"
	KeyCallReason = "callReasonDetail"
)

// Revision is one prior value of a slot, kept for auditability.
type Revision struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Turn       int     `json:"turn"`
	Reason     string  `json:"reason"`
}

// RejectedCandidate records a candidate the merge engine refused.
type RejectedCandidate struct {
	Value      string      `json:"value"`
	Confidence float64     `json:"confidence"`
	Tier       PatternTier `json:"tier"`
	Turn       int         `json:"turn"`
	Reason     string      `json:"reason"`
}

// Slot is a single piece of structured booking data plus its
// provenance and confidence metadata.
type Slot struct {
	Value             string              `json:"value"`
	Confidence        float64             `json:"confidence"`
	Source            Source              `json:"source"`
	Turn              int                 `json:"turn"`
	Confirmed         bool                `json:"confirmed"`
	Immutable         bool                `json:"immutable"`
	NeedsConfirmation bool                `json:"needs_confirmation"`
	Locked            bool                `json:"locked"`
	LockTier          LockTier            `json:"lock_tier,omitempty"`
	Conflict          bool                `json:"conflict"`
	ConflictingValue  string              `json:"conflicting_value,omitempty"`
	CorrectedByCaller bool                `json:"corrected_by_caller"`
	History           []Revision          `json:"history,omitempty"`
	Rejected          []RejectedCandidate `json:"rejected,omitempty"`
}

// SlotSet maps slot keys to slots. Keys are unique; there are no
// ordering semantics.
type SlotSet map[string]Slot

// Clone returns an independent copy of the set. Slots are values, so a
// shallow map copy plus slice copies is a full isolation boundary.
func (s SlotSet) Clone() SlotSet {
	if s == nil {
		return nil
	}
	out := make(SlotSet, len(s))
	for k, v := range s {
		v.History = append([]Revision(nil), v.History...)
		v.Rejected = append([]RejectedCandidate(nil), v.Rejected...)
		out[k] = v
	}
	return out
}

// Candidate is the ephemeral output of one extractor for one turn.
// It is consumed exactly once by the merge engine and never persisted.
type Candidate struct {
	Key          string      `json:"key"`
	Value        string      `json:"value"`
	Confidence   float64     `json:"confidence"`
	Source       Source      `json:"source"`
	Tier         PatternTier `json:"tier"`
	IsCorrection bool        `json:"is_correction"`
	Explicit     bool        `json:"explicit"`
	Turn         int         `json:"turn"`
}

// Confidence levels assigned by extraction tier.
const (
	ConfidenceCorrection = 0.9
	ConfidencePrimary    = 0.9
	ConfidenceSecondary  = 0.9
	ConfidenceContextual = 0.6
	ConfidenceMetadata   = 0.7
	ConfidenceConfirmed  = 1.0
	ConfidenceFallback   = 0.6
)

// Merge policy thresholds. A candidate within ConflictWindow of the
// existing confidence (inclusive) with a different value is surfaced as
// a conflict rather than a replacement. An existing slot at or above
// ProtectionFloor rejects candidates that were not extracted explicitly.
const (
	ConflictWindow  = 0.15
	ProtectionFloor = 0.8
)
