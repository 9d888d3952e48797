// Package merge reconciles extraction candidates against known slot
// state. Merging is a deterministic reducer: an ordered precedence
// policy (immutability, confirmation, locking, protection, correction,
// confidence, conflict) in which the first matching rule
// short-circuits. It never fails; every outcome is a decision record.
package merge

import (
	"math"

	"github.com/aretw0/intake/pkg/domain"
)

// identitySlots are the keys eligible for lock tiers.
var identitySlots = map[string]bool{
	domain.KeyName:  true,
	domain.KeyPhone: true,
}

// Merge combines a candidate with existing slot state. A nil existing
// slot adopts the candidate. The returned slot is a new value; the
// existing slot is never mutated.
func Merge(existing *domain.Slot, c domain.Candidate) (domain.Slot, domain.Decision) {
	// Rule 1: nothing known yet.
	if existing == nil || existing.Value == "" {
		slot := adopt(c)
		return slot, decide(c.Key, domain.DecisionAdded, "no existing value", slot)
	}

	cur := copySlot(*existing)

	// Idempotence guard: re-offering the value we already hold at no
	// greater confidence changes nothing, regardless of flags.
	if c.Value == cur.Value && c.Confidence <= cur.Confidence {
		return cur, decide(c.Key, domain.DecisionKeptExisting, "identical candidate", cur)
	}

	// Rule 2: immutable slots accept only explicit, pattern-verified corrections.
	if cur.Immutable {
		if c.IsCorrection && c.Explicit {
			slot := acceptCorrection(cur, c)
			return slot, decide(c.Key, domain.DecisionAccepted, "correction of immutable slot", slot)
		}
		return reject(cur, c, "slot is immutable")
	}

	// Rule 3: confirmed slots accept only corrections.
	if cur.Confirmed || cur.Confidence >= domain.ConfidenceConfirmed {
		if c.IsCorrection {
			slot := acceptCorrection(cur, c)
			return slot, decide(c.Key, domain.DecisionAccepted, "correction of confirmed slot", slot)
		}
		return reject(cur, c, "slot is confirmed")
	}

	// Rule 4: lock tiers protect identity slots from weak evidence.
	if cur.Locked {
		switch cur.LockTier {
		case domain.LockPrimary:
			if c.Tier == domain.TierPrimary || (c.IsCorrection && c.Explicit) {
				slot := override(cur, c, "primary lock override")
				return slot, decide(c.Key, domain.DecisionAccepted, "primary lock override", slot)
			}
			return reject(cur, c, "primary lock refuses non-primary candidate")
		case domain.LockSecondary:
			if c.Explicit {
				slot := override(cur, c, "secondary lock override")
				return slot, decide(c.Key, domain.DecisionAccepted, "secondary lock override", slot)
			}
			return reject(cur, c, "secondary lock refuses implicit candidate")
		}
	}

	// Rule 5: high-confidence protection. An established value is not
	// overwritten by low-signal inference.
	if cur.Confidence >= domain.ProtectionFloor && !c.Explicit {
		return reject(cur, c, "existing confidence protects against implicit candidate")
	}

	// Rule 6: corrections win unconditionally.
	if c.IsCorrection {
		slot := acceptCorrection(cur, c)
		return slot, decide(c.Key, domain.DecisionAccepted, "caller correction", slot)
	}

	// Rule 7: strictly higher confidence replaces.
	if c.Confidence > cur.Confidence {
		slot := acceptUpgrade(cur, c, "higher confidence")
		return slot, decide(c.Key, domain.DecisionAccepted, "higher confidence", slot)
	}

	// Rule 8: similar confidence with a differing value is a conflict,
	// surfaced as state for the dialogue layer to resolve with the caller.
	if c.Value != cur.Value && math.Abs(c.Confidence-cur.Confidence) <= domain.ConflictWindow {
		// Re-offering a value already flagged as the conflicting
		// alternative changes nothing.
		if cur.Conflict && cur.ConflictingValue == c.Value {
			return cur, decide(c.Key, domain.DecisionKeptExisting, "conflict already recorded", cur)
		}
		cur.Conflict = true
		cur.ConflictingValue = c.Value
		cur.History = append(cur.History, domain.Revision{
			Value:      c.Value,
			Confidence: c.Confidence,
			Turn:       c.Turn,
			Reason:     "conflict",
		})
		return cur, decide(c.Key, domain.DecisionConflict, "similar confidence, differing value", cur)
	}

	// Rule 9: nothing applied.
	return cur, decide(c.Key, domain.DecisionKeptExisting, "candidate not stronger", cur)
}

// Slots merges a turn's candidate fragment into a slot set, returning
// the merged set and the decision trace. The input set is not mutated.
func Slots(existing domain.SlotSet, incoming map[string]domain.Candidate) (domain.SlotSet, []domain.Decision) {
	merged := existing.Clone()
	if merged == nil {
		merged = make(domain.SlotSet)
	}
	decisions := make([]domain.Decision, 0, len(incoming))

	for key, c := range incoming {
		var prev *domain.Slot
		if slot, ok := merged[key]; ok {
			prev = &slot
		}
		next, decision := Merge(prev, c)
		merged[key] = next
		decisions = append(decisions, decision)
	}
	return merged, decisions
}

func adopt(c domain.Candidate) domain.Slot {
	slot := domain.Slot{
		Value:      c.Value,
		Confidence: c.Confidence,
		Source:     c.Source,
		Turn:       c.Turn,
		Confirmed:  c.Confidence >= domain.ConfidenceConfirmed,
	}
	applyLock(&slot, c)
	if c.IsCorrection {
		slot.CorrectedByCaller = true
	}
	return slot
}

func acceptCorrection(cur domain.Slot, c domain.Candidate) domain.Slot {
	next := cur
	next.History = append(next.History, domain.Revision{
		Value:      cur.Value,
		Confidence: cur.Confidence,
		Turn:       cur.Turn,
		Reason:     "corrected",
	})
	next.Value = c.Value
	next.Confidence = c.Confidence
	next.Source = c.Source
	next.Turn = c.Turn
	next.Confirmed = false
	next.Immutable = false
	next.NeedsConfirmation = true
	next.CorrectedByCaller = true
	next.Conflict = false
	next.ConflictingValue = ""
	// A correction demotes a primary lock; only fresh primary evidence
	// restores it.
	if next.Locked && c.Tier != domain.TierPrimary {
		next.LockTier = domain.LockSecondary
	}
	applyLock(&next, c)
	return next
}

// override resolves a lock-tier acceptance: corrections keep their
// correction semantics, anything else is a plain upgrade.
func override(cur domain.Slot, c domain.Candidate, reason string) domain.Slot {
	if c.IsCorrection {
		return acceptCorrection(cur, c)
	}
	return acceptUpgrade(cur, c, reason)
}

func acceptUpgrade(cur domain.Slot, c domain.Candidate, reason string) domain.Slot {
	next := cur
	next.History = append(next.History, domain.Revision{
		Value:      cur.Value,
		Confidence: cur.Confidence,
		Turn:       cur.Turn,
		Reason:     reason,
	})
	next.Value = c.Value
	next.Confidence = c.Confidence
	next.Source = c.Source
	next.Turn = c.Turn
	next.Confirmed = c.Confidence >= domain.ConfidenceConfirmed
	next.Conflict = false
	next.ConflictingValue = ""
	applyLock(&next, c)
	return next
}

func reject(cur domain.Slot, c domain.Candidate, reason string) (domain.Slot, domain.Decision) {
	// An identical re-offer within the same turn adds nothing to the
	// rejection record.
	for _, r := range cur.Rejected {
		if r.Value == c.Value && r.Confidence == c.Confidence && r.Turn == c.Turn {
			return cur, decide(c.Key, domain.DecisionRejected, reason, cur)
		}
	}
	cur.Rejected = append(cur.Rejected, domain.RejectedCandidate{
		Value:      c.Value,
		Confidence: c.Confidence,
		Tier:       c.Tier,
		Turn:       c.Turn,
		Reason:     reason,
	})
	return cur, decide(c.Key, domain.DecisionRejected, reason, cur)
}

// applyLock sets the lock tier for identity slots based on the
// strength of the accepted evidence. Locks only ever tighten here;
// loosening happens through corrections.
func applyLock(slot *domain.Slot, c domain.Candidate) {
	if !identitySlots[c.Key] || !c.Explicit {
		return
	}
	switch c.Tier {
	case domain.TierPrimary:
		slot.Locked = true
		slot.LockTier = domain.LockPrimary
	case domain.TierSecondary, domain.TierCorrection:
		if slot.LockTier != domain.LockPrimary {
			slot.Locked = true
			slot.LockTier = domain.LockSecondary
		}
	}
}

func copySlot(s domain.Slot) domain.Slot {
	s.History = append([]domain.Revision(nil), s.History...)
	s.Rejected = append([]domain.RejectedCandidate(nil), s.Rejected...)
	return s
}

func decide(key string, action domain.DecisionAction, reason string, slot domain.Slot) domain.Decision {
	return domain.Decision{Key: key, Action: action, Reason: reason, Slot: slot}
}
