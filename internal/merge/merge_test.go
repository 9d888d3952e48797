package merge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/intake/internal/merge"
	"github.com/aretw0/intake/pkg/domain"
)

func candidate(key, value string, conf float64, tier domain.PatternTier) domain.Candidate {
	return domain.Candidate{
		Key:        key,
		Value:      value,
		Confidence: conf,
		Source:     domain.SourceUtterance,
		Tier:       tier,
		Explicit:   tier == domain.TierPrimary || tier == domain.TierSecondary || tier == domain.TierCorrection,
		Turn:       1,
	}
}

func correction(key, value string) domain.Candidate {
	c := candidate(key, value, domain.ConfidenceCorrection, domain.TierCorrection)
	c.IsCorrection = true
	return c
}

func TestMerge_AdoptsIntoEmptySlot(t *testing.T) {
	slot, d := merge.Merge(nil, candidate(domain.KeyName, "Maria Garcia", 0.9, domain.TierPrimary))

	assert.Equal(t, domain.DecisionAdded, d.Action)
	assert.Equal(t, "Maria Garcia", slot.Value)
	assert.Equal(t, 0.9, slot.Confidence)
	assert.False(t, slot.Confirmed)
	// Explicit primary evidence on an identity slot locks it.
	assert.True(t, slot.Locked)
	assert.Equal(t, domain.LockPrimary, slot.LockTier)
}

func TestMerge_PrimaryLockRejectsContextualChatter(t *testing.T) {
	// "My name is Maria Garcia" followed a few turns later by
	// "it's super hot in here": the contextual name matcher fires but
	// the lock holds.
	existing, _ := merge.Merge(nil, candidate(domain.KeyName, "Maria Garcia", 0.9, domain.TierPrimary))

	intruder := candidate(domain.KeyName, "super hot", domain.ConfidenceContextual, domain.TierContextual)
	slot, d := merge.Merge(&existing, intruder)

	assert.Equal(t, domain.DecisionRejected, d.Action)
	assert.Equal(t, "Maria Garcia", slot.Value)
	require.Len(t, slot.Rejected, 1)
	assert.Equal(t, "super hot", slot.Rejected[0].Value)
	assert.Equal(t, domain.TierContextual, slot.Rejected[0].Tier)
}

func TestMerge_PrimaryLockAdmitsFreshPrimaryEvidence(t *testing.T) {
	existing, _ := merge.Merge(nil, candidate(domain.KeyName, "Maria", 0.9, domain.TierPrimary))

	slot, d := merge.Merge(&existing, candidate(domain.KeyName, "Maria Garcia", 0.9, domain.TierPrimary))

	assert.Equal(t, domain.DecisionAccepted, d.Action)
	assert.Equal(t, "Maria Garcia", slot.Value)
	assert.Equal(t, domain.LockPrimary, slot.LockTier)
	require.Len(t, slot.History, 1)
	assert.Equal(t, "Maria", slot.History[0].Value)
}

func TestMerge_PrimaryLockAdmitsExplicitCorrection(t *testing.T) {
	existing, _ := merge.Merge(nil, candidate(domain.KeyName, "John Smith", 0.9, domain.TierPrimary))

	slot, d := merge.Merge(&existing, correction(domain.KeyName, "Jon Smythe"))

	assert.Equal(t, domain.DecisionAccepted, d.Action)
	assert.Equal(t, "Jon Smythe", slot.Value)
	assert.True(t, slot.CorrectedByCaller)
	assert.True(t, slot.NeedsConfirmation)
}

func TestMerge_PrimaryLockRejectsSecondaryEvidence(t *testing.T) {
	existing, _ := merge.Merge(nil, candidate(domain.KeyName, "Maria Garcia", 0.9, domain.TierPrimary))

	slot, d := merge.Merge(&existing, candidate(domain.KeyName, "Bob", 0.9, domain.TierSecondary))

	assert.Equal(t, domain.DecisionRejected, d.Action)
	assert.Equal(t, "Maria Garcia", slot.Value)
}

func TestMerge_SecondaryLockAdmitsExplicitOnly(t *testing.T) {
	existing, _ := merge.Merge(nil, candidate(domain.KeyName, "Bob", 0.9, domain.TierSecondary))
	require.Equal(t, domain.LockSecondary, existing.LockTier)

	_, d := merge.Merge(&existing, candidate(domain.KeyName, "Alice", 0.6, domain.TierContextual))
	assert.Equal(t, domain.DecisionRejected, d.Action)

	slot, d := merge.Merge(&existing, candidate(domain.KeyName, "Robert Jones", 0.9, domain.TierSecondary))
	assert.Equal(t, domain.DecisionAccepted, d.Action)
	assert.Equal(t, "Robert Jones", slot.Value)
}

func TestMerge_NonIdentitySlotsNeverLock(t *testing.T) {
	slot, _ := merge.Merge(nil, candidate(domain.KeyAddress, "12 Oak Street", 0.9, domain.TierPrimary))

	assert.False(t, slot.Locked)
	assert.Equal(t, domain.LockNone, slot.LockTier)
}

func TestMerge_ImmutableAcceptsOnlyExplicitCorrection(t *testing.T) {
	existing := domain.Slot{Value: "555-0100", Confidence: 0.9, Immutable: true}

	_, d := merge.Merge(&existing, candidate(domain.KeyPhone, "5551234567", 0.9, domain.TierPrimary))
	assert.Equal(t, domain.DecisionRejected, d.Action)

	slot, d := merge.Merge(&existing, correction(domain.KeyPhone, "5551234567"))
	assert.Equal(t, domain.DecisionAccepted, d.Action)
	assert.Equal(t, "5551234567", slot.Value)
	assert.False(t, slot.Immutable)
	assert.True(t, slot.NeedsConfirmation)
}

func TestMerge_ConfirmedAcceptsOnlyCorrections(t *testing.T) {
	existing := domain.Slot{Value: "tomorrow morning", Confidence: 1.0, Confirmed: true}

	_, d := merge.Merge(&existing, candidate(domain.KeyTime, "friday at 2pm", 0.9, domain.TierPrimary))
	assert.Equal(t, domain.DecisionRejected, d.Action)

	slot, d := merge.Merge(&existing, correction(domain.KeyTime, "friday at 2pm"))
	assert.Equal(t, domain.DecisionAccepted, d.Action)
	assert.Equal(t, "friday at 2pm", slot.Value)
	assert.False(t, slot.Confirmed)
	require.Len(t, slot.History, 1)
	assert.Equal(t, "tomorrow morning", slot.History[0].Value)
}

func TestMerge_ExternalConfirmationMarksConfirmed(t *testing.T) {
	// "Use this number": the extractor promotes the held phone to an
	// externally confirmed candidate.
	existing := domain.Slot{Value: "5551234567", Confidence: 0.7, Source: domain.SourceCallerMetadata}

	c := domain.Candidate{
		Key:        domain.KeyPhone,
		Value:      "5551234567",
		Confidence: domain.ConfidenceConfirmed,
		Source:     domain.SourceExternalLookup,
		Tier:       domain.TierPrimary,
		Explicit:   true,
		Turn:       3,
	}
	slot, d := merge.Merge(&existing, c)

	assert.Equal(t, domain.DecisionAccepted, d.Action)
	assert.True(t, slot.Confirmed)
	assert.Equal(t, 1.0, slot.Confidence)
	assert.Equal(t, domain.SourceExternalLookup, slot.Source)
}

func TestMerge_ProtectionFloorRejectsImplicitCandidates(t *testing.T) {
	// Exactly at the floor counts as protected.
	existing := domain.Slot{Value: "12 Oak Street", Confidence: 0.8}

	c := candidate(domain.KeyAddress, "99 Elm Avenue", 0.9, domain.TierContextual)
	require.False(t, c.Explicit)
	slot, d := merge.Merge(&existing, c)

	assert.Equal(t, domain.DecisionRejected, d.Action)
	assert.Equal(t, "12 Oak Street", slot.Value)
}

func TestMerge_BelowProtectionFloorHigherConfidenceWins(t *testing.T) {
	existing := domain.Slot{Value: "12 Oak Street", Confidence: 0.6}

	slot, d := merge.Merge(&existing, candidate(domain.KeyAddress, "99 Elm Avenue", 0.9, domain.TierPrimary))

	assert.Equal(t, domain.DecisionAccepted, d.Action)
	assert.Equal(t, "99 Elm Avenue", slot.Value)
	require.Len(t, slot.History, 1)
	assert.Equal(t, "12 Oak Street", slot.History[0].Value)
	assert.Equal(t, 0.6, slot.History[0].Confidence)
}

func TestMerge_ConflictWindowFlagsInsteadOfReplacing(t *testing.T) {
	existing := domain.Slot{Value: "tomorrow morning", Confidence: 0.6}

	// Delta of 0.15 is inside the window.
	c := candidate(domain.KeyTime, "friday afternoon", 0.45, domain.TierContextual)
	c.Explicit = false
	slot, d := merge.Merge(&existing, c)

	assert.Equal(t, domain.DecisionConflict, d.Action)
	assert.Equal(t, "tomorrow morning", slot.Value)
	assert.True(t, slot.Conflict)
	assert.Equal(t, "friday afternoon", slot.ConflictingValue)
	require.Len(t, slot.History, 1)
	assert.Equal(t, "conflict", slot.History[0].Reason)
}

func TestMerge_HigherConfidenceInsideWindowStillReplaces(t *testing.T) {
	existing := domain.Slot{Value: "tomorrow morning", Confidence: 0.45}

	// Delta of 0.15 is inside the window, but a strictly stronger
	// candidate replaces before the window is consulted.
	c := candidate(domain.KeyTime, "friday afternoon", 0.6, domain.TierContextual)
	c.Explicit = false
	slot, d := merge.Merge(&existing, c)

	assert.Equal(t, domain.DecisionAccepted, d.Action)
	assert.Equal(t, "friday afternoon", slot.Value)
	assert.False(t, slot.Conflict)
}

func TestMerge_ConflictResultIsStableOnReoffer(t *testing.T) {
	existing := domain.Slot{Value: "tomorrow morning", Confidence: 0.6}
	c := candidate(domain.KeyTime, "friday afternoon", 0.45, domain.TierContextual)
	c.Explicit = false

	first, d := merge.Merge(&existing, c)
	require.Equal(t, domain.DecisionConflict, d.Action)
	require.Len(t, first.History, 1)

	// Re-merging the identical candidate into its own result is a no-op.
	second, d := merge.Merge(&first, c)
	assert.Equal(t, domain.DecisionKeptExisting, d.Action)
	assert.Equal(t, first, second)
}

func TestMerge_RejectionRecordIsStableOnReoffer(t *testing.T) {
	existing, _ := merge.Merge(nil, candidate(domain.KeyName, "Maria Garcia", 0.9, domain.TierPrimary))

	chatter := candidate(domain.KeyName, "super hot", 0.6, domain.TierContextual)
	chatter.Explicit = false

	first, d := merge.Merge(&existing, chatter)
	require.Equal(t, domain.DecisionRejected, d.Action)
	require.Len(t, first.Rejected, 1)

	second, d := merge.Merge(&first, chatter)
	assert.Equal(t, domain.DecisionRejected, d.Action)
	assert.Equal(t, first, second)
}

func TestMerge_OutsideConflictWindowKeepsExisting(t *testing.T) {
	existing := domain.Slot{Value: "tomorrow morning", Confidence: 0.78}

	c := candidate(domain.KeyTime, "friday afternoon", 0.6, domain.TierContextual)
	c.Explicit = false
	slot, d := merge.Merge(&existing, c)

	assert.Equal(t, domain.DecisionKeptExisting, d.Action)
	assert.False(t, slot.Conflict)
	assert.Empty(t, slot.History)
}

func TestMerge_IdenticalCandidateIsIdempotent(t *testing.T) {
	existing, _ := merge.Merge(nil, candidate(domain.KeyName, "Maria Garcia", 0.9, domain.TierPrimary))

	slot, d := merge.Merge(&existing, candidate(domain.KeyName, "Maria Garcia", 0.9, domain.TierPrimary))
	assert.Equal(t, domain.DecisionKeptExisting, d.Action)
	assert.Empty(t, slot.History)

	// Repeating a correction of the held value must not re-append
	// history either.
	slot, d = merge.Merge(&existing, correction(domain.KeyName, "Maria Garcia"))
	assert.Equal(t, domain.DecisionKeptExisting, d.Action)
	assert.Empty(t, slot.History)
}

func TestMerge_DoesNotMutateExistingSlot(t *testing.T) {
	existing := domain.Slot{Value: "Maria", Confidence: 0.6,
		History: []domain.Revision{{Value: "M", Turn: 1}}}

	_, _ = merge.Merge(&existing, candidate(domain.KeyName, "Maria Garcia", 0.9, domain.TierPrimary))

	assert.Equal(t, "Maria", existing.Value)
	assert.Len(t, existing.History, 1)
}

func TestMerge_CorrectionDemotesPrimaryLock(t *testing.T) {
	existing, _ := merge.Merge(nil, candidate(domain.KeyName, "John Smith", 0.9, domain.TierPrimary))

	slot, _ := merge.Merge(&existing, correction(domain.KeyName, "Jon Smythe"))

	// The corrected value is protected, but at the weaker tier until
	// fresh primary evidence arrives.
	assert.True(t, slot.Locked)
	assert.Equal(t, domain.LockSecondary, slot.LockTier)

	restored, d := merge.Merge(&slot, candidate(domain.KeyName, "Jon Smythe Jr", 0.9, domain.TierPrimary))
	assert.Equal(t, domain.DecisionAccepted, d.Action)
	assert.Equal(t, domain.LockPrimary, restored.LockTier)
}

func TestSlots_MergesFragmentWithoutMutatingInput(t *testing.T) {
	existing := domain.SlotSet{
		domain.KeyName: {Value: "Maria Garcia", Confidence: 0.9, Locked: true, LockTier: domain.LockPrimary},
	}

	incoming := map[string]domain.Candidate{
		domain.KeyName:    candidate(domain.KeyName, "super hot", 0.6, domain.TierContextual),
		domain.KeyAddress: candidate(domain.KeyAddress, "12155 Metro Parkway", 0.9, domain.TierPrimary),
	}

	merged, decisions := merge.Slots(existing, incoming)

	require.Len(t, decisions, 2)
	assert.Equal(t, "Maria Garcia", merged[domain.KeyName].Value)
	assert.Equal(t, "12155 Metro Parkway", merged[domain.KeyAddress].Value)

	// Input set untouched.
	assert.NotContains(t, existing, domain.KeyAddress)
	assert.Empty(t, existing[domain.KeyName].Rejected)
}

func TestSlots_NilExistingSet(t *testing.T) {
	merged, decisions := merge.Slots(nil, map[string]domain.Candidate{
		domain.KeyName: candidate(domain.KeyName, "Maria", 0.9, domain.TierPrimary),
	})

	require.Len(t, decisions, 1)
	assert.Equal(t, domain.DecisionAdded, decisions[0].Action)
	assert.Equal(t, "Maria", merged[domain.KeyName].Value)
}
