package sequencer

import (
	"github.com/aretw0/intake/internal/pattern"
	"github.com/aretw0/intake/pkg/domain"
)

// Report describes a sanitizer pass over collected state.
type Report struct {
	Fixed      bool     `json:"fixed"`
	FixedSlots []string `json:"fixed_slots,omitempty"`
	RewindTo   string   `json:"rewind_to,omitempty"`
}

// Sanitize re-validates every non-empty slot against its current type
// rules and nullifies values that no longer pass (contamination left
// behind by earlier extraction bugs). It is best-effort and non-fatal:
// it never raises, it only nullifies and defers re-collection. The
// rewind target is the step of the first invalid slot in step order.
func Sanitize(state *domain.BookingState, f *domain.Flow, lib *pattern.Library) (*domain.BookingState, Report) {
	if state == nil || len(state.Slots) == 0 {
		return state, Report{}
	}
	stop := lib.Stopwords()

	var report Report
	next := state.Clone()

	covered := make(map[string]bool, len(f.Steps))
	for _, step := range f.Steps {
		covered[step.FieldKey] = true
		slot, ok := next.Slots[step.FieldKey]
		if !ok || slot.Value == "" {
			continue
		}
		if pattern.ValidForKey(step.FieldKey, slot.Value, stop) {
			continue
		}
		nullify(next, step.FieldKey)
		report.Fixed = true
		report.FixedSlots = append(report.FixedSlots, step.FieldKey)
		if report.RewindTo == "" {
			report.RewindTo = step.ID
		}
	}

	// Slots outside the script are still repaired; there is no step to
	// rewind to for them.
	for key, slot := range next.Slots {
		if covered[key] || slot.Value == "" {
			continue
		}
		if pattern.ValidForKey(key, slot.Value, stop) {
			continue
		}
		nullify(next, key)
		report.Fixed = true
		report.FixedSlots = append(report.FixedSlots, key)
	}

	if !report.Fixed {
		return state, report
	}
	return next, report
}

// nullify removes a contaminated value from every mirrored location.
func nullify(state *domain.BookingState, key string) {
	delete(state.Slots, key)
	delete(state.ConfirmedSlots, key)
}
