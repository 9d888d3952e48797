package domain

// BookingState is the snapshot of everything known for one call.
// It is owned exclusively by the conversation session: one writer per
// turn, never shared between sessions. Operations on it return a new
// state; the original is never mutated in place.
type BookingState struct {
	// SessionID partitions state per company+call.
	SessionID string `json:"session_id"`

	Slots SlotSet `json:"slots"`

	// CurrentStepID is the identifier of the active interview step.
	CurrentStepID string `json:"current_step_id"`

	// ConfirmedSlots is the set of keys the caller has confirmed.
	ConfirmedSlots map[string]bool `json:"confirmed_slots"`

	// Turn counts processed utterances, monotonically.
	Turn int `json:"turn"`

	// RepromptCounts tracks consecutive validation failures per step,
	// used to escalate reprompt wording.
	RepromptCounts map[string]int `json:"reprompt_counts,omitempty"`

	// Done indicates every remaining step has been satisfied or skipped.
	Done bool `json:"done"`

	Meta map[string]any `json:"meta,omitempty"`
}

// NewBookingState creates a clean state for a session.
func NewBookingState(sessionID string) *BookingState {
	return &BookingState{
		SessionID:      sessionID,
		Slots:          make(SlotSet),
		ConfirmedSlots: make(map[string]bool),
		RepromptCounts: make(map[string]int),
		Meta:           make(map[string]any),
	}
}

// Clone returns a deep copy safe for mutation by the current turn.
func (s *BookingState) Clone() *BookingState {
	if s == nil {
		return nil
	}
	next := *s
	next.Slots = s.Slots.Clone()
	next.ConfirmedSlots = make(map[string]bool, len(s.ConfirmedSlots))
	for k, v := range s.ConfirmedSlots {
		next.ConfirmedSlots[k] = v
	}
	next.RepromptCounts = make(map[string]int, len(s.RepromptCounts))
	for k, v := range s.RepromptCounts {
		next.RepromptCounts[k] = v
	}
	next.Meta = make(map[string]any, len(s.Meta))
	for k, v := range s.Meta {
		next.Meta[k] = v
	}
	return &next
}

// Value returns the current value for a slot key, or "" when unset.
func (s *BookingState) Value(key string) string {
	if s == nil {
		return ""
	}
	return s.Slots[key].Value
}

// TurnContext carries the read-only inputs extraction needs for one turn.
type TurnContext struct {
	// Turn is the monotonic utterance counter for the session.
	Turn int

	// CallerPhone is the caller-ID number, when the transport provides one.
	CallerPhone string

	// Existing exposes already-collected slots, read-only.
	Existing SlotSet

	// Step is the active interview step; nil outside a flow.
	Step *FlowStep

	// Confirmed is the set of caller-confirmed slot keys.
	Confirmed map[string]bool
}
