package domain

import (
	"context"
	"time"
)

// EventType defines the category of a trace event.
type EventType string

const (
	EventCandidate EventType = "candidate"
	EventDecision  EventType = "decision"
	EventRepair    EventType = "repair"
	EventStep      EventType = "step"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Turn      int       `json:"turn,omitempty"`
}

// CandidateEvent is emitted when an extractor produces a candidate.
type CandidateEvent struct {
	EventBase
	Key  string      `json:"key"`
	Tier PatternTier `json:"tier"`
}

// DecisionEvent is emitted for each merge decision.
type DecisionEvent struct {
	EventBase
	Key    string         `json:"key"`
	Action DecisionAction `json:"action"`
	Reason string         `json:"reason,omitempty"`
}

// RepairEvent is emitted when the sanitizer nullifies a contaminated slot.
type RepairEvent struct {
	EventBase
	Key      string `json:"key"`
	Value    string `json:"value"`
	RewindTo string `json:"rewind_to,omitempty"`
}

// StepEvent is emitted when the sequencer resolves a turn.
type StepEvent struct {
	EventBase
	StepID  string `json:"step_id"`
	Outcome string `json:"outcome"` // accepted, rejected, deferred, complete
}

// TraceHooks defines fire-and-forget observability callbacks. Every
// core operation succeeds identically whether or not hooks are set;
// a hook must never be awaited before a turn's result is returned.
type TraceHooks struct {
	OnCandidate func(context.Context, *CandidateEvent)
	OnDecision  func(context.Context, *DecisionEvent)
	OnRepair    func(context.Context, *RepairEvent)
	OnStep      func(context.Context, *StepEvent)
}
