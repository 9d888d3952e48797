package domain

// DecisionAction classifies the outcome of merging one candidate.
type DecisionAction string

const (
	DecisionAdded        DecisionAction = "ADDED"
	DecisionAccepted     DecisionAction = "ACCEPTED"
	DecisionRejected     DecisionAction = "REJECTED"
	DecisionConflict     DecisionAction = "CONFLICT"
	DecisionKeptExisting DecisionAction = "KEPT_EXISTING"
)

// Decision is the trace record produced for every merge. Merging never
// fails; every outcome is representable here.
type Decision struct {
	Key    string         `json:"key"`
	Action DecisionAction `json:"action"`
	Reason string         `json:"reason"`
	Slot   Slot           `json:"slot"`
}
