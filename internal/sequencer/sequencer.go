// Package sequencer drives the booking interview: per turn it gates
// extraction by the current step, merges candidates, repairs corrupted
// state, validates the step's field, and decides whether to advance,
// reprompt, or defer.
package sequencer

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/intake/internal/extract"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/internal/merge"
	"github.com/aretw0/intake/internal/pattern"
	"github.com/aretw0/intake/pkg/domain"
)

// ResponseKind classifies what the agent should say next.
type ResponseKind string

const (
	ResponsePrompt       ResponseKind = "prompt"
	ResponseReprompt     ResponseKind = "reprompt"
	ResponseConfirmation ResponseKind = "confirmation"
	ResponseCompletion   ResponseKind = "completion"
)

// escalateAfter is the number of failed validations of one step before
// the escalated reprompt wording is used.
const escalateAfter = 2

const metaAwaitingConfirmation = "awaiting_confirmation"

var affirmativeRe = regexp.MustCompile(`(?i)^\s*(?:yes|yeah|yep|yup|correct|right|that'?s right|sounds? good|sure|ok(?:ay)?|perfect)\b`)

// Response is the agent-facing outcome of one turn.
type Response struct {
	Kind   ResponseKind `json:"kind"`
	Text   string       `json:"text"`
	StepID string       `json:"step_id,omitempty"`
}

// Result bundles everything one turn produced.
type Result struct {
	State      *domain.BookingState        `json:"state"`
	Response   Response                    `json:"response"`
	Candidates map[string]domain.Candidate `json:"candidates,omitempty"`
	Decisions  []domain.Decision           `json:"decisions,omitempty"`
	Repair     Report                      `json:"repair"`
	Done       bool                        `json:"done"`
}

// Sequencer executes booking turns. It holds no per-session state.
type Sequencer struct {
	extractor *extract.Extractor
	lib       *pattern.Library
	logger    *slog.Logger
	hooks     domain.TraceHooks
}

// Option configures the sequencer.
type Option func(*Sequencer)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTraceHooks registers fire-and-forget observability callbacks.
func WithTraceHooks(hooks domain.TraceHooks) Option {
	return func(s *Sequencer) {
		s.hooks = hooks
	}
}

// New creates a sequencer over a pattern library.
func New(lib *pattern.Library, opts ...Option) *Sequencer {
	if lib == nil {
		lib = pattern.NewLibrary(nil)
	}
	s := &Sequencer{
		extractor: extract.New(lib),
		lib:       lib,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extractor exposes the gated extractor for turn-level entry points.
func (s *Sequencer) Extractor() *extract.Extractor {
	return s.extractor
}

// RunStep processes one caller utterance against the flow. The input
// state is never mutated; the result carries the successor state. An
// empty input renders the current prompt without extracting.
func (s *Sequencer) RunStep(ctx context.Context, f *domain.Flow, state *domain.BookingState, input string) Result {
	if state == nil {
		state = domain.NewBookingState("")
	}
	next := state.Clone()

	// Contamination pre-check. If repair occurred, the step pointer is
	// forced back to the earliest invalid step regardless of nominal
	// flow order.
	repaired, report := Sanitize(next, f, s.lib)
	next = repaired
	if report.Fixed {
		s.logger.Debug("sanitizer repaired state",
			"session_id", next.SessionID,
			"slots", report.FixedSlots,
			"rewind_to", report.RewindTo)
		for _, key := range report.FixedSlots {
			s.emitRepair(ctx, next, key, report.RewindTo)
		}
		if report.RewindTo != "" {
			next.CurrentStepID = report.RewindTo
			next.Done = false
		}
	}

	if strings.TrimSpace(input) != "" {
		next.Turn++
	}

	step := s.currentStep(ctx, f, next)
	if step == nil {
		return s.finish(ctx, f, next, input, report)
	}
	next.CurrentStepID = step.ID

	if strings.TrimSpace(input) == "" {
		return Result{
			State:    next,
			Response: Response{Kind: ResponsePrompt, Text: step.Prompt, StepID: step.ID},
			Repair:   report,
		}
	}

	candidates := s.extractor.All(input, domain.TurnContext{
		Turn:        next.Turn,
		Existing:    next.Slots,
		Step:        step,
		Confirmed:   next.ConfirmedSlots,
		CallerPhone: callerPhone(next),
	})
	for key, c := range candidates {
		s.emitCandidate(ctx, next, key, c.Tier)
	}

	merged, decisions := merge.Slots(next.Slots, candidates)
	next.Slots = merged
	for _, d := range decisions {
		s.emitDecision(ctx, next, d)
		if d.Slot.Confirmed {
			next.ConfirmedSlots[d.Key] = true
		}
	}

	// Step validation is independent of merge confidence: a value can
	// be merge-accepted yet still fail the step's rule, in which case
	// we reprompt without discarding slot history.
	if slot := next.Slots[step.FieldKey]; slot.Value != "" && step.Validation.Accepts(slot.Value) {
		delete(next.RepromptCounts, step.ID)
		s.emitStep(ctx, next, step.ID, "accepted")
		return s.advance(ctx, f, next, report)
	}

	next.RepromptCounts[step.ID]++
	text := step.Reprompt
	if next.RepromptCounts[step.ID] >= escalateAfter && step.Escalated != "" {
		text = step.Escalated
	}
	s.emitStep(ctx, next, step.ID, "rejected")
	return Result{
		State:    next,
		Response: Response{Kind: ResponseReprompt, Text: text, StepID: step.ID},
		Repair:   report, Candidates: candidates, Decisions: decisions,
	}
}

// advance moves to the next pending step, or into confirmation when
// the script is exhausted.
func (s *Sequencer) advance(ctx context.Context, f *domain.Flow, state *domain.BookingState, report Report) Result {
	nextStep := s.nextPending(ctx, f, state)
	if nextStep == nil {
		return s.finish(ctx, f, state, "", report)
	}
	state.CurrentStepID = nextStep.ID
	return Result{
		State:    state,
		Response: Response{Kind: ResponsePrompt, Text: nextStep.Prompt, StepID: nextStep.ID},
		Repair:   report,
	}
}

// finish handles the confirmation hand-off once no steps remain: first
// a read-back of everything collected, then completion on an
// affirmative answer.
func (s *Sequencer) finish(ctx context.Context, f *domain.Flow, state *domain.BookingState, input string, report Report) Result {
	state.CurrentStepID = ""

	awaiting, _ := state.Meta[metaAwaitingConfirmation].(bool)
	if awaiting && affirmativeRe.MatchString(input) {
		delete(state.Meta, metaAwaitingConfirmation)
		state.Done = true
		for key, slot := range state.Slots {
			if slot.Value != "" {
				state.ConfirmedSlots[key] = true
			}
		}
		s.emitStep(ctx, state, "", "complete")
		return Result{
			State:    state,
			Response: Response{Kind: ResponseCompletion, Text: Render(f.CompletionTemplate, state.Slots)},
			Repair:   report,
			Done:     true,
		}
	}

	state.Meta[metaAwaitingConfirmation] = true
	return Result{
		State:    state,
		Response: Response{Kind: ResponseConfirmation, Text: Render(f.ConfirmationTemplate, state.Slots)},
		Repair:   report,
	}
}

// currentStep resolves the active step, falling back to the first
// pending step when the pointer is empty or stale.
func (s *Sequencer) currentStep(ctx context.Context, f *domain.Flow, state *domain.BookingState) *domain.FlowStep {
	if state.CurrentStepID != "" {
		if step := f.Step(state.CurrentStepID); step != nil {
			if step.Condition.Satisfied(state.Slots) {
				return step
			}
		}
	}
	return s.nextPending(ctx, f, state)
}

// nextPending walks the script in order, skipping satisfied steps and
// deferring steps whose condition is unsatisfied.
func (s *Sequencer) nextPending(ctx context.Context, f *domain.Flow, state *domain.BookingState) *domain.FlowStep {
	for i := range f.Steps {
		step := &f.Steps[i]
		if !step.Condition.Satisfied(state.Slots) {
			s.emitStep(ctx, state, step.ID, "deferred")
			continue
		}
		if slot := state.Slots[step.FieldKey]; slot.Value != "" && step.Validation.Accepts(slot.Value) {
			continue
		}
		return step
	}
	return nil
}

func callerPhone(state *domain.BookingState) string {
	v, _ := state.Meta["caller_phone"].(string)
	return v
}

var placeholderRe = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// Render substitutes {{key}} placeholders with slot values. A
// placeholder naming a slot the flow never filled renders as empty
// rather than leaking template syntax to the caller.
func Render(template string, slots domain.SlotSet) string {
	out := template
	for key, slot := range slots {
		out = strings.ReplaceAll(out, "{{"+key+"}}", slot.Value)
	}
	return placeholderRe.ReplaceAllString(out, "")
}

func (s *Sequencer) emitCandidate(ctx context.Context, state *domain.BookingState, key string, tier domain.PatternTier) {
	if s.hooks.OnCandidate == nil {
		return
	}
	s.hooks.OnCandidate(ctx, &domain.CandidateEvent{
		EventBase: base(domain.EventCandidate, state),
		Key:       key,
		Tier:      tier,
	})
}

func (s *Sequencer) emitDecision(ctx context.Context, state *domain.BookingState, d domain.Decision) {
	if s.hooks.OnDecision == nil {
		return
	}
	s.hooks.OnDecision(ctx, &domain.DecisionEvent{
		EventBase: base(domain.EventDecision, state),
		Key:       d.Key,
		Action:    d.Action,
		Reason:    d.Reason,
	})
}

func (s *Sequencer) emitRepair(ctx context.Context, state *domain.BookingState, key, rewindTo string) {
	if s.hooks.OnRepair == nil {
		return
	}
	s.hooks.OnRepair(ctx, &domain.RepairEvent{
		EventBase: base(domain.EventRepair, state),
		Key:       key,
		RewindTo:  rewindTo,
	})
}

func (s *Sequencer) emitStep(ctx context.Context, state *domain.BookingState, stepID, outcome string) {
	if s.hooks.OnStep == nil {
		return
	}
	s.hooks.OnStep(ctx, &domain.StepEvent{
		EventBase: base(domain.EventStep, state),
		StepID:    stepID,
		Outcome:   outcome,
	})
}

func base(t domain.EventType, state *domain.BookingState) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		SessionID: state.SessionID,
		Turn:      state.Turn,
	}
}
