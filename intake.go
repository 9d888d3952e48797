package intake

import (
	"context"
	"log/slog"

	"github.com/aretw0/intake/internal/flow"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/internal/merge"
	"github.com/aretw0/intake/internal/pattern"
	"github.com/aretw0/intake/internal/sequencer"
	"github.com/aretw0/intake/pkg/domain"
)

// Engine is the high-level entry point for the intake library.
// It wraps the internal sequencer and provides a simplified API for
// consumers: extract, merge, resolve the flow, run a turn, sanitize.
type Engine struct {
	flow      *domain.Flow
	lib       *pattern.Library
	sequencer *sequencer.Sequencer
	hooks     domain.TraceHooks
	masker    Masker
	logger    *slog.Logger
}

// Masker is a display-only transform for slot values, applied at
// presentation boundaries (CLI output, state inspection endpoints).
// Merge, validation, and flow logic never consult it.
type Masker func(key, value string) string

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithFlow sets the compiled interview script.
func WithFlow(f *domain.Flow) Option {
	return func(e *Engine) {
		e.flow = f
	}
}

// WithFlowFile loads the interview script from a YAML configuration.
// A file that cannot be read or parsed degrades to the built-in
// default flow.
func WithFlowFile(path string) Option {
	return func(e *Engine) {
		f, err := flow.LoadFile(path)
		if err != nil {
			e.logger.Warn("flow config unavailable, using default flow", "path", path, "err", err)
			return
		}
		e.flow = f
	}
}

// WithStopwords replaces the built-in exclusion set.
func WithStopwords(s *pattern.Stopwords) Option {
	return func(e *Engine) {
		e.lib = pattern.NewLibrary(s)
	}
}

// WithTraceHooks registers observability hooks. All operations succeed
// identically whether or not hooks are attached.
func WithTraceHooks(hooks domain.TraceHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMasker sets the display transform applied by Mask and
// DisplayState.
func WithMasker(m Masker) Option {
	return func(e *Engine) {
		e.masker = m
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New initializes an intake Engine. Without options it runs the
// built-in default flow with the built-in pattern library.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.flow == nil {
		e.flow = flow.Default()
	}
	if e.lib == nil {
		e.lib = pattern.NewLibrary(nil)
	}
	e.sequencer = sequencer.New(e.lib,
		sequencer.WithLogger(e.logger),
		sequencer.WithTraceHooks(e.hooks),
	)
	return e
}

// ExtractAll parses one utterance into slot candidates under the given
// turn context. It returns only slots with a new candidate this turn.
func (e *Engine) ExtractAll(utterance string, ctx domain.TurnContext) map[string]domain.Candidate {
	return e.sequencer.Extractor().All(utterance, ctx)
}

// MergeSlots reconciles a candidate fragment against existing state,
// returning the merged set and the decision trace. The input set is
// never mutated.
func (e *Engine) MergeSlots(existing domain.SlotSet, incoming map[string]domain.Candidate) (domain.SlotSet, []domain.Decision) {
	return merge.Slots(existing, incoming)
}

// ResolveFlow returns the compiled interview script.
func (e *Engine) ResolveFlow() *domain.Flow {
	return e.flow
}

// RunStep processes one caller turn: sanitize, extract (gated by the
// current step), merge, validate, and decide whether to advance,
// reprompt, or defer. The input state is never mutated.
func (e *Engine) RunStep(ctx context.Context, state *domain.BookingState, input string) sequencer.Result {
	return e.sequencer.RunStep(ctx, e.flow, state, input)
}

// Mask applies the display transform to one slot value. Without a
// configured masker the value passes through unchanged.
func (e *Engine) Mask(key, value string) string {
	if e.masker == nil || value == "" {
		return value
	}
	return e.masker(key, value)
}

// DisplayState returns a copy of state with every recorded value,
// including history and rejected candidates, passed through the
// masker. The input state is not modified.
func (e *Engine) DisplayState(state *domain.BookingState) *domain.BookingState {
	if e.masker == nil || state == nil {
		return state
	}
	out := state.Clone()
	for key, slot := range out.Slots {
		slot.Value = e.Mask(key, slot.Value)
		slot.ConflictingValue = e.Mask(key, slot.ConflictingValue)
		for i := range slot.History {
			slot.History[i].Value = e.Mask(key, slot.History[i].Value)
		}
		for i := range slot.Rejected {
			slot.Rejected[i].Value = e.Mask(key, slot.Rejected[i].Value)
		}
		out.Slots[key] = slot
	}
	return out
}

// Sanitize scans collected state for values that fail current type
// validation and computes a safe rewind target.
func (e *Engine) Sanitize(state *domain.BookingState) (*domain.BookingState, sequencer.Report) {
	return sequencer.Sanitize(state, e.flow, e.lib)
}
