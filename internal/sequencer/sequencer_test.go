package sequencer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/intake/internal/flow"
	"github.com/aretw0/intake/internal/sequencer"
	"github.com/aretw0/intake/pkg/domain"
)

// miniFlow is a three-step script small enough to walk end to end in
// assertions.
func miniFlow() *domain.Flow {
	return &domain.Flow{
		ID: "mini",
		Steps: flow.Compile([]flow.FieldDefinition{
			{ID: domain.KeyName, Type: "name", Required: true, Order: 1},
			{ID: domain.KeyPhone, Type: "phone", Required: true, Order: 2},
			{ID: domain.KeyAddress, Type: "address", Required: true, Order: 3},
		}, nil),
		ConfirmationTemplate: "Confirming {{name}}, {{phone}}, {{address}}. Right?",
		CompletionTemplate:   "Booked for {{name}}.",
	}
}

func TestRunStep_EmptyInputPromptsCurrentStep(t *testing.T) {
	s := sequencer.New(nil)
	state := domain.NewBookingState("s1")

	res := s.RunStep(context.Background(), miniFlow(), state, "")

	assert.Equal(t, sequencer.ResponsePrompt, res.Response.Kind)
	assert.Equal(t, domain.KeyName, res.Response.StepID)
	assert.Equal(t, 0, res.State.Turn)
}

func TestRunStep_AcceptAdvances(t *testing.T) {
	s := sequencer.New(nil)
	state := domain.NewBookingState("s1")

	res := s.RunStep(context.Background(), miniFlow(), state, "my name is Maria Garcia")

	assert.Equal(t, sequencer.ResponsePrompt, res.Response.Kind)
	assert.Equal(t, domain.KeyPhone, res.Response.StepID)
	assert.Equal(t, "Maria Garcia", res.State.Slots[domain.KeyName].Value)
	assert.Equal(t, 1, res.State.Turn)
	assert.False(t, res.Done)
}

func TestRunStep_InputStateNeverMutated(t *testing.T) {
	s := sequencer.New(nil)
	state := domain.NewBookingState("s1")

	_ = s.RunStep(context.Background(), miniFlow(), state, "my name is Maria Garcia")

	assert.Empty(t, state.Slots)
	assert.Equal(t, 0, state.Turn)
}

func TestRunStep_RejectReprompts(t *testing.T) {
	s := sequencer.New(nil)
	f := miniFlow()
	state := domain.NewBookingState("s1")

	res := s.RunStep(context.Background(), f, state, "hmm")
	assert.Equal(t, sequencer.ResponseReprompt, res.Response.Kind)
	assert.Equal(t, domain.KeyName, res.Response.StepID)

	// A second failure escalates the wording.
	res = s.RunStep(context.Background(), f, res.State, "hmm")
	assert.Equal(t, sequencer.ResponseReprompt, res.Response.Kind)
	step := f.Step(domain.KeyName)
	assert.Equal(t, step.Escalated, res.Response.Text)
}

func TestRunStep_AcceptClearsRepromptCount(t *testing.T) {
	s := sequencer.New(nil)
	f := miniFlow()
	state := domain.NewBookingState("s1")

	res := s.RunStep(context.Background(), f, state, "hmm")
	require.Equal(t, 1, res.State.RepromptCounts[domain.KeyName])

	res = s.RunStep(context.Background(), f, res.State, "my name is Maria")
	assert.NotContains(t, res.State.RepromptCounts, domain.KeyName)
}

func TestRunStep_FullInterview(t *testing.T) {
	s := sequencer.New(nil)
	f := miniFlow()
	ctx := context.Background()
	state := domain.NewBookingState("s1")

	res := s.RunStep(ctx, f, state, "hi, my name is Maria Garcia")
	require.Equal(t, domain.KeyPhone, res.Response.StepID)

	res = s.RunStep(ctx, f, res.State, "my number is 555 123 4567")
	require.Equal(t, domain.KeyAddress, res.Response.StepID)

	res = s.RunStep(ctx, f, res.State, "I live at 12155 Metro Parkway")
	require.Equal(t, sequencer.ResponseConfirmation, res.Response.Kind)
	assert.Contains(t, res.Response.Text, "Maria Garcia")
	assert.Contains(t, res.Response.Text, "5551234567")
	assert.Contains(t, res.Response.Text, "12155 Metro Parkway")
	assert.False(t, res.Done)

	res = s.RunStep(ctx, f, res.State, "yes, that's right")
	assert.Equal(t, sequencer.ResponseCompletion, res.Response.Kind)
	assert.True(t, res.Done)
	assert.True(t, res.State.Done)
	assert.True(t, res.State.ConfirmedSlots[domain.KeyName])
	assert.Contains(t, res.Response.Text, "Booked for Maria Garcia.")
}

func TestRunStep_NegativeConfirmationRereadsSummary(t *testing.T) {
	s := sequencer.New(nil)
	f := miniFlow()
	ctx := context.Background()

	state := domain.NewBookingState("s1")
	state.Slots = domain.SlotSet{
		domain.KeyName:    {Value: "Maria Garcia", Confidence: 0.9},
		domain.KeyPhone:   {Value: "5551234567", Confidence: 0.9},
		domain.KeyAddress: {Value: "12155 Metro Parkway", Confidence: 0.9},
	}

	res := s.RunStep(ctx, f, state, "")
	require.Equal(t, sequencer.ResponseConfirmation, res.Response.Kind)

	// A non-affirmative answer repeats the read-back instead of closing.
	res = s.RunStep(ctx, f, res.State, "hold on a second")
	assert.Equal(t, sequencer.ResponseConfirmation, res.Response.Kind)
	assert.False(t, res.Done)
}

func TestRunStep_LockedNameSurvivesChatter(t *testing.T) {
	s := sequencer.New(nil)
	f := miniFlow()
	ctx := context.Background()
	state := domain.NewBookingState("s1")

	res := s.RunStep(ctx, f, state, "my name is Maria Garcia")
	require.Equal(t, domain.LockPrimary, res.State.Slots[domain.KeyName].LockTier)

	// Chatter at the phone step that happens to match a contextual name
	// pattern does not touch the locked slot.
	res = s.RunStep(ctx, f, res.State, "it's super hot in here")
	assert.Equal(t, "Maria Garcia", res.State.Slots[domain.KeyName].Value)
	assert.Equal(t, sequencer.ResponseReprompt, res.Response.Kind)
}

func TestRunStep_CorrectionAtLaterStep(t *testing.T) {
	s := sequencer.New(nil)
	f := &domain.Flow{
		ID: "wide",
		Steps: []domain.FlowStep{
			{ID: domain.KeyName, FieldKey: domain.KeyName, Prompt: "Name?", Reprompt: "Name?",
				Validation: &domain.Rule{MinLength: 2}},
			{ID: domain.KeyPhone, FieldKey: domain.KeyPhone, Prompt: "Phone?", Reprompt: "Phone?",
				Validation: &domain.Rule{MinDigits: 10},
				Expects:    []string{domain.KeyPhone, domain.KeyName}},
		},
		ConfirmationTemplate: "{{name}} {{phone}}?",
		CompletionTemplate:   "done",
	}
	ctx := context.Background()
	state := domain.NewBookingState("s1")

	res := s.RunStep(ctx, f, state, "my name is John Smith")
	require.Equal(t, domain.KeyPhone, res.Response.StepID)

	// The phone step also listens for name corrections.
	res = s.RunStep(ctx, f, res.State, "actually, it's Jon Smythe")
	assert.Equal(t, "Jon Smythe", res.State.Slots[domain.KeyName].Value)
	assert.True(t, res.State.Slots[domain.KeyName].CorrectedByCaller)
}

func TestRunStep_ConditionalStepsDeferred(t *testing.T) {
	s := sequencer.New(nil)
	f := flow.Default()
	ctx := context.Background()

	state := domain.NewBookingState("s1")
	state.Slots = domain.SlotSet{
		domain.KeyName:       {Value: "Maria Garcia", Confidence: 0.9},
		domain.KeyCallReason: {Value: "leaking water heater", Confidence: 0.9},
		domain.KeyPhone:      {Value: "5551234567", Confidence: 0.9},
		domain.KeyAddress:    {Value: "12155 Metro Parkway", Confidence: 0.9},
	}
	state.CurrentStepID = "propertyType"

	// "house" satisfies the property step; unit and gate conditions stay
	// unsatisfied, so the script jumps straight to the time step.
	res := s.RunStep(ctx, f, state, "house")
	assert.Equal(t, domain.KeyTime, res.Response.StepID)
}

func TestRunStep_ConditionalStepAskedWhenSatisfied(t *testing.T) {
	s := sequencer.New(nil)
	f := flow.Default()
	ctx := context.Background()

	state := domain.NewBookingState("s1")
	state.Slots = domain.SlotSet{
		domain.KeyName:       {Value: "Maria Garcia", Confidence: 0.9},
		domain.KeyCallReason: {Value: "leaking water heater", Confidence: 0.9},
		domain.KeyPhone:      {Value: "5551234567", Confidence: 0.9},
		domain.KeyAddress:    {Value: "12155 Metro Parkway", Confidence: 0.9},
	}
	state.CurrentStepID = "propertyType"

	res := s.RunStep(ctx, f, state, "apartment")
	assert.Equal(t, "unitNumber", res.Response.StepID)
}

func TestRunStep_DeferredEventsCarryTurnContext(t *testing.T) {
	type turnKey struct{}
	var got []any
	hooks := domain.TraceHooks{
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			if e.Outcome == "deferred" {
				got = append(got, ctx.Value(turnKey{}))
			}
		},
	}
	s := sequencer.New(nil, sequencer.WithTraceHooks(hooks))
	f := flow.Default()

	state := domain.NewBookingState("s1")
	state.Slots = domain.SlotSet{
		domain.KeyName:       {Value: "Maria Garcia", Confidence: 0.9},
		domain.KeyCallReason: {Value: "leaking water heater", Confidence: 0.9},
		domain.KeyPhone:      {Value: "5551234567", Confidence: 0.9},
		domain.KeyAddress:    {Value: "12155 Metro Parkway", Confidence: 0.9},
		"propertyType":       {Value: "house", Confidence: 0.9},
	}
	// Stale pointer to a step whose condition no longer holds.
	state.CurrentStepID = "unitNumber"

	ctx := context.WithValue(context.Background(), turnKey{}, "turn-7")
	_ = s.RunStep(ctx, f, state, "")

	require.NotEmpty(t, got)
	for _, v := range got {
		assert.Equal(t, "turn-7", v)
	}
}

func TestRunStep_CallerPhoneMetaSeedsSlot(t *testing.T) {
	s := sequencer.New(nil)
	f := miniFlow()
	ctx := context.Background()

	state := domain.NewBookingState("s1")
	state.Meta["caller_phone"] = "+1 555 123 4567"

	res := s.RunStep(ctx, f, state, "my name is Maria Garcia")

	assert.Equal(t, "5551234567", res.State.Slots[domain.KeyPhone].Value)
	assert.Equal(t, domain.SourceCallerMetadata, res.State.Slots[domain.KeyPhone].Source)
}

func TestRunStep_NilStateStartsFresh(t *testing.T) {
	s := sequencer.New(nil)

	res := s.RunStep(context.Background(), miniFlow(), nil, "")
	assert.Equal(t, sequencer.ResponsePrompt, res.Response.Kind)
	require.NotNil(t, res.State)
}

func TestRunStep_EmitsTraceEvents(t *testing.T) {
	var candidates, decisions, steps int
	hooks := domain.TraceHooks{
		OnCandidate: func(ctx context.Context, e *domain.CandidateEvent) { candidates++ },
		OnDecision:  func(ctx context.Context, e *domain.DecisionEvent) { decisions++ },
		OnStep:      func(ctx context.Context, e *domain.StepEvent) { steps++ },
	}
	s := sequencer.New(nil, sequencer.WithTraceHooks(hooks))

	_ = s.RunStep(context.Background(), miniFlow(), domain.NewBookingState("s1"), "my name is Maria Garcia")

	assert.Greater(t, candidates, 0)
	assert.Greater(t, decisions, 0)
	assert.Greater(t, steps, 0)
}

func TestRender(t *testing.T) {
	out := sequencer.Render("Hi {{name}}, see you {{time}}.", domain.SlotSet{
		domain.KeyName: {Value: "Maria"},
		domain.KeyTime: {Value: "tomorrow"},
	})
	assert.Equal(t, "Hi Maria, see you tomorrow.", out)

	// Unresolved placeholders never reach the caller.
	out = sequencer.Render("Thanks {{name}}, booked for {{missing}}.", domain.SlotSet{
		domain.KeyName: {Value: "Maria"},
	})
	assert.Equal(t, "Thanks Maria, booked for .", out)
}
