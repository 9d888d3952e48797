// Package flow compiles a declarative field/step configuration into
// the ordered, conditionally-gated interview script consumed by the
// sequencer. Compilation runs once per booking session.
package flow

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/intake/pkg/domain"
)

// FieldDefinition is one entry of the field registry.
type FieldDefinition struct {
	ID         string            `yaml:"id" mapstructure:"id"`
	Type       string            `yaml:"type" mapstructure:"type"`
	Required   bool              `yaml:"required" mapstructure:"required"`
	Order      int               `yaml:"order" mapstructure:"order"`
	Options    []string          `yaml:"options,omitempty" mapstructure:"options"`
	Validation *domain.Rule      `yaml:"validation,omitempty" mapstructure:"validation"`
	Condition  *domain.Condition `yaml:"condition,omitempty" mapstructure:"condition"`
	Expects    []string          `yaml:"expects,omitempty" mapstructure:"expects"`
}

// StepOverride customizes the wording of one step, keyed by field id.
type StepOverride struct {
	Prompt    string `mapstructure:"prompt"`
	Reprompt  string `mapstructure:"reprompt"`
	Escalated string `mapstructure:"escalated"`
	Confirm   string `mapstructure:"confirm"`
}

// Compile merges the field registry with step overrides into an
// ordered script. Empty field definitions produce the built-in default
// flow, so the sequencer always has a valid script. Missing prompts
// fall back to per-type defaults rather than failing.
func Compile(fields []FieldDefinition, overrides map[string]any) []domain.FlowStep {
	if len(fields) == 0 {
		fields = defaultFields()
	}

	steps := make([]domain.FlowStep, 0, len(fields))
	for _, f := range fields {
		step := domain.FlowStep{
			ID:         f.ID,
			FieldKey:   f.ID,
			Required:   f.Required,
			Order:      f.Order,
			Options:    f.Options,
			Validation: f.Validation,
			Condition:  f.Condition,
			Expects:    f.Expects,
		}

		def := defaultWording(f.Type, f.ID)
		step.Prompt = def.Prompt
		step.Reprompt = def.Reprompt
		step.Escalated = def.Escalated
		if step.Validation == nil {
			step.Validation = defaultValidation(f.Type)
		}

		if raw, ok := overrides[f.ID]; ok {
			var o StepOverride
			// Malformed overrides degrade to defaults; they never fail
			// compilation.
			if err := mapstructure.Decode(raw, &o); err == nil {
				if o.Prompt != "" {
					step.Prompt = o.Prompt
				}
				if o.Reprompt != "" {
					step.Reprompt = o.Reprompt
				}
				if o.Escalated != "" {
					step.Escalated = o.Escalated
				}
				if o.Confirm != "" {
					step.Confirm = o.Confirm
				}
			}
		}
		if step.Reprompt == "" {
			step.Reprompt = step.Prompt
		}
		if step.Escalated == "" {
			step.Escalated = step.Reprompt
		}

		steps = append(steps, step)
	}

	// Explicit order first, then required before optional. Stable so
	// registry order breaks ties.
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].Order != steps[j].Order {
			return steps[i].Order < steps[j].Order
		}
		return steps[i].Required && !steps[j].Required
	})

	return steps
}

// Validate checks a compiled script for structural problems. Used by
// the CLI; the runtime itself degrades instead of failing.
func Validate(f *domain.Flow) error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %q has no steps", f.ID)
	}
	seen := make(map[string]bool, len(f.Steps))
	for _, s := range f.Steps {
		if s.ID == "" {
			return fmt.Errorf("flow %q: step with empty id", f.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("flow %q: duplicate step id %q", f.ID, s.ID)
		}
		seen[s.ID] = true
		if s.FieldKey == "" {
			return fmt.Errorf("step %q: empty field key", s.ID)
		}
		if s.Prompt == "" {
			return fmt.Errorf("step %q: empty prompt", s.ID)
		}
		if s.Condition != nil && s.Condition.Field == "" {
			return fmt.Errorf("step %q: condition without field", s.ID)
		}
	}
	return nil
}
