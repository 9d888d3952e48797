package domain

import "strings"

// Rule is a step-level validation descriptor. It is evaluated
// independently of merge confidence: a value can be merge-accepted yet
// still fail step validation, in which case the sequencer reprompts
// without discarding slot history.
type Rule struct {
	// Pattern is an anchored regular expression the value must match.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty" mapstructure:"pattern"`

	// MinLength is the minimum rune count.
	MinLength int `json:"min_length,omitempty" yaml:"min_length,omitempty" mapstructure:"min_length"`

	// MinDigits is the minimum number of digit runes.
	MinDigits int `json:"min_digits,omitempty" yaml:"min_digits,omitempty" mapstructure:"min_digits"`

	// OneOf restricts the value to an enumerated set (case-insensitive).
	OneOf []string `json:"one_of,omitempty" yaml:"one_of,omitempty" mapstructure:"one_of"`
}

// Condition gates a step on previously collected state. Steps whose
// condition is unsatisfied are skipped: not asked and not required.
type Condition struct {
	// Field is the slot key the condition reads.
	Field string `json:"field" yaml:"field" mapstructure:"field"`

	// Equals passes when the slot value equals this string (case-insensitive).
	Equals string `json:"equals,omitempty" yaml:"equals,omitempty" mapstructure:"equals"`

	// In passes when the slot value is a member of this set.
	In []string `json:"in,omitempty" yaml:"in,omitempty" mapstructure:"in"`
}

// FlowStep is one entry of the compiled interview script.
type FlowStep struct {
	ID        string     `json:"id" yaml:"id"`
	FieldKey  string     `json:"field_key" yaml:"field_key"`
	Prompt    string     `json:"prompt" yaml:"prompt"`
	Reprompt  string     `json:"reprompt,omitempty" yaml:"reprompt,omitempty"`
	Escalated string     `json:"escalated,omitempty" yaml:"escalated,omitempty"`
	Confirm   string     `json:"confirm,omitempty" yaml:"confirm,omitempty"`
	Required  bool       `json:"required" yaml:"required"`
	Validation *Rule     `json:"validation,omitempty" yaml:"validation,omitempty"`
	Options   []string   `json:"options,omitempty" yaml:"options,omitempty"`
	Order     int        `json:"order" yaml:"order"`
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`

	// Expects declares which slot types extraction may produce while this
	// step is active. Gating is a capability table, not a string compare
	// on step identity. Empty means only the step's own field key.
	Expects []string `json:"expects,omitempty" yaml:"expects,omitempty"`
}

// Permits reports whether extraction for the given slot key is allowed
// while this step is active.
func (s *FlowStep) Permits(key string) bool {
	if s == nil {
		return true
	}
	if len(s.Expects) == 0 {
		return key == s.FieldKey
	}
	for _, k := range s.Expects {
		if k == key {
			return true
		}
	}
	return false
}

// Flow is the compiled interview script for one booking session.
type Flow struct {
	ID                   string     `json:"id"`
	Steps                []FlowStep `json:"steps"`
	ConfirmationTemplate string     `json:"confirmation_template,omitempty"`
	CompletionTemplate   string     `json:"completion_template,omitempty"`
}

// Step returns the step with the given id, or nil.
func (f *Flow) Step(id string) *FlowStep {
	for i := range f.Steps {
		if f.Steps[i].ID == id {
			return &f.Steps[i]
		}
	}
	return nil
}

// Satisfied evaluates a step condition against collected state.
// A nil condition is always satisfied.
func (c *Condition) Satisfied(slots SlotSet) bool {
	if c == nil {
		return true
	}
	got := slots[c.Field].Value
	if c.Equals != "" {
		return strings.EqualFold(got, c.Equals)
	}
	if len(c.In) > 0 {
		for _, want := range c.In {
			if strings.EqualFold(got, want) {
				return true
			}
		}
		return false
	}
	// Bare field reference: satisfied when the slot holds any value.
	return got != ""
}
