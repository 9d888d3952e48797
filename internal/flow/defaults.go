package flow

import "github.com/aretw0/intake/pkg/domain"

type wording struct {
	Prompt    string
	Reprompt  string
	Escalated string
}

// defaultWording supplies built-in prompts per field type so a flow
// with missing step overrides still reads naturally.
func defaultWording(fieldType, id string) wording {
	switch fieldType {
	case "name":
		return wording{
			Prompt:    "Can I get your name, please?",
			Reprompt:  "Sorry, I didn't catch that. What's your name?",
			Escalated: "I'm having trouble with your name. Could you spell it for me?",
		}
	case "phone":
		return wording{
			Prompt:    "What's the best phone number to reach you?",
			Reprompt:  "Sorry, could you repeat that phone number?",
			Escalated: "Please say your phone number one digit at a time.",
		}
	case "address":
		return wording{
			Prompt:    "What's the service address?",
			Reprompt:  "I didn't get the address. Could you say it again?",
			Escalated: "Could you give me the street number and street name?",
		}
	case "time":
		return wording{
			Prompt:    "When would you like us to come out?",
			Reprompt:  "Sorry, what day and time works for you?",
			Escalated: "For example, you can say tomorrow morning or Friday at 2 pm.",
		}
	case "email":
		return wording{
			Prompt:    "What's a good email address for the confirmation?",
			Reprompt:  "Sorry, could you repeat that email address?",
			Escalated: "Please spell out your email address.",
		}
	case "reason":
		return wording{
			Prompt:    "What seems to be the problem?",
			Reprompt:  "Could you tell me a bit more about the issue?",
			Escalated: "In a few words, what do you need help with?",
		}
	case "choice":
		return wording{
			Prompt:    "Which option fits best?",
			Reprompt:  "Sorry, which of those is it?",
			Escalated: "Please pick one of the options I listed.",
		}
	default:
		return wording{
			Prompt:   "Could you tell me the " + id + "?",
			Reprompt: "Sorry, what was the " + id + "?",
		}
	}
}

func defaultValidation(fieldType string) *domain.Rule {
	switch fieldType {
	case "name":
		return &domain.Rule{MinLength: 2}
	case "phone":
		return &domain.Rule{MinDigits: 10}
	case "address":
		return &domain.Rule{MinLength: 5}
	case "time":
		return &domain.Rule{MinLength: 3}
	case "email":
		return &domain.Rule{Pattern: `^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`}
	case "reason":
		return &domain.Rule{MinLength: 3}
	default:
		return nil
	}
}

// defaultFields is the hard-coded fallback flow:
// name, phone, address, conditional property detail steps, time.
func defaultFields() []FieldDefinition {
	return []FieldDefinition{
		{ID: domain.KeyName, Type: "name", Required: true, Order: 10},
		{ID: domain.KeyCallReason, Type: "reason", Required: true, Order: 15},
		{ID: domain.KeyPhone, Type: "phone", Required: true, Order: 20},
		{ID: domain.KeyAddress, Type: "address", Required: true, Order: 30},
		{
			ID: "propertyType", Type: "choice", Order: 40,
			Options:    []string{"house", "apartment", "commercial"},
			Validation: &domain.Rule{OneOf: []string{"house", "apartment", "commercial"}},
		},
		{
			ID: "unitNumber", Type: "text", Order: 50,
			Condition: &domain.Condition{Field: "propertyType", Equals: "apartment"},
		},
		{
			ID: "gateCode", Type: "text", Order: 60,
			Condition: &domain.Condition{Field: "propertyType", In: []string{"apartment", "commercial"}},
		},
		{ID: domain.KeyTime, Type: "time", Required: true, Order: 70},
	}
}

// Default compiles the built-in flow with stock templates.
func Default() *domain.Flow {
	return &domain.Flow{
		ID:    "default-booking",
		Steps: Compile(nil, nil),
		ConfirmationTemplate: "Let me confirm: {{name}} at {{address}}, " +
			"phone {{phone}}, coming out {{time}}. Did I get that right?",
		CompletionTemplate: "You're all set, {{name}}. We'll see you {{time}}.",
	}
}
