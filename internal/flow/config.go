package flow

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/intake/pkg/domain"
)

// Config is the YAML shape of a flow definition. Steps is a free-form
// map of overrides keyed by field id; unknown keys are ignored.
type Config struct {
	FlowID       string            `yaml:"flow_id"`
	Confirmation string            `yaml:"confirmation"`
	Completion   string            `yaml:"completion"`
	Fields       []FieldDefinition `yaml:"fields"`
	Steps        map[string]any    `yaml:"steps"`
}

// Resolve compiles a configuration into a flow. A zero config yields
// the built-in default flow.
func Resolve(cfg Config) *domain.Flow {
	f := &domain.Flow{
		ID:                   cfg.FlowID,
		Steps:                Compile(cfg.Fields, cfg.Steps),
		ConfirmationTemplate: cfg.Confirmation,
		CompletionTemplate:   cfg.Completion,
	}
	if f.ID == "" {
		f.ID = "default-booking"
	}
	def := Default()
	if f.ConfirmationTemplate == "" {
		f.ConfirmationTemplate = def.ConfirmationTemplate
	}
	if f.CompletionTemplate == "" {
		f.CompletionTemplate = def.CompletionTemplate
	}
	return f
}

// Load reads and resolves a YAML flow configuration.
func Load(r io.Reader) (*domain.Flow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read flow config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse flow config: %w", err)
	}
	return Resolve(cfg), nil
}

// LoadFile reads and resolves a flow configuration from disk.
func LoadFile(path string) (*domain.Flow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flow config: %w", err)
	}
	defer f.Close()
	return Load(f)
}
