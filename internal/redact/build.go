package redact

import (
	"fmt"

	"go.uber.org/zap"
)

// RuleConfig is the serializable form of one custom detection pattern, as
// it appears in configuration files.
type RuleConfig struct {
	EntityType string  `yaml:"entity_type" mapstructure:"entity_type" json:"entity_type"`
	Regex      string  `yaml:"regex" mapstructure:"regex" json:"regex"`
	Score      float64 `yaml:"score" mapstructure:"score" json:"score"`

	// Required escalates a registration failure for this rule from a
	// warning to a fatal configuration error.
	Required bool `yaml:"required" mapstructure:"required" json:"required,omitempty"`
}

// BuildEngine assembles an engine from the built-in table plus custom
// rules and operator overrides. A custom rule that fails to register is
// skipped with a warning so one bad pattern cannot take down the rest,
// unless it is marked required, in which case the build fails.
func BuildEngine(rules []RuleConfig, operators map[string]OperatorConfig, includeDefaults bool, logger *zap.Logger) (*Engine, []string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := NewRegistry()
	if includeDefaults {
		registry = DefaultRegistry()
	}

	var warnings []string
	for _, rule := range rules {
		if err := registry.Register(rule.EntityType, rule.Regex, rule.Score); err != nil {
			if rule.Required {
				return nil, nil, fmt.Errorf("required rule %s: %w", rule.EntityType, err)
			}
			warning := fmt.Sprintf("skipping rule %s: %v", rule.EntityType, err)
			warnings = append(warnings, warning)
			logger.Warn("Skipping invalid detection rule",
				zap.String("entity_type", rule.EntityType),
				zap.Error(err),
			)
		}
	}

	configs := map[string]OperatorConfig{}
	if includeDefaults {
		configs = DefaultOperatorConfigs()
	}
	for entityType, cfg := range operators {
		configs[entityType] = cfg
	}

	ops, err := CompileOperators(configs)
	if err != nil {
		return nil, nil, err
	}

	engine, err := NewEngine(registry, ops, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, warnings, nil
}
