package redact

import (
	"fmt"
	"strings"
)

// Operator produces the replacement for one matched span.
type Operator interface {
	Apply(matched string) string
}

// Mask replaces part of the matched text with a filler character.
// It always preserves the rune length of its input.
//
// CharsToMask selects the masked run, counted in runes:
//   - positive n masks the first n runes (the last n when FromEnd is set);
//   - 0 is a no-op;
//   - n >= the text length masks everything;
//   - negative n masks all but the last |n| runes, keeping a trailing
//     window readable (used for emails and URLs). If the text is shorter
//     than the window, nothing is masked.
type Mask struct {
	CharsToMask int
	MaskingChar rune
	FromEnd     bool
}

// Apply masks the configured run of matched.
func (m Mask) Apply(matched string) string {
	if m.CharsToMask == 0 {
		return matched
	}

	runes := []rune(matched)
	n := len(runes)

	var lo, hi int
	switch {
	case m.CharsToMask < 0:
		keep := -m.CharsToMask
		if keep >= n {
			return matched
		}
		lo, hi = 0, n-keep
	case m.CharsToMask >= n:
		lo, hi = 0, n
	case m.FromEnd:
		lo, hi = n-m.CharsToMask, n
	default:
		lo, hi = 0, m.CharsToMask
	}

	for i := lo; i < hi; i++ {
		runes[i] = m.MaskingChar
	}
	return string(runes)
}

// Replace substitutes the matched text with a fixed literal, usually of a
// different length.
type Replace struct {
	NewValue string
}

// Apply returns the replacement literal regardless of the matched text.
func (r Replace) Apply(string) string {
	return r.NewValue
}

// Operators maps entity types to their redaction operator, with an
// optional default fallback. Like the registry it is constructed once and
// read-only afterwards.
type Operators struct {
	byType map[string]Operator
	def    Operator
}

// NewOperators builds an operator set. The def operator may be nil, in
// which case lookups for unconfigured entity types fail.
func NewOperators(byType map[string]Operator, def Operator) Operators {
	m := make(map[string]Operator, len(byType))
	for k, v := range byType {
		m[k] = v
	}
	return Operators{byType: m, def: def}
}

// For returns the operator for an entity type: the exact key if present,
// else the default. With neither configured it returns ErrMissingOperator
// so the caller fails closed instead of leaving the span unredacted.
func (o Operators) For(entityType string) (Operator, error) {
	if op, ok := o.byType[entityType]; ok {
		return op, nil
	}
	if o.def != nil {
		return o.def, nil
	}
	return nil, fmt.Errorf("%w: entity type %s has no operator and no default", ErrMissingOperator, entityType)
}

// OperatorConfig is the serializable form of an operator, as it appears in
// configuration files. Type is "mask" or "replace".
type OperatorConfig struct {
	Type        string `yaml:"type" mapstructure:"type" json:"type"`
	CharsToMask int    `yaml:"chars_to_mask" mapstructure:"chars_to_mask" json:"chars_to_mask,omitempty"`
	MaskingChar string `yaml:"masking_char" mapstructure:"masking_char" json:"masking_char,omitempty"`
	FromEnd     bool   `yaml:"from_end" mapstructure:"from_end" json:"from_end,omitempty"`
	NewValue    string `yaml:"new_value" mapstructure:"new_value" json:"new_value,omitempty"`
}

// Compile turns a config entry into its operator, rejecting unknown kinds.
func (c OperatorConfig) Compile() (Operator, error) {
	switch strings.ToLower(c.Type) {
	case "mask":
		ch := '*'
		switch runes := []rune(c.MaskingChar); len(runes) {
		case 0:
		case 1:
			ch = runes[0]
		default:
			return nil, fmt.Errorf("%w: masking_char %q is not a single character", ErrConfiguration, c.MaskingChar)
		}
		return Mask{CharsToMask: c.CharsToMask, MaskingChar: ch, FromEnd: c.FromEnd}, nil
	case "replace":
		if c.NewValue == "" {
			return nil, fmt.Errorf("%w: replace operator requires new_value", ErrConfiguration)
		}
		return Replace{NewValue: c.NewValue}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operator type %q", ErrConfiguration, c.Type)
	}
}
