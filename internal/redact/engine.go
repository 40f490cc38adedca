package redact

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
)

// FailureMarker is what a string becomes when its redaction fails and the
// caller asked for marker mode instead of an aborted call. The raw text is
// never emitted on error.
const FailureMarker = "[REDACTION FALHOU]"

// Engine combines a pattern registry and an operator set into the
// scan/resolve/rewrite pipeline. It holds no mutable state, so one engine
// may serve any number of concurrent calls.
type Engine struct {
	registry *Registry
	ops      Operators
	logger   *zap.Logger
}

// NewEngine creates an engine over a validated registry and operator set.
func NewEngine(registry *Registry, ops Operators, logger *zap.Logger) (*Engine, error) {
	if registry == nil || len(registry.Patterns()) == 0 {
		return nil, fmt.Errorf("%w: registry has no patterns", ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Fail at construction, not mid-call, when an entity type can match
	// but could never be redacted.
	for _, entityType := range registry.EntityTypes() {
		if _, err := ops.For(entityType); err != nil {
			return nil, err
		}
	}

	logger.Info("Redaction engine initialized",
		zap.Int("patterns", len(registry.Patterns())),
		zap.Int("entity_types", len(registry.EntityTypes())),
		zap.String("fingerprint", registry.Fingerprint()[:12]),
	)

	return &Engine{registry: registry, ops: ops, logger: logger}, nil
}

// Registry returns the engine's pattern registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// RedactText scans text with every registered pattern, resolves the
// overlapping candidates, and rewrites the surviving spans. Input must be
// valid UTF-8; the engine does not guess encodings.
func (e *Engine) RedactText(text string) (Result, error) {
	if !utf8.ValidString(text) {
		return Result{}, ErrMalformedInput
	}
	if text == "" {
		return Result{Redacted: ""}, nil
	}

	plan := Resolve(e.registry.ScanAll(text))
	redacted, findings, err := Rewrite(text, plan, e.ops)
	if err != nil {
		return Result{}, err
	}

	if len(findings) > 0 {
		fields := make([]zap.Field, 0, len(findings))
		for _, f := range findings {
			fields = append(fields, zap.Int(f.EntityType, f.Count))
		}
		e.logger.Debug("Sensitive spans redacted", fields...)
	}

	return Result{Redacted: redacted, Findings: findings}, nil
}
