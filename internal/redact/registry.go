package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Registry holds the detection patterns. It is built once at startup,
// validated eagerly, and read-only afterwards, so it is safe to share
// across concurrent redaction calls without locking.
type Registry struct {
	specs []PatternSpec
	seen  map[string]struct{}
}

// NewRegistry creates an empty pattern registry.
func NewRegistry() *Registry {
	return &Registry{
		seen: make(map[string]struct{}),
	}
}

// Register adds a detection pattern. The expression must compile and must
// not be able to match the empty string. Registering the exact same
// (entityType, expr) pair twice is a no-op.
func (r *Registry) Register(entityType, expr string, score float64) error {
	if entityType == "" {
		return fmt.Errorf("%w: empty entity type", ErrConfiguration)
	}
	if score < 0 || score > 1 {
		return fmt.Errorf("%w: score %.2f for %s outside [0,1]", ErrConfiguration, score, entityType)
	}

	key := entityType + "\x00" + expr
	if _, dup := r.seen[key]; dup {
		return nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("%w: pattern for %s does not compile: %v", ErrConfiguration, entityType, err)
	}
	if re.MatchString("") {
		return fmt.Errorf("%w: pattern for %s matches the empty string", ErrConfiguration, entityType)
	}

	r.specs = append(r.specs, PatternSpec{
		EntityType: entityType,
		Expr:       expr,
		Score:      score,
		Pattern:    re,
		order:      len(r.specs),
	})
	r.seen[key] = struct{}{}
	return nil
}

// Patterns returns the registered specs in registration order.
// Callers must treat the returned slice as read-only.
func (r *Registry) Patterns() []PatternSpec {
	return r.specs
}

// EntityTypes returns the distinct entity types in registration order.
func (r *Registry) EntityTypes() []string {
	var types []string
	known := make(map[string]struct{}, len(r.specs))
	for _, spec := range r.specs {
		if _, ok := known[spec.EntityType]; ok {
			continue
		}
		known[spec.EntityType] = struct{}{}
		types = append(types, spec.EntityType)
	}
	return types
}

// Fingerprint returns a stable digest of the registry contents, used to
// scope cached redaction results to one pattern-set revision.
func (r *Registry) Fingerprint() string {
	h := sha256.New()
	for _, spec := range r.specs {
		fmt.Fprintf(h, "%s\x00%s\x00%.4f\x00", spec.EntityType, spec.Expr, spec.Score)
	}
	return hex.EncodeToString(h.Sum(nil))
}
