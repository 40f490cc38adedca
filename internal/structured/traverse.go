package structured

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lgpdshield/lgpd-shield/internal/redact"
)

// LeafPolicy decides what happens when redacting one leaf of a larger
// structure fails. Raw text is never emitted either way.
type LeafPolicy int

const (
	// FailClosed aborts the whole traversal on the first failing leaf.
	FailClosed LeafPolicy = iota
	// MarkerOnError replaces the failing leaf with redact.FailureMarker
	// and records a warning, letting the rest of the structure through.
	MarkerOnError
)

// Sequences at least this long are fanned out across workers.
const minParallelLeaves = 16

// Walker applies the redaction engine across a Value tree. The engine is
// read-only shared state, so sibling subtrees can be processed
// concurrently and one walker may serve concurrent calls.
type Walker struct {
	engine  *redact.Engine
	policy  LeafPolicy
	workers int
	logger  *zap.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithLeafPolicy selects the failing-leaf policy.
func WithLeafPolicy(p LeafPolicy) Option {
	return func(w *Walker) { w.policy = p }
}

// WithWorkers bounds the number of concurrent leaf redactions per
// sequence. Values below 1 mean sequential.
func WithWorkers(n int) Option {
	return func(w *Walker) { w.workers = n }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Walker) { w.logger = l }
}

// NewWalker creates a walker over an engine.
func NewWalker(engine *redact.Engine, opts ...Option) *Walker {
	w := &Walker{
		engine:  engine,
		policy:  FailClosed,
		workers: 4,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Summary aggregates what a traversal did, without any matched text.
type Summary struct {
	Leaves   int            `json:"leaves"`
	Redacted int            `json:"redacted"`
	Findings map[string]int `json:"findings,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (s *Summary) merge(other *Summary) {
	s.Leaves += other.Leaves
	s.Redacted += other.Redacted
	for entityType, count := range other.Findings {
		if s.Findings == nil {
			s.Findings = make(map[string]int)
		}
		s.Findings[entityType] += count
	}
	s.Warnings = append(s.Warnings, other.Warnings...)
}

// Redact returns a same-shape copy of v with every string leaf redacted.
// Container kinds, sequence lengths, mapping keys, and scalar leaves are
// preserved exactly.
func (w *Walker) Redact(v Value) (Value, *Summary, error) {
	return w.walk(v, "$")
}

func (w *Walker) walk(v Value, path string) (Value, *Summary, error) {
	switch v.kind {
	case KindString:
		return w.redactLeaf(v.str, path)

	case KindSequence:
		if w.workers > 1 && len(v.seq) >= minParallelLeaves {
			return w.walkSequenceParallel(v.seq, path)
		}
		summary := &Summary{}
		items := make([]Value, len(v.seq))
		for i, elem := range v.seq {
			out, sub, err := w.walk(elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, nil, err
			}
			items[i] = out
			summary.merge(sub)
		}
		return Sequence(items...), summary, nil

	case KindMapping:
		summary := &Summary{}
		out := make(map[string]Value, len(v.mapping))
		for key, elem := range v.mapping {
			// Keys are structural metadata, never redacted.
			redacted, sub, err := w.walk(elem, path+"."+key)
			if err != nil {
				return Value{}, nil, err
			}
			out[key] = redacted
			summary.merge(sub)
		}
		return Mapping(out), summary, nil

	case KindScalar:
		return v, &Summary{}, nil

	default:
		return Value{}, nil, fmt.Errorf("%w: %s at %s", ErrStructuralMismatch, v.kind, path)
	}
}

// walkSequenceParallel fans sibling elements out across a bounded worker
// pool and reassembles results positionally.
func (w *Walker) walkSequenceParallel(seq []Value, path string) (Value, *Summary, error) {
	type result struct {
		value   Value
		summary *Summary
		err     error
	}

	items := make([]result, len(seq))
	indices := make(chan int)

	var wg sync.WaitGroup
	for worker := 0; worker < w.workers; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				out, sub, err := w.walk(seq[i], fmt.Sprintf("%s[%d]", path, i))
				items[i] = result{value: out, summary: sub, err: err}
			}
		}()
	}
	for i := range seq {
		indices <- i
	}
	close(indices)
	wg.Wait()

	summary := &Summary{}
	out := make([]Value, len(seq))
	for i, r := range items {
		if r.err != nil {
			return Value{}, nil, r.err
		}
		out[i] = r.value
		summary.merge(r.summary)
	}
	return Sequence(out...), summary, nil
}

func (w *Walker) redactLeaf(text, path string) (Value, *Summary, error) {
	summary := &Summary{Leaves: 1}

	res, err := w.engine.RedactText(text)
	if err != nil {
		if w.policy == FailClosed {
			return Value{}, nil, fmt.Errorf("redacting leaf %s: %w", path, err)
		}
		w.logger.Warn("Leaf redaction failed, substituting marker",
			zap.String("path", path),
			zap.Error(err),
		)
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %v", path, err))
		return String(redact.FailureMarker), summary, nil
	}

	if len(res.Findings) > 0 {
		summary.Redacted = 1
		summary.Findings = make(map[string]int, len(res.Findings))
		for _, f := range res.Findings {
			summary.Findings[f.EntityType] += f.Count
		}
	}
	return String(res.Redacted), summary, nil
}
