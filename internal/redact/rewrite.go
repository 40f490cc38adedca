package redact

import (
	"fmt"
	"sort"
	"strings"
)

// Rewrite applies a resolved plan to text. Matches are spliced
// rightmost-first, so earlier splices never invalidate the offsets of the
// matches still pending to their left. Every byte outside a planned span
// is carried through unchanged; a nil or empty plan returns the input as
// is.
func Rewrite(text string, plan Plan, ops Operators) (string, []Finding, error) {
	if len(plan) == 0 {
		return text, nil, nil
	}

	perType := make(map[string]*Finding)
	out := text
	prevStart := len(text) + 1
	for _, m := range plan {
		if m.Start < 0 || m.End > len(text) || m.Start >= m.End {
			return "", nil, fmt.Errorf("plan span [%d,%d) out of bounds for %d-byte input", m.Start, m.End, len(text))
		}
		if m.Start >= prevStart {
			return "", nil, fmt.Errorf("plan is not ordered by descending start")
		}
		prevStart = m.Start

		op, err := ops.For(m.EntityType)
		if err != nil {
			return "", nil, err
		}

		out = out[:m.Start] + op.Apply(out[m.Start:m.End]) + out[m.End:]

		f, ok := perType[m.EntityType]
		if !ok {
			f = &Finding{EntityType: m.EntityType}
			perType[m.EntityType] = f
		}
		f.Count++
		f.Spans = append(f.Spans, [2]int{m.Start, m.End})
	}

	findings := make([]Finding, 0, len(perType))
	for _, f := range perType {
		// Spans were collected rightmost-first; report them in text order.
		sort.Slice(f.Spans, func(i, j int) bool { return f.Spans[i][0] < f.Spans[j][0] })
		findings = append(findings, *f)
	}
	sort.Slice(findings, func(i, j int) bool {
		return strings.Compare(findings[i].EntityType, findings[j].EntityType) < 0
	})
	return out, findings, nil
}
