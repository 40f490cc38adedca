package redact

import "regexp"

// PatternSpec is a single registered detection pattern. Multiple specs may
// share an entity type; they act as a logical OR.
type PatternSpec struct {
	EntityType string
	Expr       string
	Score      float64

	// Pattern is the compiled form of Expr, set by the registry.
	Pattern *regexp.Regexp

	// order is the registration index, used as the final resolver tie-break.
	order int
}

// Match is a candidate sensitive span found in one input string.
// Offsets are byte offsets into the input; Go's regexp engine guarantees
// they fall on UTF-8 boundaries. Start is inclusive, End exclusive.
type Match struct {
	EntityType string
	Start      int
	End        int
	Text       string
	Score      float64

	order int
}

// Plan is the resolved, non-overlapping set of matches scheduled for one
// rewrite pass, sorted by descending Start so that length-changing
// replacements never shift the offsets of matches still to be applied.
type Plan []Match

// Finding summarizes the applied matches for one entity type.
// It carries span metadata only, never the matched text.
type Finding struct {
	EntityType string   `json:"entity_type"`
	Count      int      `json:"count"`
	Spans      [][2]int `json:"spans,omitempty"`
}

// Result is the outcome of redacting one string.
type Result struct {
	Redacted string    `json:"redacted"`
	Findings []Finding `json:"findings"`
	Warnings []string  `json:"warnings,omitempty"`
}
