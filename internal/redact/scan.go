package redact

// Scan runs one pattern over the input and returns its candidate matches in
// ascending start order. Each call is independent and side-effect free.
// Capture groups never narrow the span: a match always covers the entire
// matched region, so pattern authors can use groups freely for alternation
// without changing what gets redacted.
func Scan(spec PatternSpec, text string) []Match {
	locs := spec.Pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{
			EntityType: spec.EntityType,
			Start:      loc[0],
			End:        loc[1],
			Text:       text[loc[0]:loc[1]],
			Score:      spec.Score,
			order:      spec.order,
		})
	}
	return matches
}

// ScanAll runs every registered pattern over the input and returns the
// union of candidate matches, unresolved.
func (r *Registry) ScanAll(text string) []Match {
	var all []Match
	for _, spec := range r.specs {
		all = append(all, Scan(spec, text)...)
	}
	return all
}
