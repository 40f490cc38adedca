package structured

import "fmt"

// Tabular input is a mapping from column name to its cells. Only textual
// cells go through the engine; numeric and boolean columns pass through
// with their types intact.

// TableValue converts column data into its Value form: a mapping of
// sequences.
func TableValue(columns map[string][]interface{}) (Value, error) {
	m := make(map[string]Value, len(columns))
	for name, cells := range columns {
		items := make([]Value, len(cells))
		for i, cell := range cells {
			v, err := FromInterface(cell)
			if err != nil {
				return Value{}, fmt.Errorf("column %s row %d: %w", name, i, err)
			}
			items[i] = v
		}
		m[name] = Sequence(items...)
	}
	return Mapping(m), nil
}

// RedactTable redacts the textual cells of a table and returns it in the
// same column-to-cells form.
func (w *Walker) RedactTable(columns map[string][]interface{}) (map[string][]interface{}, *Summary, error) {
	value, err := TableValue(columns)
	if err != nil {
		return nil, nil, err
	}

	redacted, summary, err := w.Redact(value)
	if err != nil {
		return nil, nil, err
	}

	out := make(map[string][]interface{}, len(columns))
	mapping, _ := redacted.Map()
	for name := range columns {
		seq, _ := mapping[name].Items()
		cells := make([]interface{}, len(seq))
		for i, cell := range seq {
			cells[i] = ToInterface(cell)
		}
		out[name] = cells
	}
	return out, summary, nil
}
