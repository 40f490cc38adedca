package structured

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeJSON parses a JSON document into a Value. Numbers are kept as
// json.Number scalars so re-encoding does not reformat them.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decoding JSON: %w", err)
	}
	return FromInterface(raw)
}

// EncodeJSON serializes a Value back to JSON.
func EncodeJSON(v Value) ([]byte, error) {
	return json.Marshal(ToInterface(v))
}
