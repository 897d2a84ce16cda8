package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Candidate is a parsed but untrusted record: the map form of whatever the
// model produced, before any coercion into a typed record.
type Candidate map[string]any

var errNotObject = errors.New("top-level value is not an object")

// parseCandidate accepts exactly one JSON object and nothing after it.
// Numbers stay json.Number so the validator sees what the model wrote.
func parseCandidate(text string) (Candidate, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after object")
	}
	return Candidate(obj), nil
}

// typeName describes a decoded JSON value for warnings.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
