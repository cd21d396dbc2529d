package backend

import (
	"bytes"
	"encoding/json"

	"github.com/gozephyr/storekit/errors"
)

// Encode serializes a value at the backend edge. Durable backends store the
// resulting bytes; a value json cannot represent fails with ErrSerialization
// without touching the stored entry.
func Encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrorTypeValidation, "Encode", nil, errors.ErrSerialization)
	}
	return data, nil
}

// Decode deserializes bytes written by Encode. Numbers come back as
// json.Number (so integers survive the round trip), objects as
// map[string]any, and arrays as []any.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, errors.NewStoreError(errors.ErrorTypeValidation, "Decode", nil, errors.ErrDeserialization)
	}
	return value, nil
}
