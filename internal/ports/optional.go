package ports

import (
	"bytes"
	"encoding/json"
)

// Optional is a JSON field that records whether it was present. A present
// null leaves Value nil with Set true.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Some builds a present, non-null value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null builds a present null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}
