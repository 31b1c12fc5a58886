package model

import "encoding/json"

// Optional carries a value together with whether it was supplied at all.
// When decoded from JSON, Set is true whenever the key was present in the
// object, including an explicit null (which leaves Value at its zero
// value and Null true). That lets a patch tell "clear this field" from
// "leave it".
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Null = false
	if string(b) == "null" {
		var zero T
		o.Value = zero
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
