package datamodels

import (
	"bytes"
	"encoding/json"
)

// Presence distinguishes "server did not say" from "server said empty".
type Presence uint8

const (
	Unknown Presence = iota
	Absent
	Present
)

func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// Field is a tri-state value: a missing JSON key decodes as Unknown,
// an explicit null as Absent and anything else as Present.
type Field[T any] struct {
	presence Presence
	value    T
}

func Known[T any](v T) Field[T] { return Field[T]{presence: Present, value: v} }

func AbsentField[T any]() Field[T] { return Field[T]{presence: Absent} }

func (f Field[T]) Presence() Presence { return f.presence }

func (f Field[T]) IsUnknown() bool { return f.presence == Unknown }

func (f Field[T]) IsAbsent() bool { return f.presence == Absent }

func (f Field[T]) IsPresent() bool { return f.presence == Present }

// Get returns the value and whether it is present.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.presence == Present
}

// Or returns the value when present, otherwise def.
func (f Field[T]) Or(def T) T {
	if f.presence == Present {
		return f.value
	}
	return def
}

// ApplyTo writes a known value into dst: Present sets it, Absent zeroes it
// and Unknown leaves it alone. It reports whether dst was assigned.
func (f Field[T]) ApplyTo(dst *T) bool {
	switch f.presence {
	case Present:
		*dst = f.value
		return true
	case Absent:
		var zero T
		*dst = zero
		return true
	default:
		return false
	}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.value = zero
		f.presence = Absent
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.value = v
	f.presence = Present
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.presence != Present {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
