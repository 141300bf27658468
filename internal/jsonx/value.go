// Package jsonx implements a streaming JSON value model and schema-directed
// codec: a tagged union Value type, round-trip-safe number handling up to
// the 53-bit MAX_SAFE_INTEGER boundary, lazy subtree extraction, and a
// struct-variant decoder that discriminates sum types by required-key
// presence.
package jsonx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind enumerates the JSON value shapes.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a tagged-union JSON value. It retains the original bytes so that
// re-serializing an untouched Value is a byte-identical round trip, and so
// that numbers are never forced through float64 (preserving exact integers
// up to the 53-bit MAX_SAFE_INTEGER boundary).
type Value struct {
	kind Kind
	raw  json.RawMessage
}

// Parse decodes data into a Value, validating it is well-formed JSON.
func Parse(data []byte) (Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Value{}, &ParseError{Err: fmt.Errorf("empty input")}
	}
	if !json.Valid(trimmed) {
		return Value{}, &ParseError{Err: fmt.Errorf("invalid JSON")}
	}
	return Value{kind: kindOf(trimmed), raw: json.RawMessage(trimmed)}, nil
}

func kindOf(trimmed []byte) Kind {
	switch trimmed[0] {
	case '{':
		return KindObject
	case '[':
		return KindArray
	case '"':
		return KindString
	case 't', 'f':
		return KindBool
	case 'n':
		return KindNull
	default:
		return KindNumber
	}
}

// Kind reports the value's JSON type.
func (v Value) Kind() Kind { return v.kind }

// Raw returns the underlying bytes, unmodified since Parse. Serialize(v)
// always equals this slice byte-for-byte.
func (v Value) Raw() json.RawMessage { return v.raw }

// Serialize returns the wire bytes for v.
func Serialize(v Value) ([]byte, error) {
	if v.raw == nil {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// Bool extracts a boolean value.
func (v Value) Bool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("jsonx: value is %v, not bool", v.kind)
	}
	var b bool
	if err := json.Unmarshal(v.raw, &b); err != nil {
		return false, err
	}
	return b, nil
}

// Number extracts the value as a json.Number, preserving arbitrary integer
// precision rather than rounding through float64.
func (v Value) Number() (json.Number, error) {
	if v.kind != KindNumber {
		return "", fmt.Errorf("jsonx: value is %v, not number", v.kind)
	}
	dec := json.NewDecoder(bytes.NewReader(v.raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", err
	}
	return n, nil
}

// String extracts a string value.
func (v Value) String() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("jsonx: value is %v, not string", v.kind)
	}
	var s string
	if err := json.Unmarshal(v.raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// Array extracts the elements of a JSON array as Values, each holding its
// own copy of that element's raw bytes (encoding/json copies into every
// json.RawMessage it fills).
func (v Value) Array() ([]Value, error) {
	if v.kind != KindArray {
		return nil, fmt.Errorf("jsonx: value is %v, not array", v.kind)
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(v.raw, &raws); err != nil {
		return nil, err
	}
	out := make([]Value, len(raws))
	for i, r := range raws {
		out[i] = Value{kind: kindOf(bytes.TrimSpace(r)), raw: r}
	}
	return out, nil
}

// Decode unmarshals v's raw bytes into a T, using encoding/json struct tags
// as the schema. Unknown object keys are tolerated by default.
func Decode[T any](v Value) (T, error) {
	var out T
	if err := json.Unmarshal(v.raw, &out); err != nil {
		var zero T
		return zero, &DecodeError{Msg: err.Error()}
	}
	return out, nil
}

// DecodeBytes is Decode for raw bytes that haven't been Parsed yet.
func DecodeBytes[T any](data []byte) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, &DecodeError{Msg: err.Error()}
	}
	return out, nil
}

// Encode marshals v into wire bytes using the default encoding/json field
// order (struct declaration order).
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
