package jsonx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Member is one key/value pair of a dynamically constructed Object.
type Member struct {
	Key   string
	Value Value
}

// Object is an ordered JSON object, used when a Value is built up
// dynamically (e.g. assembling a multi-binding reply) rather than decoded
// from a schema struct. Key order on the wire matches insertion order; only
// stability (not any particular meaning) is guaranteed for objects built
// this way, which a slice naturally provides.
type Object struct {
	members []Member
}

// NewObject returns an empty ordered Object.
func NewObject() *Object { return &Object{} }

// Set appends or replaces a key, preserving first-insertion position on
// replace (matching how a schema struct's field order is fixed once).
func (o *Object) Set(key string, v Value) {
	for i, m := range o.members {
		if m.Key == key {
			o.members[i].Value = v
			return
		}
	}
	o.members = append(o.members, Member{Key: key, Value: v})
}

// Get returns the value for key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	for _, m := range o.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Keys returns the object's keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.members))
	for i, m := range o.members {
		keys[i] = m.Key
	}
	return keys
}

// MarshalJSON writes the object's members in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		raw, err := Serialize(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AsObject parses v's members into an ordered Object, preserving the wire
// order the bytes arrived in (encoding/json's Decoder.Token walk visits
// object keys in source order, unlike unmarshaling into a Go map).
func (v Value) AsObject() (*Object, error) {
	if v.kind != KindObject {
		return nil, fmt.Errorf("jsonx: value is %v, not object", v.kind)
	}
	dec := json.NewDecoder(bytes.NewReader(v.raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("jsonx: expected object start")
	}

	obj := NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("jsonx: non-string object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		trimmed := bytes.TrimSpace(raw)
		obj.Set(key, Value{kind: kindOf(trimmed), raw: trimmed})
	}
	return obj, nil
}

// ExtractSlice returns the raw bytes at path (a sequence of object keys)
// within data, without unmarshaling any sibling subtree. This backs lazy
// param decoding: the router never pays to decode params for a method
// nobody ends up handling.
func ExtractSlice(data []byte, path ...string) (json.RawMessage, error) {
	cur := json.RawMessage(data)
	for _, key := range path {
		v, err := Parse(cur)
		if err != nil {
			return nil, err
		}
		obj, err := v.AsObject()
		if err != nil {
			return nil, err
		}
		next, ok := obj.Get(key)
		if !ok {
			return nil, fmt.Errorf("jsonx: path key %q not found", key)
		}
		cur = next.raw
	}
	return cur, nil
}
