package rpc

import (
	"encoding/json"
	"fmt"
)

// ID is a JSON-RPC request identifier. Per the JSON-RPC 2.0 spec an id is
// absent, a number, a string, or (on the wire only, for an invalid request)
// null. We model the two request-carrying shapes (number, string) plus
// "absent", so the zero value ID{} is the distinguished "no id" value; a
// wire null decodes to absent.
type ID struct {
	isSet    bool
	isString bool
	num      int64
	str      string
}

// NewNumberID returns an integer-valued ID.
func NewNumberID(n int64) ID {
	return ID{isSet: true, num: n}
}

// NewStringID returns a string-valued ID.
func NewStringID(s string) ID {
	return ID{isSet: true, isString: true, str: s}
}

// IsZero reports whether this is the absent-id value (notifications, or a
// server->client request that never got an id assigned).
func (id ID) IsZero() bool { return !id.isSet }

// IsString reports whether the id is string-typed.
func (id ID) IsString() bool { return id.isString }

// Num returns the numeric value; only meaningful if !IsString().
func (id ID) Num() int64 { return id.num }

// Str returns the string value; only meaningful if IsString().
func (id ID) Str() string { return id.str }

// String renders the id for logs.
func (id ID) String() string {
	switch {
	case !id.isSet:
		return "<no-id>"
	case id.isString:
		return id.str
	default:
		return fmt.Sprintf("%d", id.num)
	}
}

// MarshalJSON encodes the id as a bare JSON number or string. Marshaling the
// zero ID is an error: callers that need to omit id entirely (notifications,
// or responses to id-less server requests) must do so at the Message level
// via omitempty, never by serializing a null id for an ordinary response.
func (id ID) MarshalJSON() ([]byte, error) {
	if !id.isSet {
		return nil, fmt.Errorf("rpc: cannot marshal unset ID")
	}
	if id.isString {
		return json.Marshal(id.str)
	}
	return json.Marshal(id.num)
}

// UnmarshalJSON decodes a bare JSON number or string into the id.
func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID{}
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &id.num); err == nil {
		id.isSet = true
		return nil
	}
	if err := json.Unmarshal(data, &id.str); err != nil {
		return fmt.Errorf("rpc: id is neither a number nor a string: %w", err)
	}
	id.isSet = true
	id.isString = true
	return nil
}

// Equal is value-typed equality over the three id shapes: absent, number,
// and string.
func (id ID) Equal(other ID) bool {
	if id.isSet != other.isSet {
		return false
	}
	if !id.isSet {
		return true
	}
	if id.isString != other.isString {
		return false
	}
	if id.isString {
		return id.str == other.str
	}
	return id.num == other.num
}
