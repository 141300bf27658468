package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is the literal "2.0" jsonrpc version tag. Grounded on
// teleivo-dot's rpc.Version zero-sized marshaler.
type Version struct{}

// MarshalJSON always encodes the version as "2.0".
func (Version) MarshalJSON() ([]byte, error) {
	return json.Marshal("2.0")
}

// UnmarshalJSON accepts only the literal "2.0".
func (Version) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v != "2.0" {
		return fmt.Errorf("rpc: invalid jsonrpc version %q", v)
	}
	return nil
}

// Kind discriminates the three JSON-RPC message shapes.
type Kind int

const (
	// KindRequest is a message with both Method and ID.
	KindRequest Kind = iota
	// KindNotification is a message with Method but no ID.
	KindNotification
	// KindResponse is a message with ID and Result-or-Error but no Method.
	KindResponse
)

// Message is the wire envelope for all three JSON-RPC message shapes. Which
// shape a decoded Message represents is determined by field presence.
// Params and Result stay as json.RawMessage (a copy of their bytes made by
// encoding/json) until a caller opts into a typed decode; Error is decoded
// into *Error along with the envelope. Routing must never force-parse params.
type Message struct {
	Jsonrpc Version          `json:"jsonrpc"`
	ID      *ID              `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  *json.RawMessage `json:"params,omitempty"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *Error           `json:"error,omitempty"`
}

// Kind classifies a decoded Message.
func (m *Message) Kind() Kind {
	switch {
	case m.Method != "" && m.ID != nil:
		return KindRequest
	case m.Method != "":
		return KindNotification
	default:
		return KindResponse
	}
}

// NewRequest builds a request Message with params marshaled from v (nil-able).
func NewRequest(id ID, method string, v interface{}) (*Message, error) {
	raw, err := marshalParams(v)
	if err != nil {
		return nil, err
	}
	return &Message{ID: &id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification Message with params marshaled from v.
func NewNotification(method string, v interface{}) (*Message, error) {
	raw, err := marshalParams(v)
	if err != nil {
		return nil, err
	}
	return &Message{Method: method, Params: raw}, nil
}

// NewResponse builds a successful response Message.
func NewResponse(id ID, result interface{}) (*Message, error) {
	raw, err := marshalParams(result)
	if err != nil {
		return nil, err
	}
	return &Message{ID: &id, Result: raw}, nil
}

// NewErrorResponse builds a failed response Message.
func NewErrorResponse(id ID, rpcErr *Error) *Message {
	return &Message{ID: &id, Error: rpcErr}
}

func marshalParams(v interface{}) (*json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal params: %w", err)
	}
	raw := json.RawMessage(b)
	return &raw, nil
}

// DecodeParams unmarshals m.Params into v. It is a no-op returning false if
// Params is absent, in which case callers should use the zero value of v.
func (m *Message) DecodeParams(v interface{}) (bool, error) {
	if m.Params == nil {
		return false, nil
	}
	if err := json.Unmarshal(*m.Params, v); err != nil {
		return true, fmt.Errorf("rpc: decode params for %q: %w", m.Method, err)
	}
	return true, nil
}
