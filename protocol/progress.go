package protocol

import (
	"encoding/json"
	"fmt"
)

// ProgressToken identifies a work-done or partial-result progress stream.
// It is either an integer or a string, and equality is value-typed.
type ProgressToken struct {
	set      bool
	isString bool
	num      int64
	str      string
}

// NewProgressToken builds a string-valued token (the common server-minted
// case; see internal/progress's uuid-backed token minting).
func NewProgressToken(s string) ProgressToken {
	return ProgressToken{set: true, isString: true, str: s}
}

// IsZero reports the absent-token value.
func (t ProgressToken) IsZero() bool { return !t.set }

// Equal is value-typed equality.
func (t ProgressToken) Equal(o ProgressToken) bool {
	if t.set != o.set {
		return false
	}
	if !t.set {
		return true
	}
	if t.isString != o.isString {
		return false
	}
	if t.isString {
		return t.str == o.str
	}
	return t.num == o.num
}

// String renders the token for logs/map keys.
func (t ProgressToken) String() string {
	if !t.set {
		return ""
	}
	if t.isString {
		return t.str
	}
	return fmt.Sprintf("%d", t.num)
}

// MarshalJSON encodes the token as a bare number or string.
func (t ProgressToken) MarshalJSON() ([]byte, error) {
	if !t.set {
		return json.Marshal(nil)
	}
	if t.isString {
		return json.Marshal(t.str)
	}
	return json.Marshal(t.num)
}

// UnmarshalJSON decodes a bare number or string.
func (t *ProgressToken) UnmarshalJSON(data []byte) error {
	*t = ProgressToken{}
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &t.num); err == nil {
		t.set = true
		return nil
	}
	if err := json.Unmarshal(data, &t.str); err != nil {
		return fmt.Errorf("protocol: progress token is neither number nor string: %w", err)
	}
	t.set = true
	t.isString = true
	return nil
}

// WorkDoneProgressParams is embedded by requests that can report long-running
// progress.
type WorkDoneProgressParams struct {
	WorkDoneToken *ProgressToken `json:"workDoneToken,omitempty"`
}

// PartialResultParams is embedded by requests whose result may stream as
// $/progress notifications as a router assembles a multi-binding reply.
type PartialResultParams struct {
	PartialResultToken *ProgressToken `json:"partialResultToken,omitempty"`
}

// ProgressParams is the payload of the generic $/progress notification.
type ProgressParams struct {
	Token ProgressToken `json:"token"`
	Value interface{}   `json:"value"`
}

// CancelParams is $/cancelRequest's payload.
type CancelParams struct {
	ID json.RawMessage `json:"id"`
}

// WorkDoneProgressCreateParams is window/workDoneProgress/create's payload.
type WorkDoneProgressCreateParams struct {
	Token ProgressToken `json:"token"`
}

// WorkDoneProgressCancelParams is window/workDoneProgress/cancel's payload.
type WorkDoneProgressCancelParams struct {
	Token ProgressToken `json:"token"`
}

// WorkDoneProgressBegin/Report/End are the value payloads a work-done
// progress stream sends via $/progress.
type WorkDoneProgressBegin struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Cancellable bool   `json:"cancellable,omitempty"`
	Message     string `json:"message,omitempty"`
	Percentage  int    `json:"percentage,omitempty"`
}

type WorkDoneProgressReport struct {
	Kind        string `json:"kind"`
	Cancellable bool   `json:"cancellable,omitempty"`
	Message     string `json:"message,omitempty"`
	Percentage  int    `json:"percentage,omitempty"`
}

type WorkDoneProgressEnd struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}
