package jsonx

import "fmt"

// ParseError is returned when raw bytes are not well-formed JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "jsonx: parse error: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// DecodeError is returned when well-formed JSON does not fit the requested
// schema (a struct-variant decode with no matching arm, or a typed decode
// that fails field-by-field).
type DecodeError struct {
	Msg      string
	Missing  map[string][]string // arm name -> missing required keys, for variant decode failures
}

func (e *DecodeError) Error() string {
	if len(e.Missing) == 0 {
		return "jsonx: decode error: " + e.Msg
	}
	s := "jsonx: decode error: " + e.Msg + ":"
	for arm, keys := range e.Missing {
		s += fmt.Sprintf(" %s missing %v;", arm, keys)
	}
	return s
}
