package jsonx

import (
	"encoding/json"
	"fmt"
)

// VariantArm describes one candidate shape of a struct-variant (sum type):
// a candidate matches iff every one of its RequiredKeys is present on the
// wire object. New must return a pointer suitable for json.Unmarshal (e.g.
// func() interface{} { return new(TextEdit) }).
type VariantArm struct {
	Name         string
	RequiredKeys []string
	New          func() interface{}
}

// DecodeVariant selects the first VariantArm (in declaration order) whose
// RequiredKeys are all present in data's top-level object keys, decodes data
// into that arm's New() value, and returns the arm's name alongside it. If
// no arm matches, DecodeVariant returns a *DecodeError listing, per
// candidate, which required keys were missing.
func DecodeVariant(data []byte, arms []VariantArm) (string, interface{}, error) {
	v, err := Parse(data)
	if err != nil {
		return "", nil, err
	}
	obj, err := v.AsObject()
	if err != nil {
		return "", nil, &DecodeError{Msg: err.Error()}
	}

	present := make(map[string]bool)
	for _, k := range obj.Keys() {
		present[k] = true
	}

	missing := make(map[string][]string)
	for _, arm := range arms {
		var lack []string
		for _, k := range arm.RequiredKeys {
			if !present[k] {
				lack = append(lack, k)
			}
		}
		if len(lack) == 0 {
			dst := arm.New()
			if err := json.Unmarshal(data, dst); err != nil {
				return "", nil, &DecodeError{Msg: fmt.Sprintf("decoding arm %q: %v", arm.Name, err)}
			}
			return arm.Name, dst, nil
		}
		missing[arm.Name] = lack
	}

	return "", nil, &DecodeError{
		Msg:     "no variant arm matched required-key presence",
		Missing: missing,
	}
}
