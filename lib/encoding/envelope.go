package encoding

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Raw-data envelopes answered to page-context requests.
const (
	NotFoundEnvelope    = `{"pageContext404PageDoesNotExist":true}`
	ServerErrorEnvelope = `{"serverSideError":true}`
)

// SerializeError reports a page context value that cannot be encoded.
type SerializeError struct {
	Key string
	Err error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("pageContext.%s cannot be serialized: %v", e.Key, e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

// MarshalPageContext encodes fields as a JSON object with sorted keys. The
// error names the first key whose value cannot be encoded.
func MarshalPageContext(fields map[string]any) (string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := make(map[string]json.RawMessage, len(fields))
	for _, k := range keys {
		raw, err := json.Marshal(fields[k])
		if err != nil {
			return "", &SerializeError{Key: k, Err: err}
		}
		obj[k] = raw
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// WrapPageContext wraps a serialized page context into the envelope of
// page-context requests: {"pageContext":{...}}.
func WrapPageContext(serialized string) string {
	return `{"pageContext":` + serialized + `}`
}

// UnwrapPageContext is the inverse of WrapPageContext.
func UnwrapPageContext(envelope []byte) (map[string]any, error) {
	var env struct {
		PageContext map[string]any `json:"pageContext"`
	}
	if err := json.Unmarshal(envelope, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if env.PageContext == nil {
		return nil, ErrInvalidFormat
	}
	return env.PageContext, nil
}
