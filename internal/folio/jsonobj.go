package folio

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Extra holds authored fields the model does not interpret. They are passed
// through to the manifest unchanged.
type Extra map[string]json.RawMessage

// Keys returns the extra field names in sorted order.
func (e Extra) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// String returns a string-valued extra field.
func (e Extra) String(key string) (string, bool) {
	raw, ok := e[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// object is a decoded JSON object whose known fields are claimed one by one;
// whatever is left becomes Extra.
type object map[string]json.RawMessage

func decodeObject(data []byte) (object, error) {
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	if o == nil {
		o = object{}
	}
	return o, nil
}

// take decodes key into dst and removes it. A value of the wrong shape is left
// in place so it survives as an extra field.
func (o object) take(key string, dst any) bool {
	raw, ok := o[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false
	}
	delete(o, key)
	return true
}

func (o object) rest() Extra {
	if len(o) == 0 {
		return nil
	}
	return Extra(o)
}

// fields collects known values ahead of encoding. Extras never shadow a
// known field.
type fields map[string]any

func (f fields) str(key, v string) {
	if v != "" {
		f[key] = v
	}
}

func (f fields) set(key string, v any, present bool) {
	if present {
		f[key] = v
	}
}

func (f fields) encode(extra Extra) ([]byte, error) {
	for k, v := range extra {
		if _, known := f[k]; !known {
			f[k] = v
		}
	}
	return encodeJSON(map[string]any(f))
}

// encodeJSON marshals v without HTML escaping and without the trailing
// newline json.Encoder adds.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
