package render

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a JSON object that remembers the order its keys arrived in.
// Values stay undecoded until a caller asks for them.
type Object struct {
	Keys   []string
	Values map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	o.Keys = nil
	o.Values = make(map[string]json.RawMessage)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode value for %q: %w", key, err)
		}

		if _, seen := o.Values[key]; !seen {
			o.Keys = append(o.Keys, key)
		}
		o.Values[key] = value
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Has reports whether key is present, even with a null value.
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.Values[key]
	return ok
}

// Get returns the raw value for key and whether it holds something other
// than null.
func (o *Object) Get(key string) (json.RawMessage, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.Values[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

// OrderedValues returns the values in key order.
func (o *Object) OrderedValues() []interface{} {
	values := make([]interface{}, len(o.Keys))
	for i, key := range o.Keys {
		values[i] = o.Values[key]
	}
	return values
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
