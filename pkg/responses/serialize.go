package responses

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire form: {type, value}.
type envelope struct {
	Type  Tag             `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the response as a {type, value} envelope so that
// Parse(serialize(r)) round-trips every variant.
func (r *Response) MarshalJSON() ([]byte, error) {
	var value any
	switch r.Tag {
	case TagScalar:
		value = r.Scalar
	case TagText:
		value = r.Text
	case TagTable:
		value = r.Table
	case TagChart:
		value = r.Chart
	case TagError:
		value = r.Err
	default:
		return nil, fmt.Errorf("marshal: unknown tag %q", r.Tag)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: r.Tag, Value: raw})
}

// UnmarshalJSON decodes the {type, value} envelope.
func (r *Response) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	r.Tag = env.Type
	switch env.Type {
	case TagScalar:
		return json.Unmarshal(env.Value, &r.Scalar)
	case TagText:
		return json.Unmarshal(env.Value, &r.Text)
	case TagTable:
		return json.Unmarshal(env.Value, &r.Table)
	case TagChart:
		r.Chart = &ChartSpec{}
		return json.Unmarshal(env.Value, r.Chart)
	case TagError:
		r.Err = &ErrorValue{}
		return json.Unmarshal(env.Value, r.Err)
	}
	return fmt.Errorf("unmarshal: unknown tag %q", env.Type)
}
