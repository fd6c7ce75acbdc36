package resource

import (
	"bytes"
	"encoding/json"

	"github.com/vmsops/vmsctl/faults"
)

// Attribute is one declared field of a resource spec. A field the author left
// out of the spec simply has no Attribute; there is no null sentinel.
type Attribute struct {
	Name  string
	Value Value
}

// Attributes is the ordered field set of a declared resource. Order follows
// the declaration and is preserved through serialization so outgoing request
// bodies are deterministic.
type Attributes []Attribute

func (a Attributes) Get(name string) (Value, bool) {
	for _, field := range a {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set replaces the named attribute in place, appending when absent.
func (a Attributes) Set(name string, value Value) Attributes {
	for idx, field := range a {
		if field.Name == name {
			a[idx].Value = value
			return a
		}
	}
	return append(a, Attribute{Name: name, Value: value})
}

func (a Attributes) Without(name string) Attributes {
	result := make(Attributes, 0, len(a))
	for _, field := range a {
		if field.Name != name {
			result = append(result, field)
		}
	}
	return result
}

func (a Attributes) Names() []string {
	names := make([]string, len(a))
	for idx, field := range a {
		names[idx] = field.Name
	}
	return names
}

// Clone copies the field list. Values are shared; callers that rewrite values
// use Set, which mutates only the clone's backing array.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	cloned := make(Attributes, len(a))
	copy(cloned, a)
	return cloned
}

// Map flattens the attributes into a plain map for comparison. Declared order
// is lost; use MarshalJSON for serialization.
func (a Attributes) Map() map[string]any {
	result := make(map[string]any, len(a))
	for _, field := range a {
		result[field.Name] = field.Value
	}
	return result
}

// MarshalJSON emits a JSON object in declaration order. Absent fields are not
// represented at all, matching the omit-if-undefined contract.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for idx, field := range a {
		if idx > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(field.Name)
		if err != nil {
			return nil, faults.NewTypedError(faults.ValidationError, "failed to encode attribute name", err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, faults.NewTypedError(faults.ValidationError, "failed to encode attribute "+field.Name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
