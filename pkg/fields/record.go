// Package fields projects GitHub API items (nested JSON objects) into flat
// records holding a caller-selected set of fields.
//
// A field list is either a list of names or a single wildcard:
//
//	*        every field of the item
//	urls     only fields whose name ends in "url"
//	nourls   every field whose name does not end in "url"
//
// Names may reach into embedded objects with dots ("owner.login",
// "license.name"). The projected field is named with underscores
// ("owner_login") and is null when the embedded object is missing.
package fields

import (
	"bytes"
	"encoding/json"
)

// Field is a name/value pair.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered set of named values. Copies of a Record share their
// values; use Clone before changing a copy.
type Record struct {
	names  []string
	values map[string]any
}

// NewRecord creates a record holding fields in order.
func NewRecord(fields ...Field) Record {
	r := Record{values: make(map[string]any, len(fields))}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set stores value under name. Overwriting keeps the original position.
func (r *Record) Set(name string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// Clone returns a record that can be changed independently of r. Values
// themselves are not copied.
func (r Record) Clone() Record {
	if r.values == nil {
		return Record{}
	}
	return Record{names: r.Names(), values: r.Map()}
}

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether name is set.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Names returns the field names in order.
func (r Record) Names() []string {
	return append([]string(nil), r.names...)
}

// Values returns the values in field order.
func (r Record) Values() []any {
	out := make([]any, len(r.names))
	for i, name := range r.names {
		out[i] = r.values[name]
	}
	return out
}

// Fields returns the name/value pairs in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.names))
	for i, name := range r.names {
		out[i] = Field{Name: name, Value: r.values[name]}
	}
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.names)
}

// Map returns the values keyed by name.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the record as an object with sorted keys.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.values == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.values); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes an object, keeping its key order. Numbers are kept
// as json.Number.
func (r *Record) UnmarshalJSON(data []byte) error {
	var values map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return err
	}

	*r = Record{values: make(map[string]any, len(values))}
	for _, name := range keyOrder(data) {
		if v, ok := values[name]; ok && !r.Has(name) {
			r.Set(name, v)
		}
	}
	return nil
}
