package fields

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Wildcard field specs.
const (
	All    = "*"
	URLs   = "urls"
	NoURLs = "nourls"
)

// Projector turns API items into records.
type Projector struct {
	// Entity selects the default fields when Fields is empty.
	Entity string

	// Fields lists the field names to project, or a wildcard as the first
	// element.
	Fields []string

	// Constants are values that belong to every record but are not part
	// of the API items, usually the query criteria (org, owner, repo).
	Constants Record

	// OnUnknown is called for each requested plain field missing from an item.
	OnUnknown func(name string)
}

// fieldList returns the effective field list.
func (p Projector) fieldList() []string {
	if len(p.Fields) == 0 {
		return Defaults(p.Entity)
	}
	return p.Fields
}

// Project projects a single item.
func (p Projector) Project(item []byte) Record {
	fields := p.fieldList()
	doc := gjson.ParseBytes(item)

	switch fields[0] {
	case All, URLs, NoURLs:
		return p.projectWildcard(doc, fields[0])
	}

	out := NewRecord()
	for _, name := range fields {
		if v, ok := p.Constants.Get(name); ok {
			out.Set(name, v)
			continue
		}

		if strings.Contains(name, ".") {
			out.Set(strings.ReplaceAll(name, ".", "_"), embedded(doc, strings.Split(name, ".")))
			continue
		}

		r := getKey(doc, name)
		if !r.Exists() {
			if p.OnUnknown != nil {
				p.OnUnknown(name)
			}
			continue
		}
		if strings.EqualFold(name, "private") {
			out.Set(name, visibility(r))
			continue
		}
		out.Set(name, Value(r))
	}
	return out
}

// ProjectAll projects every item in order.
func (p Projector) ProjectAll(items []json.RawMessage) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		out = append(out, p.Project(item))
	}
	return out
}

func (p Projector) projectWildcard(doc gjson.Result, wildcard string) Record {
	out := NewRecord()
	if wildcard != URLs {
		for _, f := range p.Constants.Fields() {
			out.Set(f.Name, f.Value)
		}
	}

	if !doc.IsObject() {
		return out
	}
	doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		isURL := IsURLField(name)
		switch {
		case wildcard == All:
			out.Set(name, Value(value))
		case wildcard == URLs && isURL:
			out.Set(name, Value(value))
		case wildcard == NoURLs && !isURL:
			if value.IsObject() {
				out.Set(name, withoutURLs(value))
			} else {
				out.Set(name, Value(value))
			}
		}
		return true
	})
	return out
}

// IsURLField reports whether a field name denotes a URL ("url", "html_url").
func IsURLField(name string) bool {
	return strings.HasSuffix(name, "url")
}

// Value converts a JSON value to a Go value: strings, bool, json.Number,
// nil, or map[string]any / []any for objects and arrays.
func Value(r gjson.Result) any {
	switch r.Type {
	case gjson.String:
		return r.String()
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.JSON:
		var v any
		dec := json.NewDecoder(bytes.NewReader([]byte(r.Raw)))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return r.Raw
		}
		return v
	default:
		return nil
	}
}

// embedded walks path through nested objects. Any missing level or
// non-object parent yields nil.
func embedded(doc gjson.Result, path []string) any {
	cur := doc
	for _, part := range path {
		if !cur.IsObject() {
			return nil
		}
		cur = getKey(cur, part)
		if !cur.Exists() {
			return nil
		}
	}
	return Value(cur)
}

func withoutURLs(obj gjson.Result) map[string]any {
	out := make(map[string]any)
	obj.ForEach(func(key, value gjson.Result) bool {
		if !IsURLField(key.String()) {
			out[key.String()] = Value(value)
		}
		return true
	})
	return out
}

func visibility(r gjson.Result) string {
	if r.Bool() {
		return "private"
	}
	return "public"
}

// getKey looks up a single object key, which may contain path syntax.
func getKey(obj gjson.Result, key string) gjson.Result {
	if !obj.IsObject() {
		return gjson.Result{}
	}
	return obj.Get(escapeKey(key))
}

// escapeKey escapes the gjson path syntax characters of a single key.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// keyOrder returns the top-level keys of a JSON object in document order.
func keyOrder(data []byte) []string {
	var keys []string
	gjson.ParseBytes(data).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}
