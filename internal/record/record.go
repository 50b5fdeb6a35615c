package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Field is one named column of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is an insertion-ordered mapping of column name to Value.
type Record struct {
	fields []Field
	index  map[string]int
}

// New returns an empty record.
func New() *Record {
	return &Record{index: map[string]int{}}
}

// FromFields builds a record from fields in order; later duplicates overwrite earlier ones in place.
func FromFields(fields ...Field) *Record {
	r := New()
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Set assigns name. An existing field keeps its position.
func (r *Record) Set(name string, v Value) {
	if r.index == nil {
		r.reindex()
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	if r.index == nil {
		r.reindex()
	}
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Has reports whether name is present, including when its value is null.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes name, preserving the order of the remaining fields.
func (r *Record) Delete(name string) bool {
	if r == nil {
		return false
	}
	if r.index == nil {
		r.reindex()
	}
	i, ok := r.index[name]
	if !ok {
		return false
	}
	r.fields = append(r.fields[:i], r.fields[i+1:]...)
	r.reindex()
	return true
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Fields returns a copy of the fields in order.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	return append([]Field(nil), r.fields...)
}

// Clone returns an independent copy. Values are immutable, so a shallow copy suffices.
func (r *Record) Clone() *Record {
	if r == nil {
		return New()
	}
	return FromFields(r.fields...)
}

// Equal reports equality of keys, order and values.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i := range r.fields {
		a, b := r.fields[i], o.fields[i]
		if a.Name != b.Name || !a.Value.Equal(b.Value) {
			return false
		}
	}
	return true
}

func (r *Record) reindex() {
	r.index = make(map[string]int, len(r.fields))
	for i, f := range r.fields {
		r.index[f.Name] = i
	}
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	if r != nil {
		for i, f := range r.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Name)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return err
	}
	if v.kind != KindMap {
		return fmt.Errorf("record: expected JSON object, got %s", v.kind)
	}
	*r = *v.m
	return nil
}

var errUnexpectedEnd = errors.New("record: unexpected end of JSON input")

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, errUnexpectedEnd
		}
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return FromAny(t), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindList, list: items}, nil
		case '{':
			r := New()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("record: non-string object key %v", keyTok)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				r.Set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindMap, m: r}, nil
		}
	}
	return Value{}, fmt.Errorf("record: unexpected token %v", tok)
}
