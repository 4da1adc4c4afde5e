package chart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap"
	"github.com/pkg/errors"
)

// Row is one entry of a render request. Keys keep their insertion order
// when encoded.
type Row struct {
	*orderedmap.OrderedMap
}

func newRow() Row {
	return Row{OrderedMap: orderedmap.NewOrderedMap()}
}

// PointRow is a scatter point or a bar value.
func PointRow(x any, y float64, series string) Row {
	r := newRow()
	r.Set("x", x)
	r.Set("y", y)
	r.Set("series", series)
	return r
}

// SliceRow is a pie slice.
func SliceRow(label string, value float64) Row {
	r := newRow()
	r.Set("label", label)
	r.Set("value", value)
	return r
}

// Text returns the value of key formatted with %v.
func (r Row) Text(key string) string {
	if r.OrderedMap == nil {
		return ""
	}
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// Float returns the numeric value of key.
func (r Row) Float(key string) (float64, bool) {
	if r.OrderedMap == nil {
		return 0, false
	}
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r.OrderedMap != nil {
		first := true
		for pair := r.Front(); pair != nil; pair = pair.Next() {
			key, _ := pair.Key.(string)
			k, err := json.Marshal(key)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			v, err := json.Marshal(pair.Value)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return errors.WithStack(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("row: expected object, got %v", tok)
	}
	*r = newRow()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.WithStack(err)
		}
		key, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return errors.WithStack(err)
		}
		if n, ok := v.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return errors.WithStack(err)
			}
			v = f
		}
		r.Set(key, v)
	}
	return nil
}
