package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/siherrmann/ragcore/helper"
)

// Metadata represents JSONB metadata stored alongside a chunk
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal converts JSON bytes or Metadata to Metadata
func (m *Metadata) Unmarshal(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = Metadata(s)
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}

// Clone returns a copy that shares no mutable state with the original.
// Nested maps and slices are copied recursively.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		nested := make(map[string]interface{}, len(val))
		for k, nv := range val {
			nested[k] = cloneValue(nv)
		}
		return nested
	case Metadata:
		return map[string]interface{}(val.Clone())
	case []interface{}:
		nested := make([]interface{}, len(val))
		for i, nv := range val {
			nested[i] = cloneValue(nv)
		}
		return nested
	default:
		return v
	}
}

// Matches reports whether every key in filter is present with an equal
// value. An empty or nil filter matches everything. Numeric values are
// compared loosely so that JSON round-tripped ints still match.
func (m Metadata) Matches(filter Metadata) bool {
	for k, want := range filter {
		got, ok := m[k]
		if !ok {
			return false
		}
		if !looselyEqual(got, want) {
			return false
		}
	}
	return true
}

func looselyEqual(a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
