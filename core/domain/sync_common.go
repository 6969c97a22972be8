package domain

import (
	"reflect"
	"sort"
	"time"
)

// EntityKind identifies which versioned record variant an operation targets.
type EntityKind string

const (
	KindTask      EntityKind = "task"
	KindDirectory EntityKind = "directory"
)

// Valid reports whether the kind is one of the known variants.
func (k EntityKind) Valid() bool {
	return k == KindTask || k == KindDirectory
}

// Record is a field-name-keyed snapshot of a versioned record. The conflict
// and history layers treat it as opaque structured data; only the persistence
// adapter and the entity bindings know the concrete columns behind it.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a copy of r overlaid with the given updates.
func (r Record) Merge(updates Record) Record {
	out := r.Clone()
	if out == nil {
		out = make(Record, len(updates))
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}

// Version returns the record's version counter, or 0 if absent.
func (r Record) Version() int64 {
	return asInt64(r["version"])
}

// FieldSet is a set of record field names.
type FieldSet map[string]struct{}

// NewFieldSet builds a set from the given names.
func NewFieldSet(names ...string) FieldSet {
	s := make(FieldSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether the set contains name.
func (s FieldSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Intersects reports whether the two sets share any field.
func (s FieldSet) Intersects(other FieldSet) bool {
	for n := range s {
		if other.Has(n) {
			return true
		}
	}
	return false
}

// Names returns the field names in sorted order.
func (s FieldSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FieldsEqual compares two record field values structurally. Numeric values
// are compared by magnitude regardless of concrete integer/float type, times
// by instant, and list values element-wise in order.
func FieldsEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return isEmptyValue(a) && isEmptyValue(b)
	}

	if at, ok := asTime(a); ok {
		bt, ok := asTime(b)
		return ok && at.Equal(bt)
	}

	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)

	if isNumeric(av) && isNumeric(bv) {
		return numericValue(av) == numericValue(bv)
	}

	if av.Kind() == reflect.Slice && bv.Kind() == reflect.Slice {
		if av.Len() != bv.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			if !FieldsEqual(av.Index(i).Interface(), bv.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func asInt64(v any) int64 {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	if isNumeric(rv) {
		return int64(numericValue(rv))
	}
	return 0
}

func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func numericValue(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

// isEmptyValue treats nil typed pointers and nil interfaces alike, so a field
// that is absent on one side and a nil pointer on the other does not diff.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}
