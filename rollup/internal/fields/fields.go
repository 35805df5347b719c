// Package fields turns OpenSearch index mappings into flat, addressable field
// lists and computes the set of fields shared by every index a source
// pattern matches.
package fields

import (
	"sort"
	"strings"
)

// FieldType is the coarse type tag used for compatibility checks.
type FieldType string

const (
	TypeDate        FieldType = "date"
	TypeKeyword     FieldType = "keyword"
	TypeNumeric     FieldType = "numeric"
	TypeText        FieldType = "text"
	TypeObject      FieldType = "object"
	TypeUnsupported FieldType = "unsupported"
)

// rawTypes maps OpenSearch mapping types onto type tags. Anything missing is
// TypeUnsupported.
var rawTypes = map[string]FieldType{
	"date":             TypeDate,
	"date_nanos":       TypeDate,
	"keyword":          TypeKeyword,
	"constant_keyword": TypeKeyword,
	"long":             TypeNumeric,
	"integer":          TypeNumeric,
	"short":            TypeNumeric,
	"byte":             TypeNumeric,
	"double":           TypeNumeric,
	"float":            TypeNumeric,
	"half_float":       TypeNumeric,
	"scaled_float":     TypeNumeric,
	"unsigned_long":    TypeNumeric,
	"text":             TypeText,
	"match_only_text":  TypeText,
	"object":           TypeObject,
	"nested":           TypeObject,
}

// Classify returns the type tag for a raw mapping type.
func Classify(raw string) FieldType {
	if t, ok := rawTypes[strings.ToLower(raw)]; ok {
		return t
	}
	return TypeUnsupported
}

// FieldDescriptor is one addressable field. Identity is (Path, Type), with
// numerics further split by Raw: a long and a double under the same path are
// different fields. For other types Raw is informational.
type FieldDescriptor struct {
	Path string    `json:"path"`
	Type FieldType `json:"type"`
	Raw  string    `json:"raw_type,omitempty"`
}

// Key returns the identity of the descriptor.
func (d FieldDescriptor) Key() string {
	return d.Path + "\x00" + string(d.Type) + "\x00" + d.subtype()
}

func (d FieldDescriptor) subtype() string {
	if d.Type == TypeNumeric {
		return strings.ToLower(d.Raw)
	}
	return ""
}

// Compatible reports whether two descriptors address the same field with the
// same type, numeric subtype included.
func (d FieldDescriptor) Compatible(o FieldDescriptor) bool {
	return d.Key() == o.Key()
}

// Sort orders descriptors by path, then type. Resolver output is always in
// this order.
func Sort(ds []FieldDescriptor) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Path != ds[j].Path {
			return ds[i].Path < ds[j].Path
		}
		if ds[i].Type != ds[j].Type {
			return ds[i].Type < ds[j].Type
		}
		return ds[i].Raw < ds[j].Raw
	})
}

// ByType returns the descriptors whose type is one of types.
func ByType(ds []FieldDescriptor, types ...FieldType) []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(ds))
	for _, d := range ds {
		for _, t := range types {
			if d.Type == t {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Dates returns the fields usable for the date histogram.
func Dates(ds []FieldDescriptor) []FieldDescriptor {
	return ByType(ds, TypeDate)
}

// Numeric returns the fields usable for metrics and histogram dimensions.
func Numeric(ds []FieldDescriptor) []FieldDescriptor {
	return ByType(ds, TypeNumeric)
}

// Dimensionable returns the fields usable for terms dimensions.
func Dimensionable(ds []FieldDescriptor) []FieldDescriptor {
	return ByType(ds, TypeKeyword, TypeNumeric)
}

// Find looks up a descriptor by path.
func Find(ds []FieldDescriptor, path string) (FieldDescriptor, bool) {
	for _, d := range ds {
		if d.Path == path {
			return d, true
		}
	}
	return FieldDescriptor{}, false
}

// Contains reports whether ds holds a descriptor compatible with d.
func Contains(ds []FieldDescriptor, d FieldDescriptor) bool {
	for _, x := range ds {
		if x.Compatible(d) {
			return true
		}
	}
	return false
}
