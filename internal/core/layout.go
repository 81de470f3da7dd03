// Package core defines core data structures with zero external dependencies.
package core

import (
	"encoding/binary"
	"fmt"
)

// FieldType names the numeric type of one record field.
type FieldType string

// Supported field types. Widths are in bytes.
const (
	Int8    FieldType = "int8"
	Int16   FieldType = "int16"
	Int32   FieldType = "int32"
	Int64   FieldType = "int64"
	Uint8   FieldType = "uint8"
	Uint16  FieldType = "uint16"
	Uint32  FieldType = "uint32"
	Uint64  FieldType = "uint64"
	Float32 FieldType = "float32"
	Float64 FieldType = "float64"
)

var fieldWidths = map[FieldType]int{
	Int8: 1, Uint8: 1,
	Int16: 2, Uint16: 2,
	Int32: 4, Uint32: 4, Float32: 4,
	Int64: 8, Uint64: 8, Float64: 8,
}

// Width returns the encoded size of t, or 0 if t is unknown.
func (t FieldType) Width() int {
	return fieldWidths[t]
}

// Valid reports whether t is a supported field type.
func (t FieldType) Valid() bool {
	_, ok := fieldWidths[t]
	return ok
}

// IsFloat reports whether t is an IEEE 754 type.
func (t FieldType) IsFloat() bool {
	return t == Float32 || t == Float64
}

// Field is one named, typed member of a telemetry record.
type Field struct {
	Name string
	Type FieldType
}

// RecordLayout is a resolved description of one fixed-size telemetry record.
// Fields are packed with no padding, in declaration order.
type RecordLayout struct {
	Name      string
	ByteOrder binary.ByteOrder // nil means little endian
	Fields    []Field
}

// Size returns the total encoded size of one record in bytes.
func (l RecordLayout) Size() int {
	n := 0
	for _, f := range l.Fields {
		n += f.Type.Width()
	}
	return n
}

// Order returns the layout byte order, defaulting to little endian.
func (l RecordLayout) Order() binary.ByteOrder {
	if l.ByteOrder == nil {
		return binary.LittleEndian
	}
	return l.ByteOrder
}

// Offsets returns the byte offset of each field within a record.
func (l RecordLayout) Offsets() []int {
	offsets := make([]int, len(l.Fields))
	off := 0
	for i, f := range l.Fields {
		offsets[i] = off
		off += f.Type.Width()
	}
	return offsets
}

// Validate checks that the layout is usable for extraction.
func (l RecordLayout) Validate() error {
	if len(l.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrLayoutInvalid)
	}
	seen := make(map[string]struct{}, len(l.Fields))
	for i, f := range l.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field %d has no name", ErrLayoutInvalid, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrLayoutInvalid, f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Type.Valid() {
			return fmt.Errorf("%w: field %q: %w %q", ErrLayoutInvalid, f.Name, ErrUnknownFieldType, f.Type)
		}
	}
	return nil
}
