package layout

import (
	"fmt"
	"math"
	"strconv"

	"firestige.xyz/cobslog/internal/core"
)

// Value is one decoded field. Exactly one of Int, Uint or Float is
// meaningful, selected by Type.
type Value struct {
	Type  core.FieldType
	Int   int64
	Uint  uint64
	Float float64
}

// Float64 converts v to float64. Integer values may lose precision.
func (v Value) Float64() float64 {
	switch {
	case v.Type.IsFloat():
		return v.Float
	case isSigned(v.Type):
		return float64(v.Int)
	default:
		return float64(v.Uint)
	}
}

func (v Value) String() string {
	switch {
	case v.Type == core.Float32:
		return strconv.FormatFloat(v.Float, 'g', -1, 32)
	case v.Type.IsFloat():
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case isSigned(v.Type):
		return strconv.FormatInt(v.Int, 10)
	default:
		return strconv.FormatUint(v.Uint, 10)
	}
}

// Row is one decoded record slot.
type Row struct {
	Index   int
	Missing bool
	Values  []Value
}

// Decoder interprets record slots with a fixed layout.
type Decoder struct {
	layout  core.RecordLayout
	offsets []int
	size    int
}

// NewDecoder validates l and returns a decoder for it.
func NewDecoder(l core.RecordLayout) (*Decoder, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{layout: l, offsets: l.Offsets(), size: l.Size()}, nil
}

// Layout returns the decoder's layout.
func (d *Decoder) Layout() core.RecordLayout { return d.layout }

// Names returns field names in declaration order.
func (d *Decoder) Names() []string {
	names := make([]string, len(d.layout.Fields))
	for i, f := range d.layout.Fields {
		names[i] = f.Name
	}
	return names
}

// Row decodes a single slot. The slot must be exactly one record long.
func (d *Decoder) Row(index int, slot []byte) (Row, error) {
	if len(slot) != d.size {
		return Row{}, fmt.Errorf("%w: slot is %d bytes, layout %q is %d", core.ErrMisalignedRecords, len(slot), d.layout.Name, d.size)
	}
	order := d.layout.Order()
	row := Row{Index: index, Missing: core.IsMissing(slot), Values: make([]Value, len(d.layout.Fields))}
	for i, f := range d.layout.Fields {
		b := slot[d.offsets[i] : d.offsets[i]+f.Type.Width()]
		v := Value{Type: f.Type}
		switch f.Type {
		case core.Int8:
			v.Int = int64(int8(b[0]))
		case core.Int16:
			v.Int = int64(int16(order.Uint16(b)))
		case core.Int32:
			v.Int = int64(int32(order.Uint32(b)))
		case core.Int64:
			v.Int = int64(order.Uint64(b))
		case core.Uint8:
			v.Uint = uint64(b[0])
		case core.Uint16:
			v.Uint = uint64(order.Uint16(b))
		case core.Uint32:
			v.Uint = uint64(order.Uint32(b))
		case core.Uint64:
			v.Uint = order.Uint64(b)
		case core.Float32:
			v.Float = float64(math.Float32frombits(order.Uint32(b)))
		case core.Float64:
			v.Float = math.Float64frombits(order.Uint64(b))
		}
		row.Values[i] = v
	}
	return row, nil
}

// Rows decodes every slot in a flat record buffer.
func (d *Decoder) Rows(records []byte) ([]Row, error) {
	if len(records)%d.size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", core.ErrMisalignedRecords, len(records), d.size)
	}
	rows := make([]Row, 0, len(records)/d.size)
	for i := 0; i*d.size < len(records); i++ {
		row, err := d.Row(i, records[i*d.size:(i+1)*d.size])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Column returns one field across all slots as float64. Missing slots read
// as NaN regardless of the field type.
func (d *Decoder) Column(records []byte, name string) ([]float64, error) {
	idx := -1
	for i, f := range d.layout.Fields {
		if f.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: no field %q in layout %q", core.ErrLayoutInvalid, name, d.layout.Name)
	}
	rows, err := d.Rows(records)
	if err != nil {
		return nil, err
	}
	col := make([]float64, len(rows))
	for i, r := range rows {
		if r.Missing {
			col[i] = math.NaN()
			continue
		}
		col[i] = r.Values[idx].Float64()
	}
	return col, nil
}

// Decode is shorthand for NewDecoder followed by Rows.
func Decode(l core.RecordLayout, records []byte) ([]Row, error) {
	d, err := NewDecoder(l)
	if err != nil {
		return nil, err
	}
	return d.Rows(records)
}

func isSigned(t core.FieldType) bool {
	switch t {
	case core.Int8, core.Int16, core.Int32, core.Int64:
		return true
	}
	return false
}
