package beacon

import (
	"fmt"
	"sort"
	"strings"
)

type Kind uint8

const (
	KindUint Kind = iota + 1
	KindInt
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Bits names a group of bits inside an unsigned register field.
type Bits struct {
	Name  string
	Shift uint
	Width uint
}

type Field struct {
	Name   string
	Offset int
	Width  int
	Kind   Kind
	Bits   []Bits
}

func (f Field) End() int { return f.Offset + f.Width }

// Reserved reports whether the field only pads the frame layout. Padding
// must be raw bytes.
func (f Field) Reserved() bool {
	return strings.HasPrefix(f.Name, "reserved") || strings.HasSuffix(f.Name, "_reserved")
}

// Schema is the static layout of one telemetry frame length.
type Schema struct {
	Name         string
	Length       int
	MsgType      int
	MessageNum   int
	MessageTotal int
	Fields       []Field
}

// Validate checks that names are unique, widths fit their kind, bit groups
// stay inside their register and the field ranges tile [0, Length) exactly.
// Gaps are only allowed as reserved raw fields.
func (s *Schema) Validate() error {
	if s.Length <= 0 {
		return &SchemaError{Schema: s.Name, Reason: fmt.Sprintf("length %d", s.Length)}
	}
	if len(s.Fields) == 0 {
		return &SchemaError{Schema: s.Name, Reason: "no fields"}
	}

	names := make(map[string]struct{}, len(s.Fields))
	claim := func(field, name string) error {
		if name == "" {
			return &SchemaError{Schema: s.Name, Field: field, Reason: "empty name"}
		}
		if _, dup := names[name]; dup {
			return &SchemaError{Schema: s.Name, Field: field, Reason: fmt.Sprintf("duplicate name %q", name)}
		}
		names[name] = struct{}{}
		return nil
	}

	for _, f := range s.Fields {
		switch f.Kind {
		case KindUint, KindInt:
			if f.Width != 1 && f.Width != 2 && f.Width != 4 {
				return &SchemaError{Schema: s.Name, Field: f.Name, Reason: fmt.Sprintf("%s width %d", f.Kind, f.Width)}
			}
		case KindBytes:
			if f.Width <= 0 {
				return &SchemaError{Schema: s.Name, Field: f.Name, Reason: fmt.Sprintf("bytes width %d", f.Width)}
			}
		default:
			return &SchemaError{Schema: s.Name, Field: f.Name, Reason: f.Kind.String()}
		}
		if f.Reserved() && f.Kind != KindBytes {
			return &SchemaError{Schema: s.Name, Field: f.Name, Reason: "reserved padding must be raw bytes"}
		}

		if len(f.Bits) == 0 {
			if err := claim(f.Name, f.Name); err != nil {
				return err
			}
			continue
		}
		if f.Kind != KindUint {
			return &SchemaError{Schema: s.Name, Field: f.Name, Reason: "bit groups need an unsigned register"}
		}
		for _, b := range f.Bits {
			if b.Width == 0 || b.Shift+b.Width > uint(f.Width*8) {
				return &SchemaError{Schema: s.Name, Field: f.Name, Reason: fmt.Sprintf("bit group %s outside register", b.Name)}
			}
			if err := claim(f.Name, b.Name); err != nil {
				return err
			}
		}
	}

	ordered := make([]Field, len(s.Fields))
	copy(ordered, s.Fields)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Offset < ordered[j].Offset })

	cursor := 0
	for _, f := range ordered {
		switch {
		case f.Offset < cursor:
			return &SchemaError{Schema: s.Name, Field: f.Name, Reason: fmt.Sprintf("overlaps previous field at byte %d", f.Offset)}
		case f.Offset > cursor:
			return &SchemaError{Schema: s.Name, Field: f.Name, Reason: fmt.Sprintf("unnamed gap [%d,%d)", cursor, f.Offset)}
		}
		cursor = f.End()
	}
	if cursor != s.Length {
		return &SchemaError{Schema: s.Name, Reason: fmt.Sprintf("fields cover %d of %d bytes", cursor, s.Length)}
	}
	return nil
}

// layout assigns consecutive offsets to fields starting at base.
func layout(base int, fields ...Field) []Field {
	out := make([]Field, len(fields))
	offset := base
	for i, f := range fields {
		f.Offset = offset
		out[i] = f
		offset += f.Width
	}
	return out
}

func u8(name string) Field  { return Field{Name: name, Width: 1, Kind: KindUint} }
func u16(name string) Field { return Field{Name: name, Width: 2, Kind: KindUint} }
func i8(name string) Field  { return Field{Name: name, Width: 1, Kind: KindInt} }
func i16(name string) Field { return Field{Name: name, Width: 2, Kind: KindInt} }

func raw(name string, width int) Field {
	return Field{Name: name, Width: width, Kind: KindBytes}
}

func flags(register string, width int, bits ...Bits) Field {
	return Field{Name: register, Width: width, Kind: KindUint, Bits: bits}
}

func bit(name string, pos uint) Bits { return Bits{Name: name, Shift: pos, Width: 1} }
