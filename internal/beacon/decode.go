package beacon

import (
	"encoding/binary"
	"fmt"
)

type Value struct {
	Name string
	Kind Kind
	Uint uint64
	Int  int64
	Raw  []byte
}

// Any returns the value as uint64, int64 or []byte according to its kind.
func (v Value) Any() any {
	switch v.Kind {
	case KindUint:
		return v.Uint
	case KindInt:
		return v.Int
	default:
		return v.Raw
	}
}

// Record is one decoded telemetry frame. Values keep schema field order.
type Record struct {
	Schema *Schema
	Values []Value
}

func (r Record) Get(name string) (Value, bool) {
	for _, v := range r.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Decode extracts every field of s from frame.
func Decode(frame []byte, s *Schema) (Record, error) {
	if s == nil {
		return Record{}, &SchemaError{Reason: "no telemetry schema"}
	}
	values := make([]Value, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Offset < 0 || f.End() > len(frame) {
			return Record{}, &BoundsError{Schema: s.Name, Field: f.Name, Offset: f.Offset, Width: f.Width, Length: len(frame)}
		}
		chunk := frame[f.Offset:f.End()]

		switch f.Kind {
		case KindUint:
			u := readUint(chunk)
			if len(f.Bits) == 0 {
				values = append(values, Value{Name: f.Name, Kind: KindUint, Uint: u})
				continue
			}
			for _, b := range f.Bits {
				values = append(values, Value{Name: b.Name, Kind: KindUint, Uint: (u >> b.Shift) & (1<<b.Width - 1)})
			}
		case KindInt:
			values = append(values, Value{Name: f.Name, Kind: KindInt, Int: signExtend(readUint(chunk), f.Width)})
		case KindBytes:
			buf := make([]byte, len(chunk))
			copy(buf, chunk)
			values = append(values, Value{Name: f.Name, Kind: KindBytes, Raw: buf})
		default:
			return Record{}, &SchemaError{Schema: s.Name, Field: f.Name, Reason: f.Kind.String()}
		}
	}
	return Record{Schema: s, Values: values}, nil
}

// DecodeHex runs the full telemetry path: normalize, classify, decode.
func DecodeHex(text, delimiter string) (Record, error) {
	frame, err := Normalize(text, delimiter)
	if err != nil {
		return Record{}, err
	}
	ft, err := Classify(frame, false)
	if err != nil {
		return Record{}, err
	}
	return Decode(frame, ft.Schema())
}

func readUint(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		panic(fmt.Sprintf("beacon: numeric width %d", len(b)))
	}
}

func signExtend(u uint64, width int) int64 {
	switch width {
	case 1:
		return int64(int8(u))
	case 2:
		return int64(int16(u))
	default:
		return int64(int32(u))
	}
}
