package beacon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSchemasTileFrame(t *testing.T) {
	for _, s := range []*Schema{&SchemaA, &SchemaB, &SchemaC} {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, s.Validate())

			covered := make([]int, s.Length)
			for _, f := range s.Fields {
				for i := f.Offset; i < f.End(); i++ {
					covered[i]++
				}
			}
			for i, n := range covered {
				assert.Equal(t, 1, n, "byte %d covered %d times", i, n)
			}
		})
	}
}

func TestSubsystemBlockSizes(t *testing.T) {
	size := func(fields []Field) int {
		n := 0
		for _, f := range fields {
			n += f.Width
		}
		return n
	}
	assert.Equal(t, 116, size(epsBlock))
	assert.Equal(t, 15, size(batteryBlock))
	assert.Equal(t, 28, size(vutrxBlock))
	assert.Equal(t, 4, size(antsBlock))
	assert.Equal(t, 22, size(stxBlock))
}

func TestSchemaCExtendsSchemaB(t *testing.T) {
	require.Greater(t, len(SchemaC.Fields), len(SchemaB.Fields))
	for i, f := range SchemaB.Fields {
		assert.Equal(t, f.Name, SchemaC.Fields[i].Name)
		assert.Equal(t, f.Offset, SchemaC.Fields[i].Offset)
	}
	assert.Equal(t, SchemaB.Length, SchemaC.Fields[len(SchemaB.Fields)].Offset)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
	}{
		{
			name:   "gap",
			schema: Schema{Name: "gap", Length: 4, Fields: []Field{{Name: "a", Offset: 0, Width: 1, Kind: KindUint}, {Name: "b", Offset: 2, Width: 2, Kind: KindUint}}},
		},
		{
			name:   "overlap",
			schema: Schema{Name: "overlap", Length: 3, Fields: []Field{{Name: "a", Offset: 0, Width: 2, Kind: KindUint}, {Name: "b", Offset: 1, Width: 2, Kind: KindUint}}},
		},
		{
			name:   "short coverage",
			schema: Schema{Name: "short", Length: 4, Fields: layout(0, u16("a"))},
		},
		{
			name:   "past end",
			schema: Schema{Name: "long", Length: 2, Fields: layout(0, u16("a"), u8("b"))},
		},
		{
			name:   "numeric width",
			schema: Schema{Name: "width", Length: 3, Fields: []Field{{Name: "a", Offset: 0, Width: 3, Kind: KindUint}}},
		},
		{
			name:   "duplicate name",
			schema: Schema{Name: "dup", Length: 2, Fields: layout(0, u8("a"), u8("a"))},
		},
		{
			name:   "bit group outside register",
			schema: Schema{Name: "bits", Length: 1, Fields: layout(0, flags("r", 1, Bits{Name: "hi", Shift: 6, Width: 3}))},
		},
		{
			name:   "bit group on signed field",
			schema: Schema{Name: "signed", Length: 1, Fields: []Field{{Name: "r", Width: 1, Kind: KindInt, Bits: []Bits{bit("b0", 0)}}}},
		},
		{
			name:   "bit name clashes with field",
			schema: Schema{Name: "clash", Length: 2, Fields: layout(0, u8("a"), flags("r", 1, bit("a", 0)))},
		},
		{
			name:   "unknown kind",
			schema: Schema{Name: "kind", Length: 1, Fields: []Field{{Name: "a", Width: 1}}},
		},
		{
			name:   "numeric reserved padding",
			schema: Schema{Name: "pad", Length: 3, Fields: layout(0, u8("a"), u16("tail_reserved"))},
		},
		{
			name:   "reserved register",
			schema: Schema{Name: "padreg", Length: 1, Fields: layout(0, flags("reserved", 1, bit("b0", 0)))},
		},
		{
			name:   "no fields",
			schema: Schema{Name: "empty", Length: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaBounds)
		})
	}
}

func TestValidateAcceptsUnorderedFields(t *testing.T) {
	s := Schema{Name: "unordered", Length: 3, Fields: []Field{
		{Name: "b", Offset: 1, Width: 2, Kind: KindUint},
		{Name: "a", Offset: 0, Width: 1, Kind: KindInt},
	}}
	assert.NoError(t, s.Validate())
}

func TestValidateAcceptsReservedPadding(t *testing.T) {
	s := Schema{Name: "padded", Length: 4, Fields: layout(0, u16("a"), raw("pad_reserved", 2))}
	assert.NoError(t, s.Validate())
}

func TestReservedFields(t *testing.T) {
	assert.True(t, raw("stx_reserved", 1).Reserved())
	assert.True(t, raw("reserved_tail", 2).Reserved())
	assert.False(t, u16("battery_voltage").Reserved())
}
