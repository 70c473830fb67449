package beacon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKnownLengths(t *testing.T) {
	tests := []struct {
		length int
		want   FrameType
		schema *Schema
	}{
		{46, FrameAck, &SchemaA},
		{163, FrameFlight1, &SchemaB},
		{185, FrameFlight2, &SchemaC},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			frame := make([]byte, tt.length)
			got, err := Classify(frame, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Same(t, tt.schema, got.Schema())

			_, err = Decode(frame, got.Schema())
			assert.NoError(t, err)
		})
	}
}

func TestClassifyRejectsOtherLengths(t *testing.T) {
	known := map[int]bool{46: true, 163: true, 185: true}
	for n := 0; n <= 300; n++ {
		if known[n] {
			continue
		}
		got, err := Classify(make([]byte, n), false)
		require.ErrorIs(t, err, ErrUnrecognizedFrameLength, "length %d", n)
		assert.Equal(t, FrameUnknown, got)

		var fe *FrameLengthError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, n, fe.Length)
	}
}

func TestClassifyImageBypassesLengthTable(t *testing.T) {
	for _, n := range []int{0, 46, 163, 256, 1000} {
		got, err := Classify(make([]byte, n), true)
		require.NoError(t, err)
		assert.Equal(t, FrameImage, got)
		assert.Nil(t, got.Schema())
	}
}

func TestFrameLengths(t *testing.T) {
	assert.Equal(t, []int{46, 163, 185}, FrameLengths())
}
