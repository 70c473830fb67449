package beacon

import (
	"errors"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		delimiter string
		want      []byte
	}{
		{name: "spaces", text: "12 00 94 03", want: []byte{0x12, 0x00, 0x94, 0x03}},
		{name: "mixed whitespace", text: "\t12\r\n00 9403\n", want: []byte{0x12, 0x00, 0x94, 0x03}},
		{name: "upper case", text: "DEADBEEF", want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "delimiter", text: "de:ad:be:ef", delimiter: ":", want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "multi char delimiter", text: "de, ad, be", delimiter: ",", want: []byte{0xde, 0xad, 0xbe}},
		{name: "empty", text: "  \n", want: []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.text, tt.delimiter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeInvalidCharacter(t *testing.T) {
	_, err := Normalize("1G 00", "")
	require.ErrorIs(t, err, ErrInvalidCharacter)

	var ce *CharacterError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 'G', ce.Char)
	assert.Equal(t, 1, ce.Pos)
}

func TestNormalizeDelimiterNotStrippedWithoutFlag(t *testing.T) {
	_, err := Normalize("de:ad", "")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
}

func TestNormalizeOddLength(t *testing.T) {
	_, err := Normalize("12 0", "")
	require.ErrorIs(t, err, ErrOddLength)

	var pe *ParityError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Digits)
}

func TestNormalizeReportsCharacterBeforeParity(t *testing.T) {
	_, err := Normalize("1 2 x", "")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
	assert.NotErrorIs(t, err, ErrOddLength)
}

func TestFormat(t *testing.T) {
	frame := []byte{0x12, 0x00, 0x94, 0x03}
	assert.Equal(t, "12009403", Format(frame, ""))
	assert.Equal(t, "12 00 94 03", Format(frame, " "))
	assert.Equal(t, "", Format(nil, ":"))
}

// reinsert replays the layout of tmpl over the digits of rendered:
// every hex digit of tmpl is replaced, everything else is kept.
func reinsert(tmpl, rendered, delimiter string) string {
	var b strings.Builder
	digits := []rune(rendered)
	next := 0
	for i := 0; i < len(tmpl); {
		if delimiter != "" && strings.HasPrefix(tmpl[i:], delimiter) {
			b.WriteString(delimiter)
			i += len(delimiter)
			continue
		}
		r := rune(tmpl[i])
		if unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(digits[next])
			next++
		}
		i++
	}
	return b.String()
}

func TestNormalizeRoundTripPreservesContent(t *testing.T) {
	inputs := []struct {
		text      string
		delimiter string
	}{
		{text: "12 00 94 03"},
		{text: " aB\tcD\n0f 9E "},
		{text: "AE-A4-68-aa", delimiter: "-"},
		{text: "c0 00 | 47 61 | 74 6F", delimiter: "|"},
		{text: "0102;;0304", delimiter: ";;"},
	}
	for _, in := range inputs {
		frame, err := Normalize(in.text, in.delimiter)
		require.NoError(t, err, in.text)

		got := reinsert(in.text, Format(frame, ""), in.delimiter)
		assert.True(t, strings.EqualFold(in.text, got), "round trip %q -> %q", in.text, got)
	}
}
