package beacon

import (
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize strips whitespace and delimiter occurrences from text and decodes
// the remaining hex digits. Invalid characters are reported before parity.
func Normalize(text, delimiter string) ([]byte, error) {
	if delimiter != "" {
		text = strings.ReplaceAll(text, delimiter, "")
	}

	digits := make([]byte, 0, len(text))
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		if !isHexDigit(r) {
			return nil, &CharacterError{Char: r, Pos: len(digits)}
		}
		digits = append(digits, byte(r))
	}
	if len(digits)%2 != 0 {
		return nil, &ParityError{Digits: len(digits)}
	}

	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, err
	}
	return out, nil
}

// Format renders frame as lower-case hex pairs joined by delimiter.
func Format(frame []byte, delimiter string) string {
	if delimiter == "" {
		return hex.EncodeToString(frame)
	}
	pairs := make([]string, len(frame))
	for i, b := range frame {
		pairs[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(pairs, delimiter)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
