package beacon

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCharacter        = errors.New("beacon: invalid hex character")
	ErrOddLength               = errors.New("beacon: odd hex digit count")
	ErrUnrecognizedFrameLength = errors.New("beacon: unrecognized frame length")
	ErrSchemaBounds            = errors.New("beacon: schema field out of bounds")
	ErrShortImageFrame         = errors.New("beacon: image frame shorter than payload range")
)

// CharacterError reports the first non-hex character left after normalization.
// Pos indexes the normalized digit string.
type CharacterError struct {
	Char rune
	Pos  int
}

func (e *CharacterError) Error() string {
	return fmt.Sprintf("%v: %q at position %d (want [0-9a-fA-F])", ErrInvalidCharacter, e.Char, e.Pos)
}

func (e *CharacterError) Unwrap() error { return ErrInvalidCharacter }

type ParityError struct {
	Digits int
}

func (e *ParityError) Error() string {
	return fmt.Sprintf("%v: %d digits (want whole bytes)", ErrOddLength, e.Digits)
}

func (e *ParityError) Unwrap() error { return ErrOddLength }

type FrameLengthError struct {
	Length int
}

func (e *FrameLengthError) Error() string {
	return fmt.Sprintf("%v: %d bytes (want one of %v)", ErrUnrecognizedFrameLength, e.Length, FrameLengths())
}

func (e *FrameLengthError) Unwrap() error { return ErrUnrecognizedFrameLength }

// BoundsError means a schema describes bytes the frame does not have. It is a
// configuration defect, never a property of user input.
type BoundsError struct {
	Schema string
	Field  string
	Offset int
	Width  int
	Length int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%v: schema=%s field=%s range=[%d,%d) frame=%d",
		ErrSchemaBounds, e.Schema, e.Field, e.Offset, e.Offset+e.Width, e.Length)
}

func (e *BoundsError) Unwrap() error { return ErrSchemaBounds }

type ShortFrameError struct {
	Length int
	Range  PayloadRange
}

func (e *ShortFrameError) Error() string {
	return fmt.Sprintf("%v: %d bytes (payload range [%d,%d))",
		ErrShortImageFrame, e.Length, e.Range.Offset, e.Range.End())
}

func (e *ShortFrameError) Unwrap() error { return ErrShortImageFrame }

// SchemaError describes a static schema that fails validation.
type SchemaError struct {
	Schema string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("beacon: schema=%s: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("beacon: schema=%s field=%s: %s", e.Schema, e.Field, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaBounds }
