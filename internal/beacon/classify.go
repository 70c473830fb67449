package beacon

import "fmt"

// FrameType is the closed set of frame kinds a beacon can decode as.
type FrameType uint8

const (
	FrameUnknown FrameType = iota
	FrameAck
	FrameFlight1
	FrameFlight2
	FrameImage
)

func (t FrameType) String() string {
	switch t {
	case FrameAck:
		return "ack"
	case FrameFlight1:
		return "flight1"
	case FrameFlight2:
		return "flight2"
	case FrameImage:
		return "image"
	default:
		return fmt.Sprintf("frame(%d)", uint8(t))
	}
}

// Schema returns the field layout for telemetry frame types and nil for
// image or unknown frames.
func (t FrameType) Schema() *Schema {
	switch t {
	case FrameAck:
		return &SchemaA
	case FrameFlight1:
		return &SchemaB
	case FrameFlight2:
		return &SchemaC
	case FrameImage, FrameUnknown:
		return nil
	default:
		return nil
	}
}

// Classify selects the frame type by exact length. Image mode bypasses the
// length table entirely.
func Classify(frame []byte, image bool) (FrameType, error) {
	if image {
		return FrameImage, nil
	}
	ft, ok := byLength[len(frame)]
	if !ok {
		return FrameUnknown, &FrameLengthError{Length: len(frame)}
	}
	return ft, nil
}
