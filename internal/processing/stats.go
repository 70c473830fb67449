package processing

import (
	"errors"
	"sync/atomic"

	"ss2beacon-go/internal/beacon"
)

// Stats counts decode outcomes. A nil *Stats is valid and counts nothing.
type Stats struct {
	lines       atomic.Uint64
	decoded     atomic.Uint64
	failures    atomic.Uint64
	badHex      atomic.Uint64
	badLength   atomic.Uint64
	imageChunks atomic.Uint64
	perSchema   [4]atomic.Uint64
}

func (s *Stats) observe(res Result) {
	if s == nil {
		return
	}
	s.lines.Add(1)
	if res.Err == nil {
		s.decoded.Add(1)
		if int(res.Type) < len(s.perSchema) {
			s.perSchema[res.Type].Add(1)
		}
		return
	}
	s.failures.Add(1)
	switch {
	case errors.Is(res.Err, beacon.ErrInvalidCharacter), errors.Is(res.Err, beacon.ErrOddLength):
		s.badHex.Add(1)
	case errors.Is(res.Err, beacon.ErrUnrecognizedFrameLength):
		s.badLength.Add(1)
	}
}

// Observe records the outcome of a line decoded outside DecodeBatch.
func (s *Stats) Observe(res Result) { s.observe(res) }

func (s *Stats) fail() {
	if s == nil {
		return
	}
	s.lines.Add(1)
	s.failures.Add(1)
}

func (s *Stats) chunk() {
	if s == nil {
		return
	}
	s.lines.Add(1)
	s.imageChunks.Add(1)
}

func (s *Stats) Decoded() uint64 {
	if s == nil {
		return 0
	}
	return s.decoded.Load()
}

func (s *Stats) Failed() uint64 {
	if s == nil {
		return 0
	}
	return s.failures.Load()
}

func (s *Stats) Snapshot() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return map[string]any{
		"lines_total":        s.lines.Load(),
		"decoded_total":      s.decoded.Load(),
		"failed_total":       s.failures.Load(),
		"bad_hex_total":      s.badHex.Load(),
		"bad_length_total":   s.badLength.Load(),
		"image_chunks_total": s.imageChunks.Load(),
		"ack_total":          s.perSchema[beacon.FrameAck].Load(),
		"flight1_total":      s.perSchema[beacon.FrameFlight1].Load(),
		"flight2_total":      s.perSchema[beacon.FrameFlight2].Load(),
	}
}
