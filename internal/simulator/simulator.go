package simulator

import (
	"context"
	"encoding/binary"
	"math/rand"
	"time"

	"ss2beacon-go/internal/beacon"
)

const Greeting = "Gator Nation Is Everywhere! From SwampSat II"

// Generator produces synthetic beacon frames. It is not safe for
// concurrent use.
type Generator struct {
	rng *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Frame returns a frame of the given telemetry type with random field
// contents. Ack frames carry the mission greeting.
func (g *Generator) Frame(ft beacon.FrameType) []byte {
	s := ft.Schema()
	if s == nil {
		return nil
	}
	frame := make([]byte, s.Length)
	g.rng.Read(frame)
	if ft == beacon.FrameAck {
		copy(frame, Greeting)
	}
	return frame
}

// Line returns a hex line for the next telemetry type in a fixed rotation.
func (g *Generator) Line(n int) string {
	types := []beacon.FrameType{beacon.FrameAck, beacon.FrameFlight1, beacon.FrameFlight2}
	return beacon.Format(g.Frame(types[n%len(types)]), "")
}

// Image returns random bytes framed like a JPEG stream.
func (g *Generator) Image(size int) []byte {
	if size < 4 {
		size = 4
	}
	img := make([]byte, size)
	g.rng.Read(img)
	copy(img, []byte{0xff, 0xd8})
	copy(img[size-2:], []byte{0xff, 0xd9})
	return img
}

// ImagePackets splits data into 256-byte image packets in transmission
// order. The final chunk is zero padded.
func ImagePackets(data []byte) [][]byte {
	var packets [][]byte
	for off := 0; off < len(data); off += beacon.ImageChunkSize {
		packet := make([]byte, beacon.ImagePacketSize)
		binary.LittleEndian.PutUint32(packet[0:4], uint32(len(data)))
		binary.LittleEndian.PutUint32(packet[4:8], uint32(off))
		copy(packet[beacon.ImageHeaderSize:], data[off:min(off+beacon.ImageChunkSize, len(data))])
		packets = append(packets, packet)
	}
	return packets
}

// Stream emits telemetry hex lines at rate lines per second until ctx is
// done.
func Stream(ctx context.Context, rate float64, seed int64) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		if rate <= 0 {
			rate = 1
		}
		ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
		defer ticker.Stop()

		gen := New(seed)
		for n := 0; ; n++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			select {
			case <-ctx.Done():
				return
			case out <- gen.Line(n):
			}
		}
	}()
	return out
}
