package beacon

import (
	"encoding/binary"
	"sort"
)

// PayloadRange is the part of an image-mode frame that carries JPEG bytes.
type PayloadRange struct {
	Offset int
	Length int
}

func (r PayloadRange) End() int { return r.Offset + r.Length }

const (
	ImageHeaderSize  = 8
	ImageChunkSize   = 248
	ImagePacketSize  = ImageHeaderSize + ImageChunkSize
	imageTotalOffset = 0
	imageIndexOffset = 4

	// MaxImagePackets bounds the announced image size (4 MiB of chunks).
	// Headers announcing more are counted as invalid.
	MaxImagePackets = 1 << 14

	maxListedMissing = 64
)

var DefaultPayloadRange = PayloadRange{Offset: ImageHeaderSize, Length: ImageChunkSize}

// ImageAccumulator collects image chunks in the order frames are appended.
// It is a value: Append returns the extended accumulator and leaves the
// receiver untouched. Accumulators derived from the same parent share their
// common prefix.
type ImageAccumulator struct {
	rng  PayloadRange
	last *chunkNode
	n    int
	size int
}

type chunkNode struct {
	data []byte
	prev *chunkNode
}

func NewImageAccumulator(rng PayloadRange) ImageAccumulator {
	return ImageAccumulator{rng: rng}
}

func (a ImageAccumulator) Range() PayloadRange { return a.rng }

func (a ImageAccumulator) Chunks() int { return a.n }

func (a ImageAccumulator) Append(frame []byte) (ImageAccumulator, error) {
	if a.rng.Offset < 0 || a.rng.Length < 0 || len(frame) < a.rng.End() {
		return a, &ShortFrameError{Length: len(frame), Range: a.rng}
	}
	chunk := make([]byte, a.rng.Length)
	copy(chunk, frame[a.rng.Offset:a.rng.End()])
	return ImageAccumulator{
		rng:  a.rng,
		last: &chunkNode{data: chunk, prev: a.last},
		n:    a.n + 1,
		size: a.size + len(chunk),
	}, nil
}

// Finalize concatenates all chunks. An empty accumulator yields an empty
// stream.
func (a ImageAccumulator) Finalize() []byte {
	out := make([]byte, a.size)
	pos := a.size
	for node := a.last; node != nil; node = node.prev {
		pos -= len(node.data)
		copy(out[pos:], node.data)
	}
	return out
}

// ImageHeader is the sequencing prefix of a 256-byte image packet.
type ImageHeader struct {
	TotalBytes uint32
	ByteOffset uint32
}

func ParseImageHeader(frame []byte) (ImageHeader, error) {
	if len(frame) < ImageHeaderSize {
		return ImageHeader{}, &ShortFrameError{Length: len(frame), Range: PayloadRange{Offset: 0, Length: ImageHeaderSize}}
	}
	return ImageHeader{
		TotalBytes: binary.LittleEndian.Uint32(frame[imageTotalOffset : imageTotalOffset+4]),
		ByteOffset: binary.LittleEndian.Uint32(frame[imageIndexOffset : imageIndexOffset+4]),
	}, nil
}

// Packets is the number of chunks the whole image spans.
func (h ImageHeader) Packets() int {
	return int((uint64(h.TotalBytes) + ImageChunkSize - 1) / ImageChunkSize)
}

// Plausible reports whether the announced total is non-zero and within
// MaxImagePackets.
func (h ImageHeader) Plausible() bool {
	p := h.Packets()
	return p > 0 && p <= MaxImagePackets
}

// Index is the chunk position of this packet; ok is false when the offset
// is not chunk aligned or lies past the end of the image.
func (h ImageHeader) Index() (int, bool) {
	if h.ByteOffset%ImageChunkSize != 0 {
		return 0, false
	}
	idx := int(h.ByteOffset / ImageChunkSize)
	if idx >= h.Packets() {
		return idx, false
	}
	return idx, true
}

// SequenceReport summarizes packet sequencing. Missing lists at most the
// first 64 absent indices; MissingCount is the full count.
type SequenceReport struct {
	Expected     int
	Received     int
	Missing      []int
	MissingCount int
	Duplicates   []int
	Invalid      int
	Reordered    bool
}

func (r SequenceReport) Complete() bool {
	return r.Expected > 0 && r.MissingCount == 0 && len(r.Duplicates) == 0 && r.Invalid == 0 && !r.Reordered
}

// CheckSequence compares packet headers, in supply order, against the
// transmission order they announce. The expected packet count is the most
// common plausible announced total.
func CheckSequence(headers []ImageHeader) SequenceReport {
	report := SequenceReport{Received: len(headers)}
	if len(headers) == 0 {
		return report
	}

	totals := make(map[uint32]int)
	for _, h := range headers {
		if h.Plausible() {
			totals[h.TotalBytes]++
		}
	}
	var total uint32
	best := 0
	for t, n := range totals {
		if n > best || (n == best && t < total) {
			total, best = t, n
		}
	}
	report.Expected = ImageHeader{TotalBytes: total}.Packets()

	seen := make(map[int]bool, len(headers))
	dups := make(map[int]bool)
	last := -1
	for _, h := range headers {
		idx, ok := h.Index()
		if !ok || best == 0 || h.TotalBytes != total {
			report.Invalid++
			continue
		}
		if seen[idx] {
			dups[idx] = true
		}
		seen[idx] = true
		if idx < last {
			report.Reordered = true
		}
		last = idx
	}
	for i := 0; i < report.Expected; i++ {
		if seen[i] {
			continue
		}
		report.MissingCount++
		if len(report.Missing) < maxListedMissing {
			report.Missing = append(report.Missing, i)
		}
	}
	for idx := range dups {
		report.Duplicates = append(report.Duplicates, idx)
	}
	sort.Ints(report.Duplicates)
	return report
}
