package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"ss2beacon-go/internal/beacon"
)

const (
	rawLogMagic      = "SS2RAW01"
	rawHeaderSize    = 12
	maxRawRecordSize = 1 << 20
)

var ErrBadMagic = errors.New("not a beacon raw log")

// Capture is one raw input line as it was received, before decoding.
type Capture struct {
	RunID string `cbor:"run_id"`
	Line  string `cbor:"line"`
	Image bool   `cbor:"image,omitempty"`
	Frame []byte `cbor:"frame,omitempty"`
}

// NewCapture records line as received. Frame holds the normalized bytes
// when line normalizes cleanly.
func NewCapture(runID, line, delimiter string, image bool) Capture {
	c := Capture{RunID: runID, Line: line, Image: image}
	if frame, err := beacon.Normalize(line, delimiter); err == nil {
		c.Frame = frame
	}
	return c
}

// Bytes returns the captured frame, normalizing Line when no frame was
// stored.
func (c Capture) Bytes(delimiter string) ([]byte, error) {
	if len(c.Frame) > 0 {
		return c.Frame, nil
	}
	return beacon.Normalize(c.Line, delimiter)
}

type RawRecord struct {
	Time    time.Time
	Capture Capture
}

// RawLogWriter appends captures to a binary log: the magic string, then per
// record a 12-byte header (unix nanos, payload length) and a CBOR payload.
type RawLogWriter struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
	now  func() time.Time
}

func NewRawLogWriter(outputDir string, prefix string) (*RawLogWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.bin", timestamp, prefix))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 64*1024)
	if _, err := w.WriteString(rawLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &RawLogWriter{
		f:    f,
		w:    w,
		path: filename,
		now:  time.Now,
	}, nil
}

func (r *RawLogWriter) Path() string { return r.path }

func (r *RawLogWriter) Record(c Capture) error {
	payload, err := cbor.Marshal(c)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("raw log writer is closed")
	}
	var header [rawHeaderSize]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(r.now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := r.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.w.Write(payload); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *RawLogWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		_ = r.f.Close()
		r.w = nil
		return err
	}
	err := r.f.Close()
	r.w = nil
	return err
}

// ReadRawLog calls fn for every record in a raw log. A header cut short by
// an interrupted write ends the log; a truncated payload is an error.
func ReadRawLog(rd io.Reader, fn func(RawRecord) error) error {
	magic := make([]byte, len(rawLogMagic))
	if _, err := io.ReadFull(rd, magic); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != rawLogMagic {
		return fmt.Errorf("%w: magic %q", ErrBadMagic, magic)
	}

	br := bufio.NewReader(rd)
	for n := 0; ; n++ {
		var header [rawHeaderSize]byte
		if _, err := io.ReadFull(br, header[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("record %d header: %w", n, err)
		}
		ts := int64(binary.LittleEndian.Uint64(header[:8]))
		size := binary.LittleEndian.Uint32(header[8:12])
		if size > maxRawRecordSize {
			return fmt.Errorf("record %d: payload size %d too large", n, size)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			return fmt.Errorf("record %d payload: %w", n, err)
		}
		var c Capture
		if err := cbor.Unmarshal(payload, &c); err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		if err := fn(RawRecord{Time: time.Unix(0, ts), Capture: c}); err != nil {
			return err
		}
	}
}
