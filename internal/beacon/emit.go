package beacon

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const TimestampLayout = "2006-01-02_15-04-05"

type Entry struct {
	Key   string
	Value any
}

// Document is an ordered field mapping. It marshals to JSON and CBOR maps
// with keys in insertion order.
type Document []Entry

func (d Document) Get(key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func (d Document) Keys() []string {
	keys := make([]string, len(d))
	for i, e := range d {
		keys[i] = e.Key
	}
	return keys
}

func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d Document) MarshalCBOR() ([]byte, error) {
	buf := bytes.NewBuffer(cborMapHeader(len(d)))
	for _, e := range d {
		key, err := cbor.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := cbor.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.Write(value)
	}
	return buf.Bytes(), nil
}

func cborMapHeader(n int) []byte {
	const major = 5 << 5
	switch {
	case n < 24:
		return []byte{major | byte(n)}
	case n <= 0xff:
		return []byte{major | 24, byte(n)}
	case n <= 0xffff:
		h := []byte{major | 25, 0, 0}
		binary.BigEndian.PutUint16(h[1:], uint16(n))
		return h
	default:
		h := []byte{major | 26, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(h[1:], uint32(n))
		return h
	}
}

// EmitRecord turns a decoded record into its output document: the beacon
// envelope followed by every value. The timestamp is omitted when at is zero.
func EmitRecord(rec Record, at time.Time) Document {
	doc := make(Document, 0, len(rec.Values)+4)
	if !at.IsZero() {
		doc = append(doc, Entry{Key: "timestamp", Value: at.Format(TimestampLayout)})
	}
	if rec.Schema != nil {
		doc = append(doc,
			Entry{Key: "msgtype", Value: rec.Schema.MsgType},
			Entry{Key: "messagenum", Value: rec.Schema.MessageNum},
			Entry{Key: "messagetotal", Value: rec.Schema.MessageTotal},
		)
	}
	for _, v := range rec.Values {
		switch v.Kind {
		case KindUint:
			doc = append(doc, Entry{Key: v.Name, Value: v.Uint})
		case KindInt:
			doc = append(doc, Entry{Key: v.Name, Value: v.Int})
		default:
			doc = append(doc, Entry{Key: v.Name, Value: hex.EncodeToString(v.Raw)})
		}
	}
	return doc
}

// ImagePayload is reconstructed JPEG data with no field structure.
type ImagePayload struct {
	Bytes []byte
}

func (p ImagePayload) Len() int { return len(p.Bytes) }

func EmitImage(data []byte) ImagePayload {
	if data == nil {
		data = []byte{}
	}
	return ImagePayload{Bytes: data}
}
