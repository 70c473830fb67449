package beacon

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flightRecord(t *testing.T) Record {
	t.Helper()
	frame := make([]byte, SchemaB.Length)
	frame[0], frame[1] = 0x12, 0x00
	rec, err := Decode(frame, &SchemaB)
	require.NoError(t, err)
	return rec
}

func TestEmitRecordEnvelope(t *testing.T) {
	at := time.Date(2020, 12, 24, 13, 5, 9, 0, time.UTC)
	doc := EmitRecord(flightRecord(t), at)

	keys := doc.Keys()
	require.GreaterOrEqual(t, len(keys), 5)
	assert.Equal(t, []string{"timestamp", "msgtype", "messagenum", "messagetotal", "eps_output_current_bcr"}, keys[:5])

	ts, _ := doc.Get("timestamp")
	assert.Equal(t, "2020-12-24_13-05-09", ts)
	msgType, _ := doc.Get("msgtype")
	assert.Equal(t, 3, msgType)
}

func TestEmitRecordWithoutTimestamp(t *testing.T) {
	doc := EmitRecord(flightRecord(t), time.Time{})
	_, ok := doc.Get("timestamp")
	assert.False(t, ok)
	assert.Equal(t, "msgtype", doc[0].Key)
}

func TestEmitRecordRawBytesAsHex(t *testing.T) {
	text := "Gator Nation Is Everywhere! From SwampSat II"
	frame := append([]byte(text), 0xbe, 0xef)
	rec, err := Decode(frame, &SchemaA)
	require.NoError(t, err)

	doc := EmitRecord(rec, time.Time{})
	msg, _ := doc.Get("message")
	assert.Equal(t, hex.EncodeToString([]byte(text)), msg)
	tail, _ := doc.Get("ack_reserved")
	assert.Equal(t, "beef", tail)
}

func TestDocumentJSONKeepsOrder(t *testing.T) {
	doc := Document{
		{Key: "zeta", Value: uint64(1)},
		{Key: "alpha", Value: int64(-2)},
		{Key: "mid", Value: "0a"},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":-2,"mid":"0a"}`, string(data))

	indented, err := json.MarshalIndent(doc, "", "    ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(indented), "{\n    \"zeta\": 1,"))
}

func TestDocumentCBOR(t *testing.T) {
	doc := EmitRecord(flightRecord(t), time.Time{})
	data, err := cbor.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Len(t, decoded, len(doc))
	assert.EqualValues(t, 18, decoded["eps_output_current_bcr"])
	assert.EqualValues(t, 3, decoded["msgtype"])
}

func TestDocumentCBORLargeMapHeader(t *testing.T) {
	doc := make(Document, 300)
	for i := range doc {
		doc[i] = Entry{Key: strings.Repeat("k", i+1), Value: i}
	}
	data, err := doc.MarshalCBOR()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xb9, 0x01, 0x2c}, data[:3])

	var decoded map[string]int
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 300)
}

func TestEmitImage(t *testing.T) {
	assert.Equal(t, 0, EmitImage(nil).Len())
	assert.NotNil(t, EmitImage(nil).Bytes)
	assert.Equal(t, []byte{1, 2}, EmitImage([]byte{1, 2}).Bytes)
}
