package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"ss2beacon-go/internal/beacon"
	"ss2beacon-go/internal/config"
)

// EncodeDocument writes one document in the given output format. JSON is
// indented four spaces and newline terminated; CBOR is a bare data item so
// consecutive documents form a CBOR sequence.
func EncodeDocument(w io.Writer, doc beacon.Document, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case config.FormatJSON, "":
		data, err = json.MarshalIndent(doc, "", "    ")
		data = append(data, '\n')
	case config.FormatCBOR:
		data, err = cbor.Marshal(doc)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// AppendDocuments appends docs to the file at path, creating it and its
// parent directories as needed.
func AppendDocuments(path string, docs []beacon.Document, format string) error {
	var buf bytes.Buffer
	for _, doc := range docs {
		if err := EncodeDocument(&buf, doc, format); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteImage writes a reassembled image, replacing any previous file.
func WriteImage(path string, img beacon.ImagePayload) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, img.Bytes, 0o644)
}
