package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	TypeKSS   = ".kss"
	TypePutty = ".log"

	callsignHeader = "aea468aa8c40e0ae9664b092886103f0"
	kissPrefix     = "c000"
	kissSuffix     = "c0"

	maxLineBytes = 1 << 20
)

var (
	ErrUnsupportedFileType = errors.New("log file extension must be one of .txt, .log, .kss")

	kssMarker = regexp.MustCompile(`\d{1,3}>`)
)

// FileType maps an explicit type or a file extension to TypeKSS or TypePutty.
func FileType(explicit, path string) (string, error) {
	raw := explicit
	if raw == "" {
		raw = filepath.Ext(path)
	}
	switch t := strings.ToLower(strings.TrimSpace(raw)); {
	case strings.Contains(t, "kss"):
		return TypeKSS, nil
	case strings.Contains(t, "log"), strings.Contains(t, "txt"):
		return TypePutty, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, raw)
	}
}

// ReadFile reads beacon hex lines from a capture log. When the reader for
// the detected type finds nothing, the other format is tried. Occurrences of
// delimiter are stripped from every line.
func ReadFile(path, fileType, delimiter string) ([]string, error) {
	kind, err := FileType(fileType, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	primary, fallback := ReadPutty, ReadKSS
	other := TypeKSS
	if kind == TypeKSS {
		primary, fallback = ReadKSS, ReadPutty
		other = TypePutty
	}

	lines, err := primary(bytes.NewReader(data), delimiter)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(lines) > 0 {
		return lines, nil
	}
	lines, err = fallback(bytes.NewReader(data), delimiter)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(lines) > 0 {
		log.Info().Str("path", path).Str("format", other).Msg("no packets in declared format, switched readers")
	}
	return lines, nil
}

// ReadPutty keeps every non-empty line made only of hex digits once
// whitespace and delimiter are removed.
func ReadPutty(r io.Reader, delimiter string) ([]string, error) {
	var out []string
	err := eachLine(r, func(line string, ok bool) {
		if !ok {
			return
		}
		line = squash(line, delimiter)
		if line != "" && isHex(line) {
			out = append(out, line)
		}
	})
	return out, err
}

// ReadKSS collects KISS packets from a terminal capture. Consecutive marked
// lines form one packet.
func ReadKSS(r io.Reader, delimiter string) ([]string, error) {
	var (
		out    []string
		packet strings.Builder
	)
	flush := func() {
		if packet.Len() > 0 {
			out = append(out, unwrapKISS(packet.String()))
			packet.Reset()
		}
	}
	err := eachLine(r, func(line string, ok bool) {
		if !ok {
			flush()
			return
		}
		line = squash(line, "")
		loc := kssMarker.FindStringIndex(line)
		if loc == nil {
			flush()
			return
		}
		packet.WriteString(squash(line[loc[1]:], delimiter))
	})
	flush()
	return out, err
}

// Stream emits beacon lines from r until EOF or ctx is done. Lines that are
// not plain hex after removing delimiter are skipped.
func Stream(ctx context.Context, r io.Reader, delimiter string) <-chan string {
	out := make(chan string, 128)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		skipped := 0
		for scanner.Scan() {
			line := squash(scanner.Text(), delimiter)
			if line == "" {
				continue
			}
			if !isHex(line) {
				skipped++
				log.Debug().Int("skipped", skipped).Msg("ingest ignoring non-hex line")
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- line:
			}
		}
		if err := scanner.Err(); err != nil {
			log.Error().Err(err).Msg("ingest read error")
		}
	}()
	return out
}

func eachLine(r io.Reader, fn func(line string, ok bool)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if !utf8.Valid(raw) {
			fn("", false)
			continue
		}
		fn(string(raw), true)
	}
	return scanner.Err()
}

func unwrapKISS(packet string) string {
	if strings.HasPrefix(packet, kissPrefix) && strings.HasSuffix(packet, kissSuffix) &&
		len(packet) >= len(kissPrefix)+len(kissSuffix) {
		packet = packet[len(kissPrefix) : len(packet)-len(kissSuffix)]
	}
	if _, after, found := strings.Cut(packet, callsignHeader); found {
		// A repeated header ends the payload.
		packet, _, _ = strings.Cut(after, callsignHeader)
	}
	return packet
}

func squash(line, delimiter string) string {
	if delimiter != "" {
		line = strings.ReplaceAll(line, delimiter, "")
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, line)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
