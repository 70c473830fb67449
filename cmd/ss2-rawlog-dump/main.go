package main

import (
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"ss2beacon-go/internal/beacon"
	"ss2beacon-go/internal/config"
	"ss2beacon-go/internal/logging"
	"ss2beacon-go/internal/output"
	"ss2beacon-go/internal/processing"
)

func main() {
	var (
		path      = flag.String("path", "", "Path to raw capture .bin file")
		limit     = flag.Int("limit", 0, "Number of records to dump (0 for all)")
		delimiter = flag.String("d", "", "Byte delimiter to strip from captured lines")
		format    = flag.String("format", config.FormatJSON, "Output format for decoded documents (json or cbor)")
	)
	flag.Parse()
	logging.Init("ss2-rawlog-dump")

	if *path == "" {
		log.Fatal().Msg("path is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("open rawlog")
	}
	defer f.Close()

	n, err := dump(f, os.Stdout, *limit, *delimiter, *format)
	if err != nil {
		log.Fatal().Err(err).Int("records", n).Msg("dump rawlog")
	}
	log.Info().Int("records", n).Msg("done")
}

var errLimit = errors.New("record limit reached")

// dump re-decodes every captured line and writes the resulting documents,
// stamped with the capture time, to w.
func dump(r io.Reader, w io.Writer, limit int, delimiter, format string) (int, error) {
	count := 0
	err := output.ReadRawLog(r, func(rec output.RawRecord) error {
		if limit > 0 && count >= limit {
			return errLimit
		}
		count++
		c := rec.Capture
		if c.Image {
			frame, err := c.Bytes(delimiter)
			if err != nil {
				log.Warn().Int("record", count).Err(err).Msg("image packet")
				return nil
			}
			h, err := beacon.ParseImageHeader(frame)
			if err != nil {
				log.Warn().Int("record", count).Err(err).Msg("image packet")
				return nil
			}
			log.Info().
				Int("record", count).
				Str("run_id", c.RunID).
				Uint32("total_bytes", h.TotalBytes).
				Uint32("byte_offset", h.ByteOffset).
				Msg("image packet")
			return nil
		}

		res := processing.DecodeLine(c.Line, delimiter)
		if res.Err != nil {
			log.Warn().
				Int("record", count).
				Str("run_id", c.RunID).
				Time("captured", rec.Time).
				Err(res.Err).
				Msg("undecodable line")
			return nil
		}
		log.Debug().Int("record", count).Str("captured", rec.Time.Format(time.RFC3339Nano)).Msg("decoded")
		return output.EncodeDocument(w, res.Document(rec.Time), format)
	})
	if errors.Is(err, errLimit) {
		err = nil
	}
	return count, err
}
