package processing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ss2beacon-go/internal/beacon"
)

// ImageResult is a reassembled image plus what was learned about the packet
// sequence on the way.
type ImageResult struct {
	Bytes    []byte
	Chunks   int
	Skipped  int
	Sequence beacon.SequenceReport
}

// AssembleImage normalizes lines concurrently and appends their payloads in
// line order. Chunks are never reordered; the sequence report only describes
// gaps and duplicates found in the packet headers.
func AssembleImage(ctx context.Context, lines []string, opts Options) (ImageResult, error) {
	frames := make([][]byte, len(lines))
	errs := make([]error, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, line := range lines {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			frames[i], errs[i] = beacon.Normalize(line, opts.Delimiter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ImageResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ImageResult{}, err
	}

	rng := opts.ImageRange
	if rng == (beacon.PayloadRange{}) {
		rng = beacon.DefaultPayloadRange
	}
	acc := beacon.NewImageAccumulator(rng)
	var (
		headers []beacon.ImageHeader
		skipped int
	)
	for i, frame := range frames {
		err := errs[i]
		if err == nil {
			acc, err = acc.Append(frame)
		}
		if err != nil {
			if opts.StopOnError {
				return ImageResult{}, fmt.Errorf("line %d: %w", i+1, err)
			}
			skipped++
			opts.Stats.fail()
			log.Debug().Int("line", i).Err(err).Msg("image packet skipped")
			continue
		}
		opts.Stats.chunk()
		if h, err := beacon.ParseImageHeader(frame); err == nil {
			headers = append(headers, h)
		}
	}

	return ImageResult{
		Bytes:    acc.Finalize(),
		Chunks:   acc.Chunks(),
		Skipped:  skipped,
		Sequence: beacon.CheckSequence(headers),
	}, nil
}
