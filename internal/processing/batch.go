package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ss2beacon-go/internal/beacon"
)

type Options struct {
	Delimiter   string
	Workers     int
	StopOnError bool
	ImageRange  beacon.PayloadRange
	Stats       *Stats
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// Result is the outcome for one input line. Index is the line's position in
// the batch.
type Result struct {
	Index  int
	Line   string
	Frame  []byte
	Type   beacon.FrameType
	Record beacon.Record
	Err    error
}

func (r Result) OK() bool { return r.Err == nil }

// Document emits the decoded record stamped with at.
func (r Result) Document(at time.Time) beacon.Document {
	return beacon.EmitRecord(r.Record, at)
}

// DecodeLine runs one telemetry line through normalize, classify and decode.
func DecodeLine(line, delimiter string) Result {
	res := Result{Line: line}
	frame, err := beacon.Normalize(line, delimiter)
	if err != nil {
		res.Err = err
		return res
	}
	res.Frame = frame
	ft, err := beacon.Classify(frame, false)
	if err != nil {
		res.Type = ft
		res.Err = err
		return res
	}
	res.Type = ft
	res.Record, res.Err = beacon.Decode(frame, ft.Schema())
	return res
}

// DecodeBatch decodes lines on a bounded worker pool. Results keep input
// order. With StopOnError the batch ends at the first failing line and the
// results before it are returned along with the error.
func DecodeBatch(ctx context.Context, lines []string, opts Options) ([]Result, error) {
	results := make([]Result, len(lines))
	done := make([]bool, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, line := range lines {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := DecodeLine(line, opts.Delimiter)
			res.Index = i
			results[i] = res
			done[i] = true
			opts.Stats.observe(res)
			if res.Err != nil {
				log.Debug().Int("line", i).Err(res.Err).Msg("decode failed")
				if opts.StopOnError {
					return res.Err
				}
			}
			return nil
		})
	}
	groupErr := g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.StopOnError && groupErr != nil {
		for i, res := range results {
			if done[i] && res.Err != nil {
				return results[:i], fmt.Errorf("line %d: %w", i+1, res.Err)
			}
		}
	}
	return results, nil
}
