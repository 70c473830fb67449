package processing

import (
	"context"
	"sync"
)

// Stream decodes lines from in on opts.Workers goroutines until in closes or
// ctx is done. Index is the arrival order of the line; with more than one
// worker results may be emitted out of that order.
func Stream(ctx context.Context, in <-chan string, opts Options) <-chan Result {
	type job struct {
		index int
		line  string
	}
	jobs := make(chan job, 128)
	out := make(chan Result, 128)

	go func() {
		defer close(jobs)
		n := 0
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-in:
				if !ok {
					return
				}
				select {
				case <-ctx.Done():
					return
				case jobs <- job{index: n, line: line}:
				}
				n++
			}
		}
	}()

	var wg sync.WaitGroup
	workers := opts.workers()
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := DecodeLine(j.line, opts.Delimiter)
				res.Index = j.index
				opts.Stats.observe(res)
				select {
				case <-ctx.Done():
					return
				case out <- res:
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
