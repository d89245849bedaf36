// Package ingest streams the records of many terminal logs to a single
// consumer.
package ingest

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"tpccharness/internal/termlog"
)

const defaultBuffer = 4096

type Options struct {
	// Number of concurrent file readers. Defaults to GOMAXPROCS.
	Workers int

	// Capacity of the record channel.
	Buffer int
}

// Stream reads every record of every log in paths and delivers them on the
// returned channel. Each file is read by a single worker from start to end,
// so records of one file arrive in file order; records of different files
// interleave.
//
// The channel is closed once all workers have finished. The consumer must
// drain the channel and then call wait, which reports the first read or
// decode error. A malformed row aborts the whole stream.
func Stream(ctx context.Context, paths []string, opts Options) (<-chan termlog.Record, func() error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	queue := make(chan string, len(paths))
	for _, path := range paths {
		queue <- path
	}
	close(queue)

	records := make(chan termlog.Record, buffer)
	eg, ctx := errgroup.WithContext(ctx)
	for range workers {
		eg.Go(func() error {
			for path := range queue {
				if err := ctx.Err(); err != nil {
					return err
				}

				err := termlog.ForEach(path, func(rec termlog.Record) error {
					select {
					case records <- rec:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				})
				if err != nil {
					return fmt.Errorf("read log %s: %w", path, err)
				}
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		err := eg.Wait()
		close(records)
		done <- err
	}()

	return records, func() error {
		return <-done
	}
}
