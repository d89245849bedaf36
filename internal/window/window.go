// Package window establishes the common time reference of a terminal group
// and the steady-state measurement window.
package window

import (
	"context"
	"math"
	"runtime"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tpccharness/internal/termlog"
	"tpccharness/pkg/timeutil"
)

type TermGroupParams struct {
	TermCount     int
	LogFilesValid []string

	EarliestStartTimeMS uint64
	LatestStartTimeMS   uint64
	SteadyBeginTimeMS   uint64
	SteadyEndTimeMS     uint64
}

// SteadyLengthMS returns the length of the steady window, 0 if degenerate.
func (p *TermGroupParams) SteadyLengthMS() uint64 {
	if p.SteadyBeginTimeMS > p.SteadyEndTimeMS {
		return 0
	}
	return p.SteadyEndTimeMS - p.SteadyBeginTimeMS
}

// InSteady reports whether ts lies within [begin, end).
func (p *TermGroupParams) InSteady(ts uint64) bool {
	return ts >= p.SteadyBeginTimeMS && ts < p.SteadyEndTimeMS
}

type Options struct {
	// Number of concurrent readers. Defaults to GOMAXPROCS.
	Workers int
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

type accumulator struct {
	earliest uint64
	latest   uint64
	valid    []int
}

// Analyze reads the first record of every log and computes the terminal group
// parameters. Logs without a readable first record are excluded.
func Analyze(
	ctx context.Context,
	paths []string,
	steadyBeginOffset, steadyLength time.Duration,
	opts Options,
) (TermGroupParams, error) {
	queue := make(chan int, len(paths))
	for i := range paths {
		queue <- i
	}
	close(queue)

	accs := make([]accumulator, opts.workers())
	eg, ctx := errgroup.WithContext(ctx)
	for w := range accs {
		acc := &accs[w]
		acc.earliest = math.MaxUint64
		eg.Go(func() error {
			for idx := range queue {
				if err := ctx.Err(); err != nil {
					return err
				}

				rec, err := termlog.FirstRecord(paths[idx])
				if err != nil {
					log.WithField("path", paths[idx]).WithError(err).Debug("log file excluded")
					continue
				}
				acc.earliest = min(acc.earliest, rec.TimeStarted)
				acc.latest = max(acc.latest, rec.TimeStarted)
				acc.valid = append(acc.valid, idx)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return TermGroupParams{}, err
	}

	earliest, latest := uint64(math.MaxUint64), uint64(0)
	var valid []int
	for _, acc := range accs {
		earliest = min(earliest, acc.earliest)
		latest = max(latest, acc.latest)
		valid = append(valid, acc.valid...)
	}
	if earliest > latest {
		earliest = latest
	}

	slices.Sort(valid)
	files := make([]string, len(valid))
	for i, idx := range valid {
		files[i] = paths[idx]
	}

	beginOffset, length := millis(steadyBeginOffset), millis(steadyLength)
	params := TermGroupParams{
		TermCount:           len(files),
		LogFilesValid:       files,
		EarliestStartTimeMS: earliest,
		LatestStartTimeMS:   latest,
		SteadyBeginTimeMS:   latest + beginOffset,
		SteadyEndTimeMS:     latest + beginOffset + length,
	}
	log.WithFields(log.Fields{
		"files":    len(paths),
		"valid":    params.TermCount,
		"earliest": timeutil.Millis(params.EarliestStartTimeMS).UTC(),
		"latest":   timeutil.Millis(params.LatestStartTimeMS).UTC(),
	}).Info("Terminal group analyzed")
	return params, nil
}

func millis(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d.Milliseconds())
}
