// Package report turns terminal logs into a throughput/latency report.
package report

import (
	"context"
	"time"

	"tpccharness/api/reportapi"
	"tpccharness/internal/ingest"
	"tpccharness/internal/window"
)

type Config struct {
	// Time after the last terminal start before measurement begins.
	SteadyBeginOffset time.Duration

	// Length of the measurement window.
	SteadyLength time.Duration

	// Number of concurrent log readers. Defaults to GOMAXPROCS.
	Workers int

	// Capacity of the channel between readers and the aggregator.
	Buffer int
}

// Build analyzes the terminal group of paths and aggregates every record of
// the valid logs.
func Build(ctx context.Context, paths []string, cfg Config) (reportapi.ReportingData, error) {
	params, err := window.Analyze(ctx, paths, cfg.SteadyBeginOffset, cfg.SteadyLength, window.Options{
		Workers: cfg.Workers,
	})
	if err != nil {
		return reportapi.ReportingData{}, err
	}

	agg := NewAggregator(params)
	records, wait := ingest.Stream(ctx, params.LogFilesValid, ingest.Options{
		Workers: cfg.Workers,
		Buffer:  cfg.Buffer,
	})
	consumeErr := agg.Consume(records)
	if err := wait(); err != nil {
		return reportapi.ReportingData{}, err
	}
	if consumeErr != nil {
		return reportapi.ReportingData{}, consumeErr
	}
	return agg.Finalize(), nil
}

// Generate builds a report from paths and writes it to dir. In append mode
// the prior report in dir is validated before any log is read.
func Generate(ctx context.Context, paths []string, dir string, mode Mode, cfg Config) (reportapi.ReportingData, error) {
	w := Writer{Dir: dir, Mode: mode}
	if mode == ModeAppend {
		prior, err := LoadPrior(dir)
		if err != nil {
			return reportapi.ReportingData{}, err
		}
		w.Prior = prior
	}

	data, err := Build(ctx, paths, cfg)
	if err != nil {
		return data, err
	}
	return w.Write(data)
}
