package report

import (
	"fmt"
	"time"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"tpccharness/api/reportapi"
	"tpccharness/internal/termlog"
	"tpccharness/internal/window"
	"tpccharness/pkg/stats"
)

const (
	// Response and think times are sampled at 100ms.
	TxSamplingIntervalMS = 100

	// Completed transactions are counted in 30s buckets.
	TxCountSamplingIntervalMS = 30 * 1000

	TpmSamplingIntervalMS = 60 * 1000

	TxRtIntervalCount = 20
	TtIntervalCount   = 20

	Percentile90 = 90.0

	// Completion times are tracked up to two full 32 bit durations past a
	// start offset of the same size.
	maxCompletionMS = 3 * stats.MaxDuration32
)

type State int

const (
	StateRunning State = iota
	StateDraining
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// txStats accumulates the records of one transaction type.
type txStats struct {
	txRT        *stats.Histogram // steady window only
	thinkTime   *stats.Histogram // steady window only
	txCount     *stats.Histogram // whole run, by completion time
	steadyCount uint64
	rbkCount    uint64
}

func newTxStats() *txStats {
	return &txStats{
		txRT:      stats.NewHistogram(TxSamplingIntervalMS, stats.MaxDuration32),
		thinkTime: stats.NewHistogram(TxSamplingIntervalMS, stats.MaxDuration32),
		txCount:   stats.NewHistogram(TxCountSamplingIntervalMS, maxCompletionMS),
	}
}

// Aggregator classifies records against the steady window and accumulates
// per transaction type statistics. An Aggregator is owned by a single
// goroutine.
type Aggregator struct {
	params window.TermGroupParams
	state  State
	stats  [reportapi.NumTxTypes]*txStats
	total  uint64
}

func NewAggregator(params window.TermGroupParams) *Aggregator {
	a := &Aggregator{params: params}
	for i := range a.stats {
		a.stats[i] = newTxStats()
	}
	return a
}

func (a *Aggregator) State() State { return a.state }

// Add accumulates a single record. A record is either fully accounted or,
// on error, not at all.
func (a *Aggregator) Add(rec termlog.Record) error {
	if a.state != StateRunning {
		panic(fmt.Errorf("aggregator: record added in state %v", a.state))
	}

	st := a.stats[rec.Type.Index()]
	finish := rec.CycleFinishTime()

	var sinceStart uint64
	if finish > a.params.EarliestStartTimeMS {
		sinceStart = finish - a.params.EarliestStartTimeMS
	}
	if err := st.txCount.Record(stats.Quantize(sinceStart, TxCountSamplingIntervalMS)); err != nil {
		return fmt.Errorf("completion time of %v record started at %d: %w", rec.Type, rec.TimeStarted, err)
	}
	a.total++

	if a.params.InSteady(rec.TimeStarted) && a.params.InSteady(finish) {
		// 32 bit durations always fit the response and think time histograms
		if err := st.txRT.Record(stats.Quantize(uint64(rec.TxRunningTime), TxSamplingIntervalMS)); err != nil {
			panic(err)
		}
		if err := st.thinkTime.Record(stats.Quantize(uint64(rec.ThinkTimeMS), TxSamplingIntervalMS)); err != nil {
			panic(err)
		}
		st.steadyCount++
		if rec.IsRollback {
			st.rbkCount++
		}
	}
	return nil
}

// Consume adds every record received until the channel is closed. The
// channel is always drained; the first Add error is returned.
func (a *Aggregator) Consume(records <-chan termlog.Record) error {
	var err error
	for rec := range records {
		if err != nil {
			continue
		}
		err = a.Add(rec)
	}
	a.state = StateDraining
	log.WithField("records", a.total).Info("Done reading files")
	return err
}

// Finalize computes the derived series and returns the report document.
func (a *Aggregator) Finalize() reportapi.ReportingData {
	if a.state == StateRunning {
		a.state = StateDraining
	}
	if a.state != StateDraining {
		panic(fmt.Errorf("aggregator: finalize in state %v", a.state))
	}
	a.state = StateFinalizing

	data := a.buildReport()
	data.SchemaVersion = reportapi.SchemaVersion
	data.RunID = xid.New().String()
	data.GeneratedAt = time.Now().UTC()

	a.state = StateDone
	return data
}
