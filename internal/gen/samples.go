package gen

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"tpccharness/api/reportapi"
	"tpccharness/internal/termlog"
	"tpccharness/pkg/prop"
)

// mean execution times of the synthetic transactions
func sampleTxTime(t reportapi.TxType) time.Duration {
	switch t {
	case reportapi.NewOrder:
		return 250 * time.Millisecond
	case reportapi.Payment:
		return 120 * time.Millisecond
	case reportapi.OrderStatus:
		return 80 * time.Millisecond
	case reportapi.Delivery:
		return 600 * time.Millisecond
	case reportapi.StockLevel:
		return 400 * time.Millisecond
	default:
		panic(fmt.Errorf("unknown transaction type %v", t))
	}
}

type SampleOptions struct {
	Dir        string
	Terminals  int
	Iterations int
	Start      time.Time

	// Delay between consecutive terminal starts.
	Stagger time.Duration

	// Scales think and keying times; 1 produces TPC-C timings.
	TimeScale float64

	Seed uint64
}

// WriteSampleLogs writes a synthetic log per terminal and returns their paths.
func WriteSampleLogs(opts SampleOptions) ([]string, error) {
	if opts.Terminals <= 0 {
		return nil, fmt.Errorf("terminal count must be more than 0")
	}
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", opts.Dir, err)
	}

	r := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x2545f4914f6cdd1d))
	mix := prop.WeightedOf(reportapi.AllTxTypes[:], func(i int) float64 {
		if reportapi.AllTxTypes[i] == reportapi.NewOrder {
			return 0.45
		}
		return max(profile(reportapi.AllTxTypes[i]).share, 0.04)
	})

	files := make([]string, 0, opts.Terminals)
	for term := range opts.Terminals {
		path := filepath.Join(opts.Dir, fmt.Sprintf("term_%04d.csv", term+1))
		start := opts.Start.Add(time.Duration(term) * opts.Stagger)
		if err := writeSampleLog(path, r, &mix, start, opts); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	log.WithField("files", len(files)).Info("Sample logs written")
	return files, nil
}

func writeSampleLog(
	path string,
	r *rand.Rand,
	mix *prop.WeightedValue[reportapi.TxType],
	start time.Time,
	opts SampleOptions,
) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create log %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close log %s: %w", path, cerr)
		}
	}()

	w, err := termlog.NewWriter(f)
	if err != nil {
		return fmt.Errorf("write log %s: %w", path, err)
	}

	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * opts.TimeScale)
	}

	now := uint64(start.UnixMilli())
	for range opts.Iterations {
		t := mix.Rand(r)
		p := profile(t)

		txTime := prop.UniformJitterDuration(sampleTxTime(t), sampleTxTime(t)/2).Rand(r)
		think := prop.ExponentialDuration(scale(p.thinkTime), scale(10*p.thinkTime)).Rand(r)
		keying := scale(p.keyTime)
		running := keying + txTime + think

		rec := termlog.Record{
			TimeStarted:   now,
			Type:          t,
			RunningTime:   uint32(running.Milliseconds()),
			TxRunningTime: uint32(txTime.Milliseconds()),
			ThinkTimeMS:   uint32(think.Milliseconds()),
			IsRollback:    prop.Bool(p.rbk).Rand(r),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write log %s: %w", path, err)
		}
		now += uint64(running.Milliseconds())
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("write log %s: %w", path, err)
	}
	return nil
}
