package report

import (
	"time"

	log "github.com/sirupsen/logrus"

	"tpccharness/api/reportapi"
	"tpccharness/pkg/stats"
)

// TPMC converts a steady window transaction count into transactions per
// minute. Windows not longer than one minute count as a single minute.
func TPMC(count, steadyLengthMS uint64) uint64 {
	if steadyLengthMS > TpmSamplingIntervalMS {
		return uint64(float64(count) / (float64(steadyLengthMS) / TpmSamplingIntervalMS))
	}
	return uint64(float64(count) / (TpmSamplingIntervalMS / 1000))
}

// bucketSeries splits (0, n*width] into n buckets and counts the samples in
// each one. It also returns the height of the tallest bucket.
func bucketSeries(dist stats.Distribution, width uint64, n int) (series reportapi.Series, high uint64) {
	series = make(reportapi.Series, 0, n)
	for i := uint64(1); i <= uint64(n); i++ {
		value := i * width
		count := dist.CountBetween((i-1)*width+1, value)
		high = max(high, count)
		series = append(series, reportapi.Point{value, count})
	}
	return series, high
}

// throughputSeries returns the trailing minute tpm series and the per bucket
// completion counts, both keyed by time since the earliest terminal start.
func throughputSeries(dist stats.Distribution, intervals uint64) (tpm, counts reportapi.Series) {
	tpm = make(reportapi.Series, 0, intervals)
	counts = make(reportapi.Series, 0, intervals)
	for i := uint64(1); i <= intervals; i++ {
		value := i * TxCountSamplingIntervalMS
		lower := uint64(1)
		if value > TpmSamplingIntervalMS {
			lower = value - TpmSamplingIntervalMS + 1
		}
		tpm = append(tpm, reportapi.Point{value, dist.CountBetween(lower, value)})
		counts = append(counts, reportapi.Point{value, dist.CountAt(value)})
	}
	return tpm, counts
}

func (a *Aggregator) buildReport() reportapi.ReportingData {
	steadyLength := a.params.SteadyLengthMS()
	steadyBegin := a.params.SteadyBeginTimeMS - a.params.EarliestStartTimeMS
	steadyEnd := a.params.SteadyEndTimeMS - a.params.EarliestStartTimeMS

	// NewOrder defines the scales of the response and think time charts
	newOrder := a.stats[reportapi.NewOrder.Index()]
	txRtWidth := newOrder.txRT.ValueAtPercentile(Percentile90) * 4 / TxRtIntervalCount
	ttWidth := uint64(newOrder.thinkTime.Mean()) * 4 / TtIntervalCount

	var countDists [reportapi.NumTxTypes]stats.Distribution
	var runningTimeMS uint64
	for _, t := range reportapi.AllTxTypes {
		countDists[t.Index()] = a.stats[t.Index()].txCount.Snapshot()
		runningTimeMS = max(runningTimeMS, countDists[t.Index()].Max())
	}
	intervals := runningTimeMS / TxCountSamplingIntervalMS

	totalTpm := make(reportapi.Series, intervals)
	totalCounts := make(reportapi.Series, intervals)
	for i := range totalTpm {
		value := uint64(i+1) * TxCountSamplingIntervalMS
		totalTpm[i][0] = value
		totalCounts[i][0] = value
	}

	data := reportapi.ReportingData{
		TxData:        make([]reportapi.TransactionData, 0, reportapi.NumTxTypes),
		TerminalCount: a.params.TermCount,
	}
	for _, t := range reportapi.AllTxTypes {
		st := a.stats[t.Index()]

		txRtSeries, txRtHigh := bucketSeries(st.txRT.Snapshot(), txRtWidth, TxRtIntervalCount)
		ttSeries, _ := bucketSeries(st.thinkTime.Snapshot(), ttWidth, TtIntervalCount)
		tpmSeries, countSeries := throughputSeries(countDists[t.Index()], intervals)
		for i := range tpmSeries {
			totalTpm[i][1] += tpmSeries[i][1]
			totalCounts[i][1] += countSeries[i][1]
		}

		data.TxData = append(data.TxData, reportapi.TransactionData{
			TxType: t,
			TxRtData: reportapi.TxRtData{
				TxRtP90:     st.txRT.ValueAtPercentile(Percentile90),
				TxRtMean:    uint64(st.txRT.Mean()),
				TxRtMax:     st.txRT.Max(),
				TxRtHigh:    txRtHigh,
				TxRtTxCount: st.steadyCount,
				RbkCount:    st.rbkCount,
				TtMean:      uint64(st.thinkTime.Mean()),
				TxRtSeries:  txRtSeries,
				TtSeries:    ttSeries,
				TPMC:        TPMC(st.steadyCount, steadyLength),
			},
			ThroughputData: reportapi.ThroughputData{
				SteadyBeginTime: steadyBegin,
				SteadyEndTime:   steadyEnd,
				TpmSeries:       tpmSeries,
				TxCountSeries:   countSeries,
			},
		})
		data.TotalTxCount += st.steadyCount
	}

	data.TotalTxData = reportapi.ThroughputData{
		SteadyBeginTime: steadyBegin,
		SteadyEndTime:   steadyEnd,
		TpmSeries:       totalTpm,
		TxCountSeries:   totalCounts,
	}
	data.TotalTPMC = TPMC(data.TotalTxCount, steadyLength)
	data.TxRtTpmSeries = reportapi.Series{{data.TotalTPMC, data.NewOrderP90()}}

	log.WithFields(log.Fields{
		"tpmC":     data.TotalTPMC,
		"steady":   data.TotalTxCount,
		"newOrder": data.NewOrderP90(),
	}).Infof("Total running time %s", time.Duration(runningTimeMS)*time.Millisecond)
	return data
}
